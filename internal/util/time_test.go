package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTimezone installs a global provider for the test and restores the previous one afterwards.
func useTimezone(t *testing.T, timezone string) {
	t.Helper()
	mu.Lock()
	previous := globalTimeProvider
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		globalTimeProvider = previous
		mu.Unlock()
	})
	require.NoError(t, InitializeTimeProvider(timezone))
}

func TestInitializeTimeProvider(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantLoc  string
		wantErr  bool
	}{
		{name: "local", timezone: "Local", wantLoc: "Local"},
		{name: "empty defaults to local", timezone: "", wantLoc: "Local"},
		{name: "utc", timezone: "UTC", wantLoc: "UTC"},
		{name: "named zone", timezone: "Asia/Shanghai", wantLoc: "Asia/Shanghai"},
		{name: "invalid", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTimezone(t, "UTC")

			err := InitializeTimeProvider(tt.timezone)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone 'Invalid/Timezone'")
				assert.Contains(t, err.Error(), "Valid examples:")
				assert.Equal(t, "UTC", GetTimeProvider().Location().String(), "a failed init keeps the previous provider")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoc, GetTimeProvider().Location().String())
		})
	}
}

func TestGetTimeProviderDefaultsToLocal(t *testing.T) {
	useTimezone(t, "UTC")
	mu.Lock()
	globalTimeProvider = nil
	mu.Unlock()

	provider := GetTimeProvider()
	assert.Equal(t, time.Local, provider.Location())
	assert.Same(t, provider, GetTimeProvider())
}

func TestSetTimezoneKeepsLocationOnError(t *testing.T) {
	provider := &TimeProvider{}
	require.NoError(t, provider.SetTimezone("Europe/London"))

	assert.Error(t, provider.SetTimezone("Not/A/Timezone"))
	assert.Equal(t, "Europe/London", provider.Location().String())
}

func TestFormatColumnKeyTimezones(t *testing.T) {
	// 2024-06-15 12:00:00.750 UTC
	const key = float64(1718452800750)

	tests := []struct {
		timezone string
		layout   string
		expected string
	}{
		{"UTC", "15:04:05", "12:00:00"},
		{"UTC", "15:04:05.000", "12:00:00.750"},
		{"Asia/Shanghai", "15:04:05", "20:00:00"},
		{"America/New_York", "15:04:05", "08:00:00"},
		{"Australia/Sydney", "2006-01-02 15:04", "2024-06-15 22:00"},
		{"America/Los_Angeles", time.DateTime, "2024-06-15 05:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.timezone+" "+tt.layout, func(t *testing.T) {
			useTimezone(t, tt.timezone)
			assert.Equal(t, tt.expected, FormatColumnKey(key, tt.layout))
		})
	}
}

func TestMillisToTimeTruncatesFraction(t *testing.T) {
	ts := MillisToTime(1500.9)
	assert.Equal(t, int64(1500), ts.UnixMilli())
	assert.Equal(t, int64(1), ts.Unix())
}

func TestLocationDrivesSnapshotStamp(t *testing.T) {
	// Axis ticks and snapshot file names convert through the provider location
	instant := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)

	useTimezone(t, "UTC")
	assert.Equal(t, "20241231-233000", instant.In(GetTimeProvider().Location()).Format("20060102-150405"))

	useTimezone(t, "Asia/Tokyo")
	stamp := instant.In(GetTimeProvider().Location())
	assert.Equal(t, "20250101-083000", stamp.Format("20060102-150405"), "the day rolls over in the configured zone")
	assert.Equal(t, instant.UnixMilli(), MillisToTime(float64(stamp.UnixMilli())).UnixMilli())
}

func TestTimeProviderConcurrency(t *testing.T) {
	provider := &TimeProvider{}
	require.NoError(t, provider.SetTimezone("UTC"))

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = provider.Format(MillisToTime(1718452800000), time.RFC3339)
		}()
	}

	timezones := []string{"UTC", "Asia/Shanghai", "America/New_York", "Europe/London"}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := provider.SetTimezone(timezones[idx%len(timezones)]); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SetTimezone: %v", err)
	}
}
