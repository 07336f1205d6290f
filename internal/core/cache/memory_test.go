package cache

import (
	"errors"
	"math"
	"testing"

	"github.com/penwyp/go-heatmap-monitor/internal/core/binner"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Clusters = 4
	cfg.ColumnIntervalMs = 1000
	return cfg
}

// series returns one point per second starting at startSec, values cycling 0..99.
func series(startSec, count int) []model.DataPoint {
	points := make([]model.DataPoint, count)
	for i := range points {
		points[i] = model.DataPoint{Timestamp: float64(startSec+i) * 1000, Value: int64((startSec + i) % 100)}
	}
	return points
}

func revealN(t *testing.T, cc *ColumnCache, n int) []*model.Column {
	t.Helper()
	cols := make([]*model.Column, 0, n)
	for i := 0; i < n; i++ {
		col, err := cc.RevealNext()
		require.NoError(t, err)
		cols = append(cols, col)
	}
	return cols
}

func TestNewColumnCache(t *testing.T) {
	cc := NewColumnCache(testConfig())
	require.NotNil(t, cc)
	assert.Equal(t, 0, cc.Len())
	assert.Equal(t, 0, cc.Cursor())
	assert.False(t, cc.HasUnrevealed())
}

func TestRevealNextOnEmptyCache(t *testing.T) {
	grid, err := binner.Bin(nil, 4, 1000)
	require.NoError(t, err)
	cc := NewColumnCacheFromGrid(testConfig(), grid)

	col, err := cc.RevealNext()
	assert.Nil(t, col)
	assert.True(t, errors.Is(err, model.ErrExhausted))

	var exhausted *model.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 0, exhausted.Len)
}

func TestRevealNextAdvancesCursor(t *testing.T) {
	cc := NewColumnCache(testConfig())
	added, err := cc.AppendRawBatch(series(0, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	cols := revealN(t, cc, 3)
	assert.Equal(t, []float64{0, 1000, 2000}, []float64{cols[0].Key, cols[1].Key, cols[2].Key})
	assert.Equal(t, 3, cc.Cursor())
	assert.False(t, cc.HasUnrevealed())

	_, err = cc.RevealNext()
	assert.ErrorIs(t, err, model.ErrExhausted)
	assert.Equal(t, 3, cc.Cursor(), "failed reveal must not move the cursor")
}

func TestRetreat(t *testing.T) {
	cc := NewColumnCache(testConfig())
	_, err := cc.AppendRawBatch(series(0, 2))
	require.NoError(t, err)

	assert.False(t, cc.Retreat())
	revealN(t, cc, 2)
	assert.True(t, cc.Retreat())
	assert.Equal(t, 1, cc.Cursor())
	assert.True(t, cc.HasUnrevealed())
}

func TestAppendRawBatchKeepsLattice(t *testing.T) {
	cc := NewColumnCache(testConfig())
	_, err := cc.AppendRawBatch(series(0, 5))
	require.NoError(t, err)

	// 3 empty gap columns (5s..7s) then 2 data columns
	added, err := cc.AppendRawBatch(series(8, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, added)
	require.Equal(t, 10, cc.Len())

	for i := 0; i < cc.Len(); i++ {
		assert.Equal(t, float64(i*1000), cc.Column(i).Key)
		assert.Len(t, cc.Column(i).Clusters, 4)
	}
	assert.Equal(t, 0, cc.Column(6).Total())
	assert.Equal(t, 1, cc.Column(8).Total())
	assert.Equal(t, 7, cc.Stats().Points)
	assert.Equal(t, 2, cc.Stats().Appends)
}

func TestAppendRawBatchRejectsOverlap(t *testing.T) {
	cc := NewColumnCache(testConfig())
	_, err := cc.AppendRawBatch(series(0, 5))
	require.NoError(t, err)

	_, err = cc.AppendRawBatch(series(4, 3))
	assert.ErrorIs(t, err, model.ErrMalformedInput)
	assert.Equal(t, 5, cc.Len(), "rejected batch must leave the cache untouched")
}

func TestAppendRawBatchFixedScale(t *testing.T) {
	cc := NewColumnCache(testConfig())
	_, err := cc.AppendRawBatch([]model.DataPoint{{Timestamp: 0, Value: 0}, {Timestamp: 1000, Value: 40}})
	require.NoError(t, err)
	before := cc.Scale()

	_, err = cc.AppendRawBatch([]model.DataPoint{{Timestamp: 2000, Value: 400}, {Timestamp: 3000, Value: -5}})
	require.NoError(t, err)

	assert.Equal(t, before, cc.Scale())
	assert.Equal(t, 1, cc.Column(2).Clusters[3].Count, "values above the scale clamp to the last cluster")
	assert.Equal(t, 1, cc.Column(3).Clusters[0].Count, "values below the scale clamp to the first cluster")
}

func TestAppendRawBatchRescale(t *testing.T) {
	cfg := testConfig()
	cfg.ScalePolicy = model.ScaleRescale
	cc := NewColumnCache(cfg)

	_, err := cc.AppendRawBatch([]model.DataPoint{{Timestamp: 0, Value: 0}, {Timestamp: 1000, Value: 40}})
	require.NoError(t, err)
	assert.Equal(t, 1, cc.Column(1).Clusters[3].Count)

	_, err = cc.AppendRawBatch([]model.DataPoint{{Timestamp: 2000, Value: 400}})
	require.NoError(t, err)

	scale := cc.Scale()
	assert.Equal(t, int64(0), scale.Min)
	assert.Equal(t, int64(400), scale.Max)
	assert.Equal(t, int64(100), scale.IntervalSize)
	assert.Equal(t, 1, cc.Column(1).Clusters[0].Count, "old columns are rebinned on the new scale")
	assert.Equal(t, "0 - 100", cc.Column(0).Clusters[0].RangeLabel)
	assert.Equal(t, 1, cc.Column(2).Clusters[3].Count)
}

func TestEvictIfOverLimitScenario(t *testing.T) {
	grid, err := binner.Bin(series(0, 101), 4, 1000)
	require.NoError(t, err)
	cc := NewColumnCacheFromGrid(testConfig(), grid)
	require.Equal(t, 101, cc.Len())

	revealed := revealN(t, cc, 50)
	lastRevealed := revealed[len(revealed)-1]
	firstPending := cc.Column(50)

	removed := cc.EvictIfOverLimit(100, 20)
	assert.Equal(t, 10, removed)
	assert.Equal(t, 91, cc.Len())
	assert.Equal(t, 40, cc.Cursor())
	assert.Same(t, lastRevealed, cc.Column(cc.Cursor()-1))
	assert.Same(t, firstPending, cc.Column(cc.Cursor()))
	assert.Equal(t, float64(10000), cc.Column(0).Key)
	assert.Equal(t, 10, cc.Stats().Evicted)
}

func TestEvictIfOverLimitGuards(t *testing.T) {
	tests := []struct {
		name     string
		columns  int
		cursor   int
		limit    int
		visible  int
		expected int
	}{
		{"under limit", 100, 100, 100, 20, 0},
		{"pending columns protected", 120, 5, 100, 0, 0},
		{"visible history protected", 120, 30, 100, 20, 0},
		{"exact margin", 120, 32, 100, 20, 12},
		{"all revealed", 200, 200, 100, 24, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := binner.Bin(series(0, tt.columns), 4, 1000)
			require.NoError(t, err)
			cc := NewColumnCacheFromGrid(testConfig(), grid)
			revealN(t, cc, tt.cursor)
			pendingBefore := cc.Len() - cc.Cursor()

			removed := cc.EvictIfOverLimit(tt.limit, tt.visible)
			assert.Equal(t, tt.expected, removed)
			assert.Equal(t, tt.cursor-removed, cc.Cursor())
			assert.Equal(t, pendingBefore, cc.Len()-cc.Cursor(), "pending columns are never evicted")
			assert.GreaterOrEqual(t, cc.Cursor(), tt.visible)
		})
	}
}

func TestReset(t *testing.T) {
	cc := NewColumnCache(testConfig())
	_, err := cc.AppendRawBatch(series(0, 10))
	require.NoError(t, err)
	revealN(t, cc, 4)

	cc.Reset()
	assert.Equal(t, 0, cc.Len())
	assert.Equal(t, 0, cc.Cursor())

	// After a reset the next batch starts a new lattice
	_, err = cc.AppendRawBatch(series(3, 2))
	require.NoError(t, err)
	assert.Equal(t, float64(3000), cc.Column(0).Key)
}

func TestAppendRawBatchWideValuesAndSpans(t *testing.T) {
	wide := []model.DataPoint{
		{Timestamp: 5000, Value: math.MinInt64},
		{Timestamp: 6000, Value: math.MaxInt64},
	}

	for _, policy := range []model.ScalePolicy{model.ScaleFixed, model.ScaleRescale} {
		t.Run(string(policy), func(t *testing.T) {
			cfg := testConfig()
			cfg.ScalePolicy = policy
			cc := NewColumnCache(cfg)

			_, err := cc.AppendRawBatch(series(0, 5))
			require.NoError(t, err)
			added, err := cc.AppendRawBatch(wide)
			require.NoError(t, err)
			assert.Equal(t, 2, added)
			assert.Equal(t, 1, cc.Column(5).Clusters[0].Count)
			assert.Equal(t, 1, cc.Column(6).Clusters[3].Count)
			assert.Equal(t, 7, cc.Stats().Points)
		})
	}

	t.Run("far future batch", func(t *testing.T) {
		cc := NewColumnCache(testConfig())
		_, err := cc.AppendRawBatch(series(0, 5))
		require.NoError(t, err)

		_, err = cc.AppendRawBatch([]model.DataPoint{{Timestamp: 1e18, Value: 1}})
		assert.ErrorIs(t, err, model.ErrMalformedInput)
		assert.Equal(t, 5, cc.Len(), "a rejected batch adds no gap columns")
	})
}
