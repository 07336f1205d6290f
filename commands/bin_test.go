package commands

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-heatmap-monitor/internal/testing/fixtures"
)

func TestBinCommandFlags(t *testing.T) {
	for flag, def := range map[string]string{
		"output":   "table",
		"last":     "",
		"limit":    "0",
		"clusters": "10",
		"interval": "10s",
		"strict":   "false",
	} {
		f := binCmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
	assert.Equal(t, "o", binCmd.Flags().Lookup("output").Shorthand)
}

func TestRunBin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	path, err := gen.WriteJSONL("points.jsonl", fixtures.Series(0, 500, 40, 1, 2, 3, 4))
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"bin", "--timezone", "UTC", "--file", path, "--format", "csv", "--clusters", "3", "--interval", "5s"})
	require.NoError(t, rootCmd.Execute())

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	// header plus four 5s columns of 10 points
	assert.Len(t, records, 5)
}
