package parser

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewParser(t *testing.T) {
	p := NewParser(0, false)
	assert.Equal(t, 1, p.concurrency)
	assert.NotNil(t, p.cache)
}

func TestParseJSONLines(t *testing.T) {
	input := `{"key":"1.5","value":"10","name":"cpu0","time":"12:00:01"}
{"key":2,"value":20}

{"key":"3","value":"7.9"}
`
	points, err := NewParser(1, true).ParseBytes([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, []model.DataPoint{
		{Timestamp: 1500, Value: 10, Name: "cpu0"},
		{Timestamp: 2000, Value: 20},
		{Timestamp: 3000, Value: 7},
	}, points)
}

func TestParseSearchFields(t *testing.T) {
	input := `{"unixtime":"100","cumulative_hits":"42","processor":"p1","time":"x"}`
	points, err := NewParser(1, true).ParseBytes([]byte(input))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, model.DataPoint{Timestamp: 100000, Value: 42, Name: "p1"}, points[0])
}

func TestParsePaddedArray(t *testing.T) {
	input := strings.Repeat(" ", 256) + "\n" + `[{"key":"0","value":"1"},{"key":"10","value":"2"}]`
	points, err := NewParser(1, true).ParseBytes([]byte(input))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, float64(10000), points[1].Timestamp)
}

func TestParseEmpty(t *testing.T) {
	points, err := NewParser(1, true).ParseBytes([]byte("   \n\t"))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestParseStrictVersusLenient(t *testing.T) {
	input := `{"key":"1","value":"1"}
invalid json line here
{"key":"abc","value":"1"}
{"key":"3","value":"3"}
`
	tests := []struct {
		name    string
		strict  bool
		wantErr bool
		count   int
	}{
		{"lenient skips bad records", false, false, 2},
		{"strict fails fast", true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := NewParser(1, tt.strict).ParseBytes([]byte(input))
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, points, tt.count)
		})
	}
}

func TestParseStrictReportsIndex(t *testing.T) {
	input := `{"key":"1","value":"1"}
{"key":"2","value":"two"}
`
	_, err := NewParser(1, true).ParseBytes([]byte(input))
	var mie *model.MalformedInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, 1, mie.Index)
	assert.Equal(t, "value", mie.Field)
}

func TestParseLinesKeepsPartialLine(t *testing.T) {
	chunk := []byte(`{"key":"1","value":"1"}` + "\n" + `{"key":"2","val`)
	points, consumed, err := NewParser(1, true).ParseLines(chunk, 0)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, len(`{"key":"1","value":"1"}`)+1, consumed)

	points, consumed, err = NewParser(1, true).ParseLines([]byte(`{"key":"2"`), 0)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Zero(t, consumed)
}

func TestParseFileCompressed(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"key":"5","value":"50"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	path := filepath.Join(t.TempDir(), "points.jsonl.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	points, err := NewParser(1, true).ParseFile(path)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(50), points[0].Value)
}

func TestParseFileCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.jsonl", `{"key":"1","value":"1"}`+"\n")
	p := NewParser(1, true)

	first, err := p.ParseFile(path)
	require.NoError(t, err)
	second, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, p.cache, 1)

	require.NoError(t, os.WriteFile(path, []byte(`{"key":"1","value":"1"}`+"\n"+`{"key":"2","value":"2"}`+"\n"), 0644))
	third, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, third, 2, "a changed file is parsed again")
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewParser(1, true).ParseFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestParseFilesMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jsonl", `{"key":"3","value":"3"}`+"\n"+`{"key":"1","value":"1"}`+"\n")
	b := writeFile(t, dir, "b.jsonl", `{"key":"2","value":"2"}`+"\n")

	points, err := Merge(NewParser(2, true).ParseFiles([]string{a, b}))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{1000, 2000, 3000}, []float64{points[0].Timestamp, points[1].Timestamp, points[2].Timestamp})
}

func TestParseFilesMergeError(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jsonl", `{"key":"1","value":"1"}`+"\n")

	_, err := Merge(NewParser(2, true).ParseFiles([]string{a, filepath.Join(dir, "nope.jsonl")}))
	assert.Error(t, err)
}
