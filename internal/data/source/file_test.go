package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-heatmap-monitor/internal/data/parser"
)

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFileSourceTailsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.jsonl")
	appendFile(t, path, `{"key":"1","value":"1"}`+"\n"+`{"key":"2","value":"2"}`+"\n"+`{"key":"3",`)

	src, err := NewFileSource(path, parser.NewParser(1, true), false)
	require.NoError(t, err)
	defer src.Close()
	ctx := context.Background()

	batch, err := src.FetchMore(ctx)
	require.NoError(t, err)
	assert.Len(t, batch, 2, "the partial trailing line waits")

	batch, err = src.FetchMore(ctx)
	require.NoError(t, err)
	assert.Empty(t, batch)

	appendFile(t, path, `"value":"3"}`+"\n")
	batch, err = src.FetchMore(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, float64(3000), batch[0].Timestamp)
}

func TestFileSourceWholeArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.json")
	require.NoError(t, os.WriteFile(path, []byte(`  [{"key":"1","value":"1"},{"key":"2","value":"5"}]`), 0644))

	src, err := NewFileSource(path, nil, true)
	require.NoError(t, err)
	defer src.Close()

	batch, err := src.FetchMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	batch, err = src.FetchMore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch, "whole files are read once")
}

func TestFileSourceWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.jsonl")
	appendFile(t, path, `{"key":"1","value":"1"}`+"\n")

	src, err := NewFileSource(path, parser.NewParser(1, true), true)
	require.NoError(t, err)
	defer src.Close()
	ctx := context.Background()

	batch, err := src.FetchMore(ctx)
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	appendFile(t, path, `{"key":"2","value":"2"}`+"\n")
	var got int
	require.Eventually(t, func() bool {
		batch, err := src.FetchMore(ctx)
		if err != nil {
			return false
		}
		got += len(batch)
		return got == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Greater(t, src.Offset(), int64(0))
}

func TestFileSourceShrink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.jsonl")
	appendFile(t, path, `{"key":"1","value":"1"}`+"\n"+`{"key":"2","value":"2"}`+"\n")

	src, err := NewFileSource(path, parser.NewParser(1, true), false)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.FetchMore(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"key":"9","value":"9"}`+"\n"), 0644))
	batch, err := src.FetchMore(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, float64(9000), batch[0].Timestamp)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.jsonl"), nil, false)
	assert.Error(t, err)
}

func TestFileSourceClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.jsonl")
	appendFile(t, path, "")
	src, err := NewFileSource(path, nil, false)
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err = src.FetchMore(context.Background())
	assert.ErrorIs(t, err, os.ErrClosed)
}
