package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/data/parser"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

const maxChunkSize = 4 * 1024 * 1024

// FileSource reads points from a file. JSON Lines files are tailed: every fetch returns the
// complete lines appended since the previous one. JSON arrays and compressed files are read
// once, whole.
type FileSource struct {
	path    string
	parser  *parser.Parser
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	offset  int64
	records int
	dirty   bool
	whole   bool
	loaded  bool
	closed  bool
}

// NewFileSource opens a source on path. With watch set, fsnotify events on the file gate
// the reads so an idle file costs no syscalls per poll.
func NewFileSource(path string, p *parser.Parser, watch bool) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	if p == nil {
		p = parser.NewParser(1, false)
	}

	fs := &FileSource{
		path:   path,
		parser: p,
		dirty:  true,
		whole:  parser.IsCompressed(path),
	}

	if !fs.whole {
		whole, err := startsWithArray(path)
		if err != nil {
			return nil, err
		}
		fs.whole = whole
	}

	if watch && !fs.whole {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		// Watch the directory so replacements by rename are seen too
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
		}
		fs.watcher = watcher
		go fs.processEvents()
	}

	return fs, nil
}

func (fs *FileSource) processEvents() {
	target := filepath.Clean(fs.path)
	for {
		select {
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fs.mu.Lock()
				fs.dirty = true
				fs.mu.Unlock()
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue running
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

func (fs *FileSource) FetchMore(ctx context.Context) ([]model.DataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil, os.ErrClosed
	}

	if fs.whole {
		if fs.loaded {
			return nil, nil
		}
		points, err := fs.parser.ParseFile(fs.path)
		if err != nil {
			return nil, err
		}
		fs.loaded = true
		fs.records = len(points)
		return points, nil
	}

	if fs.watcher != nil && !fs.dirty {
		return nil, nil
	}
	return fs.tail()
}

func (fs *FileSource) tail() ([]model.DataPoint, error) {
	file, err := os.Open(fs.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < fs.offset {
		util.LogWarnf("Data file %s shrank from %d to %d bytes, reading from the start", fs.path, fs.offset, info.Size())
		fs.offset = 0
	}
	if info.Size() == fs.offset {
		fs.dirty = false
		return nil, nil
	}

	if _, err := file.Seek(fs.offset, io.SeekStart); err != nil {
		return nil, err
	}
	chunk, err := io.ReadAll(io.LimitReader(file, maxChunkSize))
	if err != nil {
		return nil, err
	}

	points, consumed, err := fs.parser.ParseLines(chunk, fs.records)
	if err != nil {
		return nil, err
	}
	fs.offset += int64(consumed)
	fs.records += len(points)
	// Stay dirty while a full chunk was read, there may be more behind it
	fs.dirty = len(chunk) == maxChunkSize

	util.LogDebugf("Read %d points from %s, offset %d", len(points), fs.path, fs.offset)
	return points, nil
}

// Offset returns how many bytes of the file have been consumed.
func (fs *FileSource) Offset() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.offset
}

// Close stops watching the file.
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	fs.mu.Unlock()

	if fs.watcher != nil {
		return fs.watcher.Close()
	}
	return nil
}

func startsWithArray(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	br := bufio.NewReader(file)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '[', nil
	}
}
