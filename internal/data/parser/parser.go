package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

const maxLineSize = 10 * 1024 * 1024

// Parser decodes measurement files into DataPoints.
// Accepted framings are JSON Lines and a single JSON array, either optionally preceded by
// whitespace padding and optionally zstd compressed (".zst" suffix).
type Parser struct {
	concurrency int
	strict      bool
	mu          sync.Mutex
	cache       map[string]cachedFile
}

type cachedFile struct {
	size    int64
	modTime time.Time
	points  []model.DataPoint
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File   string
	Points []model.DataPoint
	Error  error
}

// NewParser creates a new Parser instance. A strict parser fails on the first malformed
// record; otherwise malformed records are logged and skipped.
func NewParser(concurrency int, strict bool) *Parser {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		strict:      strict,
		cache:       make(map[string]cachedFile),
	}
}

// IsCompressed reports whether path names a zstd compressed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// OpenFile opens path for reading, transparently decompressing ".zst" files.
func OpenFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return file, nil
	}

	dec, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
	}
	return &zstdReadCloser{dec: dec, file: file}, nil
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}

// ParseFile parses the file at path. Results are cached until the file's size or mtime change.
func (p *Parser) ParseFile(path string) ([]model.DataPoint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		p.mu.Unlock()
		return cached.points, nil
	}
	p.mu.Unlock()

	util.LogDebugf("Start parsing file: %s", path)

	rc, err := OpenFile(path)
	if err != nil {
		util.LogDebugf("Failed to open file: %s - %v", path, err)
		return nil, err
	}
	defer rc.Close()

	points, err := p.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p.mu.Lock()
	p.cache[path] = cachedFile{size: info.Size(), modTime: info.ModTime(), points: points}
	p.mu.Unlock()

	return points, nil
}

// Parse decodes every record readable from r.
func (p *Parser) Parse(r io.Reader) ([]model.DataPoint, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		return p.decodeArray(data)
	}
	points, _, err := p.decodeLines(br, 0)
	return points, err
}

// ParseBytes decodes a complete in-memory payload.
func (p *Parser) ParseBytes(data []byte) ([]model.DataPoint, error) {
	return p.Parse(bytes.NewReader(data))
}

// ParseLines decodes the complete lines of a JSON Lines chunk. A trailing partial line is left
// unconsumed; the returned count is the number of bytes consumed. startIndex numbers the first
// record for error reporting.
func (p *Parser) ParseLines(chunk []byte, startIndex int) ([]model.DataPoint, int, error) {
	end := bytes.LastIndexByte(chunk, '\n')
	if end < 0 {
		return nil, 0, nil
	}
	points, _, err := p.decodeLines(bytes.NewReader(chunk[:end+1]), startIndex)
	if err != nil {
		return nil, 0, err
	}
	return points, end + 1, nil
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			points, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s - %v", f, err)
			}
			results <- ParseResult{File: f, Points: points, Error: err}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}

// Merge drains results into one timestamp ordered slice. The first error is returned.
func Merge(results <-chan ParseResult) ([]model.DataPoint, error) {
	var all []model.DataPoint
	var firstErr error
	for res := range results {
		if res.Error != nil {
			if firstErr == nil {
				firstErr = res.Error
			}
			continue
		}
		all = append(all, res.Points...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	return all, nil
}

func (p *Parser) decodeArray(data []byte) ([]model.DataPoint, error) {
	var records []record
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, &model.MalformedInputError{Index: 0, Reason: "invalid JSON array", Err: err}
	}

	points := make([]model.DataPoint, 0, len(records))
	for i, rec := range records {
		point, err := p.convert(rec, i)
		if err != nil {
			return nil, err
		}
		if point != nil {
			points = append(points, *point)
		}
	}
	return points, nil
}

func (p *Parser) decodeLines(r io.Reader, startIndex int) ([]model.DataPoint, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var points []model.DataPoint
	index := startIndex
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := sonic.Unmarshal(line, &rec); err != nil {
			if p.strict {
				return nil, index, &model.MalformedInputError{Index: index, Reason: "invalid JSON line", Err: err}
			}
			util.LogDebugf("Skip invalid JSON line %d - %v", index, err)
			index++
			continue
		}

		point, err := p.convert(rec, index)
		if err != nil {
			return nil, index, err
		}
		if point != nil {
			points = append(points, *point)
		}
		index++
	}

	if err := scanner.Err(); err != nil {
		return nil, index, fmt.Errorf("failed to scan records: %w", err)
	}
	return points, index, nil
}

// convert returns nil for a skipped record in lenient mode.
func (p *Parser) convert(rec record, index int) (*model.DataPoint, error) {
	point, err := rec.raw().ToDataPoint()
	if err == nil {
		return &point, nil
	}
	if mie, ok := err.(*model.MalformedInputError); ok {
		mie.Index = index
	}
	if p.strict {
		return nil, err
	}
	util.LogDebugf("Skip malformed record: %v", err)
	return nil, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
