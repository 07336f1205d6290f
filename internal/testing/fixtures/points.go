package fixtures

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// TestDataGenerator writes points files into a base directory
type TestDataGenerator struct {
	baseDir string
	rnd     *rand.Rand
}

// NewTestDataGenerator creates a generator with a fixed seed so fixtures are reproducible
func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{
		baseDir: baseDir,
		rnd:     rand.New(rand.NewSource(42)),
	}
}

// GetBaseDir returns the base directory
func (g *TestDataGenerator) GetBaseDir() string {
	return g.baseDir
}

// Series returns n records starting at startSec, stepMs apart, with values cycling through values.
func Series(startSec int64, stepMs int64, n int, values ...int64) []model.RawPoint {
	if len(values) == 0 {
		values = []int64{0}
	}
	records := make([]model.RawPoint, n)
	for i := range records {
		ms := startSec*1000 + int64(i)*stepMs
		records[i] = model.RawPoint{
			Key:   fmt.Sprintf("%d.%03d", ms/1000, ms%1000),
			Value: fmt.Sprintf("%d", values[i%len(values)]),
		}
	}
	return records
}

// RandomSeries returns n records one second apart with values in [0, maxValue).
func (g *TestDataGenerator) RandomSeries(startSec int64, n int, maxValue int64) []model.RawPoint {
	records := make([]model.RawPoint, n)
	for i := range records {
		records[i] = model.RawPoint{
			Key:   fmt.Sprintf("%d", startSec+int64(i)),
			Value: fmt.Sprintf("%d", g.rnd.Int63n(maxValue)),
			Name:  "fixture",
		}
	}
	return records
}

// Points converts well-formed records to the parsed form, keys in milliseconds.
func Points(records []model.RawPoint) []model.DataPoint {
	points := make([]model.DataPoint, 0, len(records))
	for _, r := range records {
		p, err := r.ToDataPoint()
		if err != nil {
			panic(fmt.Sprintf("fixture record %+v: %v", r, err))
		}
		points = append(points, p)
	}
	return points
}

// WriteJSONL writes records one per line and returns the file path
func (g *TestDataGenerator) WriteJSONL(name string, records []model.RawPoint) (string, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := sonic.ConfigStd.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to marshal record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return g.write(name, buf.Bytes())
}

// WriteArray writes records as one JSON array padded with leading whitespace,
// like a results endpoint that flushes early
func (g *TestDataGenerator) WriteArray(name string, records []model.RawPoint, padding int) (string, error) {
	data, err := sonic.ConfigStd.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}
	return g.write(name, append(bytes.Repeat([]byte(" "), padding), data...))
}

// WriteCompressed writes records as zstd-compressed JSON Lines
func (g *TestDataGenerator) WriteCompressed(name string, records []model.RawPoint) (string, error) {
	var plain bytes.Buffer
	for _, r := range records {
		line, err := sonic.ConfigStd.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to marshal record: %w", err)
		}
		plain.Write(line)
		plain.WriteByte('\n')
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return g.write(name, enc.EncodeAll(plain.Bytes(), nil))
}

// WriteRaw writes content verbatim, for malformed-input cases
func (g *TestDataGenerator) WriteRaw(name, content string) (string, error) {
	return g.write(name, []byte(content))
}

func (g *TestDataGenerator) write(name string, data []byte) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
