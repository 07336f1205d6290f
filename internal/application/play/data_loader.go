package play

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/data/parser"
	"github.com/penwyp/go-heatmap-monitor/internal/data/source"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

const demoLatency = 150 * time.Millisecond

// DataLoader owns the data source feeding the scroll engine
type DataLoader struct {
	config *PlayConfig
	source source.DataSource
	file   *source.FileSource
	label  string
}

// NewDataLoader opens the configured file, or a synthetic stream in demo mode
func NewDataLoader(config *PlayConfig) (*DataLoader, error) {
	if config.Demo {
		interval := time.Duration(config.Core.ColumnIntervalMs) * time.Millisecond
		gen := source.NewGeneratorSource(source.GeneratorConfig{
			ColumnInterval:  interval,
			ColumnsPerBatch: 2 * config.Core.MaxVisibleColumns(),
			Latency:         demoLatency,
		})
		util.LogInfof("Demo source: %s per column", util.FormatInterval(interval))
		return &DataLoader{config: config, source: gen, label: "demo"}, nil
	}

	p := parser.NewParser(runtime.NumCPU(), config.Strict)
	fs, err := source.NewFileSource(config.DataFile, p, config.Watch)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	util.LogInfof("File source: %s (watch=%v)", config.DataFile, config.Watch)
	return &DataLoader{config: config, source: fs, file: fs, label: filepath.Base(config.DataFile)}, nil
}

// Source returns the data source
func (dl *DataLoader) Source() source.DataSource {
	return dl.source
}

// Label names the source in the header
func (dl *DataLoader) Label() string {
	if dl.file != nil && dl.config.Watch {
		return dl.label + " (watching)"
	}
	return dl.label
}

// Close releases the file watcher, if any
func (dl *DataLoader) Close() error {
	if dl.file == nil {
		return nil
	}
	return dl.file.Close()
}
