package play

import (
	"fmt"
	"io"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// PlayConfig contains configuration for the play command
type PlayConfig struct {
	// Data source: a points file, or the synthetic stream when Demo is set
	DataFile string
	Watch    bool
	Demo     bool
	Strict   bool

	// Display settings
	Timezone    string
	TimeLayout  string
	Color       bool
	CellWidth   int
	SnapshotDir string

	// Refresh settings
	UIRefreshRate float64 // Hz
	SpeedStep     time.Duration

	// Pipeline settings
	Core model.Config

	// Terminal I/O; nil uses the process terminal
	Input  io.Reader
	Output io.Writer
}

// Validate fills defaults and checks the configuration
func (c *PlayConfig) Validate() error {
	if c.DataFile == "" && !c.Demo {
		return &model.ConfigurationError{Field: "file", Reason: "a data file is required unless demo mode is enabled"}
	}
	if c.DataFile != "" && c.Demo {
		return &model.ConfigurationError{Field: "demo", Reason: "cannot be combined with a data file"}
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.TimeLayout == "" {
		c.TimeLayout = "15:04:05"
	}
	if c.CellWidth == 0 {
		c.CellWidth = 2
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = "."
	}
	if c.UIRefreshRate == 0 {
		c.UIRefreshRate = 4
	}
	if c.UIRefreshRate < 0.1 || c.UIRefreshRate > 20 {
		return &model.ConfigurationError{Field: "refreshPerSecond", Reason: fmt.Sprintf("%.2f is outside 0.1-20 Hz", c.UIRefreshRate)}
	}
	if c.SpeedStep == 0 {
		c.SpeedStep = 50 * time.Millisecond
	}
	if c.SpeedStep < 0 {
		return &model.ConfigurationError{Field: "speedStep", Reason: "must not be negative"}
	}

	c.Core.ApplyDefaults()
	return c.Core.Validate()
}

func (c *PlayConfig) uiPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.UIRefreshRate)
}
