package model

import (
	"fmt"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/constants"
)

// ScalePolicy decides how appended batches relate to the existing value scale.
type ScalePolicy string

const (
	// ScaleFixed keeps the scale of the first batch so already drawn columns stay comparable.
	ScaleFixed ScalePolicy = "fixed"
	// ScaleRescale recomputes the global scale over all retained points and rebins every column.
	ScaleRescale ScalePolicy = "rescale"
)

// Config holds the heat map pipeline settings.
type Config struct {
	// Binning
	Clusters         int
	ColumnIntervalMs int64
	ScalePolicy      ScalePolicy

	// Plot geometry (pixels)
	PlotColumnWidth int
	PlotWidth       int

	// Cache and scroll
	CacheLimit   int
	TickInterval time.Duration

	// Retrieval
	MaxRetries   int // 0 retries until data arrives
	RetryTimeout time.Duration
}

// DefaultConfig returns a configuration populated with the default values.
// MaxRetries is set here rather than in ApplyDefaults because zero is meaningful.
func DefaultConfig() Config {
	c := Config{MaxRetries: constants.DefaultMaxRetries}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Clusters == 0 {
		c.Clusters = constants.DefaultClusters
	}
	if c.ColumnIntervalMs == 0 {
		c.ColumnIntervalMs = constants.DefaultColumnIntervalMs
	}
	if c.ScalePolicy == "" {
		c.ScalePolicy = ScaleFixed
	}
	if c.PlotColumnWidth == 0 {
		c.PlotColumnWidth = constants.DefaultPlotColumnWidth
	}
	if c.PlotWidth == 0 {
		c.PlotWidth = constants.DefaultPlotWidth
	}
	if c.CacheLimit == 0 {
		c.CacheLimit = constants.DefaultCacheLimit
	}
	if c.TickInterval == 0 {
		c.TickInterval = constants.DefaultTickInterval
	}
	if c.RetryTimeout == 0 {
		c.RetryTimeout = constants.DefaultRetryTimeout
	}
}

// Validate rejects degenerate settings. Zero values are not defaulted here; call ApplyDefaults first.
func (c *Config) Validate() error {
	if c.Clusters <= 0 {
		return &ConfigurationError{Field: "clusters", Reason: fmt.Sprintf("must be positive, got %d", c.Clusters)}
	}
	if c.ColumnIntervalMs <= 0 {
		return &ConfigurationError{Field: "columnIntervalMs", Reason: fmt.Sprintf("must be positive, got %d", c.ColumnIntervalMs)}
	}
	if c.PlotColumnWidth <= 0 {
		return &ConfigurationError{Field: "plotColumnWidth", Reason: fmt.Sprintf("must be positive, got %d", c.PlotColumnWidth)}
	}
	if c.PlotWidth < c.PlotColumnWidth {
		return &ConfigurationError{Field: "plotWidth", Reason: fmt.Sprintf("%d is narrower than one column (%d)", c.PlotWidth, c.PlotColumnWidth)}
	}
	if c.CacheLimit < c.MaxVisibleColumns() {
		return &ConfigurationError{Field: "cacheLimit", Reason: fmt.Sprintf("%d is smaller than the visible window (%d)", c.CacheLimit, c.MaxVisibleColumns())}
	}
	if c.TickInterval < 0 {
		return &ConfigurationError{Field: "tickInterval", Reason: "must not be negative"}
	}
	if c.MaxRetries < 0 {
		return &ConfigurationError{Field: "maxRetries", Reason: "must not be negative"}
	}
	if c.RetryTimeout < 0 {
		return &ConfigurationError{Field: "retryTimeout", Reason: "must not be negative"}
	}
	switch c.ScalePolicy {
	case ScaleFixed, ScaleRescale:
	default:
		return &ConfigurationError{Field: "scalePolicy", Reason: fmt.Sprintf("unknown policy %q", c.ScalePolicy)}
	}
	return nil
}

// MaxVisibleColumns is the capacity of the visible window.
func (c *Config) MaxVisibleColumns() int {
	if c.PlotColumnWidth <= 0 {
		return 0
	}
	return c.PlotWidth / c.PlotColumnWidth
}
