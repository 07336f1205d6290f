package constants

import "time"

const (
	// Binning defaults
	DefaultClusters         = 10
	DefaultColumnIntervalMs = int64(10000)

	// Plot geometry in pixels; the window holds PlotWidth/PlotColumnWidth columns
	DefaultPlotColumnWidth = 25
	DefaultPlotWidth       = 600

	// Columns kept in memory before the oldest tenth is evicted
	DefaultCacheLimit = 100
	EvictionFraction  = 0.1

	// Scroll speed
	DefaultTickInterval = 400 * time.Millisecond
	MinTickInterval     = time.Millisecond

	// Bounded retrieval when the cache runs dry
	DefaultMaxRetries   = 10
	DefaultRetryTimeout = 200 * time.Millisecond
)
