package cache

import (
	"fmt"
	"math"

	"github.com/penwyp/go-heatmap-monitor/internal/core/binner"
	"github.com/penwyp/go-heatmap-monitor/internal/core/constants"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// Stats summarises the cache for status displays
type Stats struct {
	Columns   int
	Cursor    int
	Pending   int
	Points    int
	Evicted   int // columns evicted since the last Reset
	Appends   int // batches appended since the last Reset
	Scale     binner.Scale
	OldestKey float64
	NewestKey float64
}

// ColumnCache holds the binned grid and the cursor separating revealed columns from pending ones.
// Columns before the cursor have been revealed. ColumnCache is not safe for concurrent use; the
// scroll engine serializes every access behind its own lock.
type ColumnCache struct {
	clusters   int
	intervalMs int64
	policy     model.ScalePolicy

	columns []*model.Column
	cursor  int

	scale    binner.Scale
	hasScale bool
	nextKey  float64 // key of the first bucket after the last column

	evicted int
	appends int
}

// NewColumnCache creates an empty cache binning with the given configuration.
func NewColumnCache(cfg model.Config) *ColumnCache {
	policy := cfg.ScalePolicy
	if policy == "" {
		policy = model.ScaleFixed
	}
	return &ColumnCache{
		clusters:   cfg.Clusters,
		intervalMs: cfg.ColumnIntervalMs,
		policy:     policy,
	}
}

// NewColumnCacheFromGrid wraps an already binned grid with the cursor at zero.
func NewColumnCacheFromGrid(cfg model.Config, grid *binner.Grid) *ColumnCache {
	cc := NewColumnCache(cfg)
	if grid != nil && grid.Len() > 0 {
		cc.columns = append(cc.columns, grid.Columns...)
		cc.scale = grid.Scale
		cc.hasScale = true
		cc.nextKey = grid.Origin + float64(grid.Len())*float64(grid.IntervalMs)
		cc.intervalMs = grid.IntervalMs
		cc.clusters = grid.Scale.Clusters
	}
	return cc
}

// Len returns the number of cached columns.
func (cc *ColumnCache) Len() int { return len(cc.columns) }

// Cursor returns the index of the next column to reveal.
func (cc *ColumnCache) Cursor() int { return cc.cursor }

// Scale returns the value scale currently applied to the columns.
func (cc *ColumnCache) Scale() binner.Scale { return cc.scale }

// HasUnrevealed reports whether a column is pending.
func (cc *ColumnCache) HasUnrevealed() bool {
	return cc.cursor < len(cc.columns)
}

// Column returns the column at index i, or nil when out of range.
func (cc *ColumnCache) Column(i int) *model.Column {
	if i < 0 || i >= len(cc.columns) {
		return nil
	}
	return cc.columns[i]
}

// RevealNext returns the column under the cursor and advances the cursor.
func (cc *ColumnCache) RevealNext() (*model.Column, error) {
	if !cc.HasUnrevealed() {
		return nil, &model.ExhaustedError{Cursor: cc.cursor, Len: len(cc.columns)}
	}
	col := cc.columns[cc.cursor]
	cc.cursor++
	return col, nil
}

// Retreat moves the cursor back by one revealed column. It returns false at the start of the cache.
func (cc *ColumnCache) Retreat() bool {
	if cc.cursor == 0 {
		return false
	}
	cc.cursor--
	return true
}

// AppendRawBatch bins points and appends the new columns. Columns stay on the lattice of the
// existing grid and empty columns fill any gap, so column keys remain contiguous. Points falling
// into an already cached bucket are rejected. It returns the number of columns added.
func (cc *ColumnCache) AppendRawBatch(points []model.DataPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	if cc.clusters <= 0 || cc.intervalMs <= 0 {
		return 0, &model.ConfigurationError{Field: "clusters/columnIntervalMs", Reason: "cache created without binning parameters"}
	}

	if !cc.hasScale {
		grid, err := binner.Bin(points, cc.clusters, cc.intervalMs)
		if err != nil {
			return 0, fmt.Errorf("failed to bin batch: %w", err)
		}
		cc.columns = append(cc.columns, grid.Columns...)
		cc.scale = grid.Scale
		cc.hasScale = true
		cc.nextKey = grid.Origin + float64(grid.Len())*float64(cc.intervalMs)
		cc.appends++
		util.LogDebugf("ColumnCache: first batch of %d points binned into %d columns (scale %d..%d step %d)",
			len(points), grid.Len(), cc.scale.Min, cc.scale.Max, cc.scale.IntervalSize)
		return grid.Len(), nil
	}

	if points[0].Timestamp < cc.nextKey {
		return 0, &model.MalformedInputError{
			Index:  0,
			Field:  "timestamp",
			Input:  fmt.Sprintf("%.0fms", points[0].Timestamp),
			Reason: fmt.Sprintf("falls before the next free column at %.0fms", cc.nextKey),
		}
	}

	scale := cc.scale
	if cc.policy == model.ScaleRescale {
		scale = binner.NewScale(append(cc.retainedPoints(), points...), cc.clusters)
	}

	grid, err := binner.BuildSkeletonOn(points, cc.intervalMs, cc.nextKey, scale)
	if err != nil {
		return 0, fmt.Errorf("failed to build skeleton: %w", err)
	}
	if _, err := binner.Fill(grid, points); err != nil {
		return 0, fmt.Errorf("failed to fill batch: %w", err)
	}

	// Gap buckets between the cached grid and the batch
	gap := int(math.Round((grid.Origin - cc.nextKey) / float64(cc.intervalMs)))
	labels := scale.Labels()
	for i := 0; i < gap; i++ {
		cc.columns = append(cc.columns, binner.NewColumn(cc.nextKey+float64(i)*float64(cc.intervalMs), labels))
	}
	cc.columns = append(cc.columns, grid.Columns...)
	cc.nextKey = grid.Origin + float64(grid.Len())*float64(cc.intervalMs)
	cc.appends++

	if cc.policy == model.ScaleRescale && scale != cc.scale {
		binner.Rebin(cc.columns[:len(cc.columns)-grid.Len()-gap], scale)
		util.LogDebugf("ColumnCache: rescaled %d cached columns to %d..%d step %d",
			len(cc.columns)-grid.Len()-gap, scale.Min, scale.Max, scale.IntervalSize)
	}
	cc.scale = scale

	return gap + grid.Len(), nil
}

// EvictIfOverLimit drops the oldest tenth of the cache when it holds more than cacheLimit columns.
// Only revealed columns are removed, and at least maxVisibleColumns revealed columns are kept so
// the visible window can always be rebuilt from the cache. It returns the number of columns removed.
func (cc *ColumnCache) EvictIfOverLimit(cacheLimit, maxVisibleColumns int) int {
	if len(cc.columns) <= cacheLimit {
		return 0
	}

	n := int(math.Floor(float64(len(cc.columns)) * constants.EvictionFraction))
	if n <= 0 || cc.cursor-n < maxVisibleColumns {
		util.LogDebugf("ColumnCache: eviction of %d columns skipped (cursor=%d, visible=%d)", n, cc.cursor, maxVisibleColumns)
		return 0
	}

	// Release references so evicted columns can be collected
	for i := 0; i < n; i++ {
		cc.columns[i] = nil
	}
	cc.columns = cc.columns[n:]
	cc.cursor -= n
	cc.evicted += n

	util.LogDebugf("ColumnCache: evicted %d columns, %d remaining, cursor now %d", n, len(cc.columns), cc.cursor)
	return n
}

// Reset drops every column and the scale.
func (cc *ColumnCache) Reset() {
	cc.columns = nil
	cc.cursor = 0
	cc.scale = binner.Scale{}
	cc.hasScale = false
	cc.nextKey = 0
	cc.evicted = 0
	cc.appends = 0
}

// Stats returns a summary of the cache.
func (cc *ColumnCache) Stats() Stats {
	s := Stats{
		Columns: len(cc.columns),
		Cursor:  cc.cursor,
		Pending: len(cc.columns) - cc.cursor,
		Evicted: cc.evicted,
		Appends: cc.appends,
		Scale:   cc.scale,
	}
	for _, col := range cc.columns {
		s.Points += col.Total()
	}
	if len(cc.columns) > 0 {
		s.OldestKey = cc.columns[0].Key
		s.NewestKey = cc.columns[len(cc.columns)-1].Key
	}
	return s
}

func (cc *ColumnCache) retainedPoints() []model.DataPoint {
	var points []model.DataPoint
	for _, col := range cc.columns {
		points = append(points, col.Members()...)
	}
	return points
}
