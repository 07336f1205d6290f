package binner

import (
	"fmt"
	"math"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// Scale is the global value quantization shared by every column of a grid.
// Cluster j covers [Min + j*IntervalSize, Min + (j+1)*IntervalSize), the last one is capped at Max.
type Scale struct {
	Min          int64 `json:"min"`
	Max          int64 `json:"max"`
	IntervalSize int64 `json:"intervalSize"`
	Clusters     int   `json:"clusters"`
}

// NewScale scans points once for their value range and splits it into clusters buckets.
// A zero span degenerates to an interval size of 1.
func NewScale(points []model.DataPoint, clusters int) Scale {
	s := Scale{Clusters: clusters, IntervalSize: 1}
	if len(points) == 0 || clusters <= 0 {
		return s
	}

	minValue, maxValue := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		if p.Value < minValue {
			minValue = p.Value
		}
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}

	s.Min = minValue
	s.Max = maxValue
	if span := offset(minValue, maxValue); span > 0 {
		size := span / uint64(clusters)
		if span%uint64(clusters) != 0 {
			size++
		}
		if size > math.MaxInt64 {
			size = math.MaxInt64
		}
		s.IntervalSize = int64(size)
	}
	return s
}

// offset returns to - from for from <= to. The difference of any two int64 fits in a uint64.
func offset(from, to int64) uint64 {
	return uint64(to) - uint64(from)
}

// shift returns base + off, saturating at math.MaxInt64.
func shift(base int64, off uint64) int64 {
	if off > offset(base, math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(uint64(base) + off)
}

// Index returns the cluster a value falls into. Values on the upper boundary land in the
// last cluster; values outside the scale clamp to the nearest end.
func (s Scale) Index(value int64) int {
	if s.Clusters <= 0 {
		return 0
	}
	size := s.IntervalSize
	if size <= 0 {
		size = 1
	}
	if value < s.Min {
		return 0
	}
	idx := offset(s.Min, value) / uint64(size)
	if idx >= uint64(s.Clusters) {
		return s.Clusters - 1
	}
	return int(idx)
}

// Contains reports whether value is inside [Min, Max].
func (s Scale) Contains(value int64) bool {
	return value >= s.Min && value <= s.Max
}

// Bounds returns the value interval of cluster j. The last cluster always ends at Max, which
// also covers interval sizes capped at math.MaxInt64.
func (s Scale) Bounds(j int) (from, to int64) {
	size := uint64(max(s.IntervalSize, 1))
	step := uint64(j) * size
	if j > 0 && step/uint64(j) != size {
		step = math.MaxUint64
	}
	from = shift(s.Min, step)
	to = shift(from, size)
	if j == s.Clusters-1 {
		to = s.Max
	}
	return from, to
}

// Labels returns the range label of every cluster, lowest first.
func (s Scale) Labels() []string {
	labels := make([]string, s.Clusters)
	for j := range labels {
		from, to := s.Bounds(j)
		labels[j] = fmt.Sprintf("%d - %d", from, to)
	}
	return labels
}
