package binner

import (
	"fmt"
	"math"
	"testing"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestNewScale(t *testing.T) {
	tests := []struct {
		name     string
		values   []int64
		clusters int
		expected Scale
	}{
		{"empty", nil, 4, Scale{Clusters: 4, IntervalSize: 1}},
		{"zero span", []int64{3, 3, 3}, 4, Scale{Min: 3, Max: 3, IntervalSize: 1, Clusters: 4}},
		{"exact split", []int64{10, 30, 20}, 2, Scale{Min: 10, Max: 30, IntervalSize: 10, Clusters: 2}},
		{"rounded up", []int64{0, 10}, 3, Scale{Min: 0, Max: 10, IntervalSize: 4, Clusters: 3}},
		{"negative values", []int64{-50, 50}, 4, Scale{Min: -50, Max: 50, IntervalSize: 25, Clusters: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]model.DataPoint, len(tt.values))
			for i, v := range tt.values {
				points[i] = model.DataPoint{Timestamp: float64(i), Value: v}
			}
			assert.Equal(t, tt.expected, NewScale(points, tt.clusters))
		})
	}
}

func TestScaleIndex(t *testing.T) {
	s := Scale{Min: 0, Max: 10, IntervalSize: 4, Clusters: 3}

	assert.Equal(t, 0, s.Index(0))
	assert.Equal(t, 0, s.Index(3))
	assert.Equal(t, 1, s.Index(4))
	assert.Equal(t, 2, s.Index(8))
	assert.Equal(t, 2, s.Index(10))
	// outside the scale
	assert.Equal(t, 0, s.Index(-5))
	assert.Equal(t, 2, s.Index(400))

	exact := Scale{Min: 10, Max: 30, IntervalSize: 10, Clusters: 2}
	assert.Equal(t, 1, exact.Index(30), "upper boundary clamps to the last cluster")
}

func TestScaleLabels(t *testing.T) {
	s := Scale{Min: 0, Max: 10, IntervalSize: 4, Clusters: 3}
	assert.Equal(t, []string{"0 - 4", "4 - 8", "8 - 10"}, s.Labels())
	assert.True(t, s.Contains(10))
	assert.False(t, s.Contains(11))
}

func TestScaleFullInt64Range(t *testing.T) {
	points := []model.DataPoint{{Value: math.MinInt64}, {Timestamp: 1, Value: math.MaxInt64}}

	single := NewScale(points, 1)
	assert.Equal(t, int64(math.MaxInt64), single.IntervalSize, "interval size saturates")
	assert.Equal(t, 0, single.Index(math.MaxInt64))
	assert.Equal(t, []string{fmt.Sprintf("%d - %d", int64(math.MinInt64), int64(math.MaxInt64))}, single.Labels())

	quad := NewScale(points, 4)
	assert.Equal(t, int64(1<<62), quad.IntervalSize)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{
		quad.Index(math.MinInt64), quad.Index(-1), quad.Index(0), quad.Index(math.MaxInt64),
	})
	from, to := quad.Bounds(3)
	assert.Equal(t, int64(1<<62), from)
	assert.Equal(t, int64(math.MaxInt64), to)
}
