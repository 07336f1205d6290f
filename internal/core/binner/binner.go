package binner

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// Grid is the binned form of a point batch: one column per time bucket from Origin on,
// every column split by the same Scale.
type Grid struct {
	Columns    []*model.Column
	Origin     float64 // key of the first column (ms)
	IntervalMs int64
	Scale      Scale
}

// Len returns the number of columns.
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Columns)
}

// Total returns the number of binned points.
func (g *Grid) Total() int {
	total := 0
	for _, col := range g.Columns {
		total += col.Total()
	}
	return total
}

// MaxColumns bounds the columns one grid may span, gap columns included.
const MaxColumns = 1 << 22

// ColumnIndex returns the bucket index of timestamp relative to the grid origin. Buckets before
// the origin or not a number give -1, buckets beyond MaxColumns give MaxColumns.
func (g *Grid) ColumnIndex(timestamp float64) int {
	bucket := g.bucket(timestamp)
	switch {
	case math.IsNaN(bucket) || bucket < 0:
		return -1
	case bucket > MaxColumns:
		return MaxColumns
	}
	return int(bucket)
}

func (g *Grid) bucket(timestamp float64) float64 {
	return math.Floor((timestamp - g.Origin) / float64(g.IntervalMs))
}

// Bin quantizes points into a grid of columnIntervalMs wide columns with clusterCount value clusters.
// Points must be ascending by timestamp.
func Bin(points []model.DataPoint, clusterCount int, columnIntervalMs int64) (*Grid, error) {
	skeleton, err := BuildSkeleton(points, clusterCount, columnIntervalMs)
	if err != nil {
		return nil, err
	}
	return Fill(skeleton, points)
}

// BuildSkeleton allocates the empty grid spanning the points: every column carries
// clusterCount labelled clusters with zero counts.
func BuildSkeleton(points []model.DataPoint, clusterCount int, columnIntervalMs int64) (*Grid, error) {
	if err := validateParams(clusterCount, columnIntervalMs); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return &Grid{IntervalMs: columnIntervalMs, Scale: Scale{Clusters: clusterCount, IntervalSize: 1}}, nil
	}
	return BuildSkeletonOn(points, columnIntervalMs, points[0].Timestamp, NewScale(points, clusterCount))
}

// BuildSkeletonOn allocates columns on an existing time lattice and value scale. The first column
// is the bucket of the first point relative to origin, the last one the bucket of the last point.
func BuildSkeletonOn(points []model.DataPoint, columnIntervalMs int64, origin float64, scale Scale) (*Grid, error) {
	if err := validateParams(scale.Clusters, columnIntervalMs); err != nil {
		return nil, err
	}

	grid := &Grid{IntervalMs: columnIntervalMs, Scale: scale, Origin: origin}
	if len(points) == 0 {
		return grid, nil
	}

	if !isFinite(points[0].Timestamp) || !isFinite(points[len(points)-1].Timestamp) {
		return nil, &model.MalformedInputError{Index: 0, Field: "timestamp", Reason: "batch bounds are not finite"}
	}

	first := grid.bucket(points[0].Timestamp)
	last := grid.bucket(points[len(points)-1].Timestamp)
	if first < 0 {
		return nil, &model.MalformedInputError{
			Index:  0,
			Field:  "timestamp",
			Input:  formatMillis(points[0].Timestamp),
			Reason: fmt.Sprintf("precedes grid origin %s", formatMillis(origin)),
		}
	}
	if last < first {
		return nil, &model.MalformedInputError{
			Index:  len(points) - 1,
			Field:  "timestamp",
			Input:  formatMillis(points[len(points)-1].Timestamp),
			Reason: "last point precedes first point",
		}
	}
	if last >= MaxColumns {
		return nil, &model.MalformedInputError{
			Index: len(points) - 1,
			Field: "timestamp",
			Input: formatMillis(points[len(points)-1].Timestamp),
			Reason: fmt.Sprintf("needs %.0f columns of %dms from %s, limit is %d",
				last+1, columnIntervalMs, formatMillis(origin), MaxColumns),
		}
	}

	grid.Origin = origin + first*float64(columnIntervalMs)
	labels := scale.Labels()
	count := int(last-first) + 1
	grid.Columns = make([]*model.Column, count)
	for i := range grid.Columns {
		grid.Columns[i] = NewColumn(grid.Origin+float64(i)*float64(columnIntervalMs), labels)
	}
	return grid, nil
}

// NewColumn returns an empty column with one cluster per label.
func NewColumn(key float64, labels []string) *model.Column {
	col := &model.Column{
		ID:       uuid.NewString(),
		Key:      key,
		Clusters: make([]model.Cluster, len(labels)),
	}
	for j, label := range labels {
		col.Clusters[j] = model.Cluster{RangeLabel: label}
	}
	return col
}

// Fill places every point into its column and cluster. A point outside the skeleton or a
// timestamp lower than its predecessor fails the whole fill; the skeleton may then be partially filled.
func Fill(skeleton *Grid, points []model.DataPoint) (*Grid, error) {
	if skeleton == nil {
		return nil, fmt.Errorf("fill: nil skeleton")
	}
	if len(points) == 0 {
		return skeleton, nil
	}
	if len(skeleton.Columns) == 0 {
		return nil, &model.MalformedInputError{Index: 0, Field: "timestamp", Input: formatMillis(points[0].Timestamp), Reason: "grid has no columns"}
	}

	prev := math.Inf(-1)
	for i, p := range points {
		if math.IsNaN(p.Timestamp) || p.Timestamp < prev {
			return nil, &model.MalformedInputError{
				Index:  i,
				Field:  "timestamp",
				Input:  formatMillis(p.Timestamp),
				Reason: fmt.Sprintf("not ascending (previous %s)", formatMillis(prev)),
			}
		}
		prev = p.Timestamp

		idx := skeleton.ColumnIndex(p.Timestamp)
		if idx < 0 || idx >= len(skeleton.Columns) {
			return nil, &model.MalformedInputError{
				Index:  i,
				Field:  "timestamp",
				Input:  formatMillis(p.Timestamp),
				Reason: fmt.Sprintf("column %d outside grid of %d columns", idx, len(skeleton.Columns)),
			}
		}

		col := skeleton.Columns[idx]
		col.Clusters[skeleton.Scale.Index(p.Value)].Add(p)
	}
	return skeleton, nil
}

// Rebin relabels columns for scale and redistributes their members.
func Rebin(columns []*model.Column, scale Scale) {
	labels := scale.Labels()
	for _, col := range columns {
		members := col.Members()
		if len(col.Clusters) != len(labels) {
			col.Clusters = make([]model.Cluster, len(labels))
		}
		for j := range col.Clusters {
			col.Clusters[j].Reset()
			col.Clusters[j].RangeLabel = labels[j]
		}
		// Cluster order within a column is not time order; restore it so members stay ascending.
		sortByTimestamp(members)
		for _, p := range members {
			col.Clusters[scale.Index(p.Value)].Add(p)
		}
	}
}

func validateParams(clusterCount int, columnIntervalMs int64) error {
	if clusterCount <= 0 {
		return &model.ConfigurationError{Field: "clusters", Reason: fmt.Sprintf("must be positive, got %d", clusterCount)}
	}
	if columnIntervalMs <= 0 {
		return &model.ConfigurationError{Field: "columnIntervalMs", Reason: fmt.Sprintf("must be positive, got %d", columnIntervalMs)}
	}
	return nil
}

func formatMillis(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sortByTimestamp(points []model.DataPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
}
