package formatter

import (
	"fmt"
	"io"

	"github.com/penwyp/go-heatmap-monitor/internal/core/binner"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// ColumnRow is one binned column flattened for output
type ColumnRow struct {
	Key    float64 `json:"key"`
	Time   string  `json:"time"`
	Total  int     `json:"total"`
	Counts []int   `json:"counts"`
}

// GridView is the output shape of a binned grid
type GridView struct {
	Labels     []string    `json:"labels"`
	IntervalMs int64       `json:"intervalMs"`
	Min        int64       `json:"min"`
	Max        int64       `json:"max"`
	Points     int         `json:"points"`
	Rows       []ColumnRow `json:"columns"`
}

// Formatter writes a grid view
type Formatter interface {
	Format(w io.Writer, view GridView) error
}

// NewGridView flattens grid, formatting column keys with layout
func NewGridView(grid *binner.Grid, layout string) GridView {
	view := GridView{
		Labels:     grid.Scale.Labels(),
		IntervalMs: grid.IntervalMs,
		Min:        grid.Scale.Min,
		Max:        grid.Scale.Max,
		Points:     grid.Total(),
		Rows:       make([]ColumnRow, 0, grid.Len()),
	}
	for _, col := range grid.Columns {
		counts := make([]int, len(col.Clusters))
		for i, c := range col.Clusters {
			counts[i] = c.Count
		}
		view.Rows = append(view.Rows, ColumnRow{
			Key:    col.Key,
			Time:   util.FormatColumnKey(col.Key, layout),
			Total:  col.Total(),
			Counts: counts,
		})
	}
	return view
}

// New returns the formatter for an output name
func New(format string) (Formatter, error) {
	switch format {
	case "table":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use table, json, csv or summary)", format)
	}
}
