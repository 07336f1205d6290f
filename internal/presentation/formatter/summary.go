package formatter

import (
	"fmt"
	"io"
	"strings"
)

// SummaryFormatter prints an overview of the grid instead of every column.
type SummaryFormatter struct{}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

func (f *SummaryFormatter) Format(w io.Writer, view GridView) error {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("Heat Map Binning Summary\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(view.Rows) == 0 {
		sb.WriteString("No data to summarize\n\n")
		sb.WriteString(strings.Repeat("=", 60) + "\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	first, last := view.Rows[0], view.Rows[len(view.Rows)-1]
	if first.Time == last.Time {
		fmt.Fprintf(&sb, "Time Range: %s\n", first.Time)
	} else {
		fmt.Fprintf(&sb, "Time Range: %s to %s\n", first.Time, last.Time)
	}
	fmt.Fprintf(&sb, "Columns: %s (%d ms each)\n", formatNumber(len(view.Rows)), view.IntervalMs)
	fmt.Fprintf(&sb, "Points: %s\n", formatNumber(view.Points))
	fmt.Fprintf(&sb, "Value Range: %d to %d\n\n", view.Min, view.Max)

	busiest, empty := first, 0
	totals := make([]int, len(view.Labels))
	for _, row := range view.Rows {
		if row.Total > busiest.Total {
			busiest = row
		}
		if row.Total == 0 {
			empty++
		}
		for i, c := range row.Counts {
			if i < len(totals) {
				totals[i] += c
			}
		}
	}
	fmt.Fprintf(&sb, "Busiest Column: %s (%s points)\n", busiest.Time, formatNumber(busiest.Total))
	fmt.Fprintf(&sb, "Empty Columns: %s\n\n", formatNumber(empty))

	sb.WriteString("Cluster Distribution:\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	for i := len(view.Labels) - 1; i >= 0; i-- {
		share := 0.0
		if view.Points > 0 {
			share = float64(totals[i]) / float64(view.Points) * 100
		}
		fmt.Fprintf(&sb, "  %-24s %10s  %5.1f%%\n", view.Labels[i], formatNumber(totals[i]), share)
	}

	sb.WriteString("\n" + strings.Repeat("=", 60) + "\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
