package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

type TableFormatter struct {
	minWidth int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{minWidth: 5}
}

// Format prints one row per column; cluster ranges run left to right from the lowest.
func (f *TableFormatter) Format(w io.Writer, view GridView) error {
	headers := append([]string{"Time", "Total"}, view.Labels...)
	rows := make([][]string, 0, len(view.Rows)+1)
	totals := make([]int, len(view.Labels))
	grand := 0

	for _, row := range view.Rows {
		values := []string{row.Time, formatNumber(row.Total)}
		for i, c := range row.Counts {
			values = append(values, formatNumber(c))
			if i < len(totals) {
				totals[i] += c
			}
		}
		grand += row.Total
		rows = append(rows, values)
	}

	totalRow := []string{"Total", formatNumber(grand)}
	for _, t := range totals {
		totalRow = append(totalRow, formatNumber(t))
	}

	widths := f.calculateColumnWidths(headers, append(rows, totalRow))

	var sb strings.Builder
	f.printBorder(&sb, widths, "top")
	f.printRow(&sb, headers, widths)
	f.printBorder(&sb, widths, "middle")
	for _, values := range rows {
		f.printRow(&sb, values, widths)
	}
	f.printBorder(&sb, widths, "middle")
	f.printRow(&sb, totalRow, widths)
	f.printBorder(&sb, widths, "bottom")

	_, err := io.WriteString(w, sb.String())
	return err
}

// calculateColumnWidths determines optimal width for each column based on content
func (f *TableFormatter) calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, values := range rows {
		for i, value := range values {
			if i < len(widths) && util.GetDisplayWidth(value) > widths[i] {
				widths[i] = util.GetDisplayWidth(value)
			}
		}
	}
	// Apply minimum widths for readability
	for i := range widths {
		if widths[i] < f.minWidth {
			widths[i] = f.minWidth
		}
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(sb *strings.Builder, widths []int, borderType string) {
	var left, middle, right, separator string

	switch borderType {
	case "top":
		left, middle, right, separator = "┌", "┬", "┐", "─"
	case "middle":
		left, middle, right, separator = "├", "┼", "┤", "─"
	case "bottom":
		left, middle, right, separator = "└", "┴", "┘", "─"
	}

	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat(separator, width+2)) // +2 for padding spaces
		if i < len(widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right + "\n")
}

// printRow prints a row; the time column is left-aligned, counts are right-aligned
func (f *TableFormatter) printRow(sb *strings.Builder, values []string, widths []int) {
	sb.WriteString("│")
	for i, value := range values {
		fmt.Fprintf(sb, " %s │", util.PadString(value, widths[i], i == 0))
	}
	sb.WriteString("\n")
}

func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}

	return string(result)
}
