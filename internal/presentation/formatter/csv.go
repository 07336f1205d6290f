package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, view GridView) error {
	cw := csv.NewWriter(w)

	headers := append([]string{"Key", "Time", "Total"}, view.Labels...)
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, row := range view.Rows {
		record := []string{
			strconv.FormatFloat(row.Key, 'f', -1, 64),
			row.Time,
			fmt.Sprintf("%d", row.Total),
		}
		for _, c := range row.Counts {
			record = append(record, fmt.Sprintf("%d", c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
