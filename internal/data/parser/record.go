package parser

import (
	"bytes"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// flexString accepts a JSON string, number or null and keeps its textual form.
// Search results encode every field as a string while hand written files tend to use numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected scalar, got %s", data[:1])
	default:
		*f = flexString(data)
	}
	return nil
}

// record is one input line. The short names are what the heat map client consumes;
// the long ones are the raw search fields the results endpoint maps from.
type record struct {
	Key       flexString `json:"key"`
	Value     flexString `json:"value"`
	Name      flexString `json:"name"`
	Time      flexString `json:"time"`
	UnixTime  flexString `json:"unixtime"`
	Hits      flexString `json:"cumulative_hits"`
	Processor flexString `json:"processor"`
}

func (r record) raw() model.RawPoint {
	rp := model.RawPoint{
		Key:   string(r.Key),
		Value: string(r.Value),
		Name:  string(r.Name),
		Time:  string(r.Time),
	}
	if rp.Key == "" {
		rp.Key = string(r.UnixTime)
	}
	if rp.Value == "" {
		rp.Value = string(r.Hits)
	}
	if rp.Name == "" {
		rp.Name = string(r.Processor)
	}
	return rp
}
