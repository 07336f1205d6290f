package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawPoint is a measurement as delivered by a search result: every field is string encoded.
// Key is an epoch timestamp in seconds, fractional part allowed.
type RawPoint struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	Time  string `json:"time,omitempty"`
}

// DataPoint is an ingested measurement. Timestamp is in milliseconds.
type DataPoint struct {
	Timestamp float64 `json:"timestamp"`
	Value     int64   `json:"value"`
	Name      string  `json:"name,omitempty"`
}

// ToDataPoint converts the string encoded record into a DataPoint.
// The key is scaled from seconds to milliseconds and the value is parsed as an integer;
// a decimal value is truncated toward zero.
func (rp RawPoint) ToDataPoint() (DataPoint, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(rp.Key), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return DataPoint{}, &MalformedInputError{Field: "key", Input: rp.Key, Reason: "timestamp is not a finite number", Err: err}
	}

	value, err := parseIntValue(rp.Value)
	if err != nil {
		return DataPoint{}, &MalformedInputError{Field: "value", Input: rp.Value, Reason: "value is not a number", Err: err}
	}

	return DataPoint{
		Timestamp: seconds * 1000,
		Value:     value,
		Name:      rp.Name,
	}, nil
}

func parseIntValue(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("value %q out of range", s)
	}
	return int64(math.Trunc(f)), nil
}

// ToDataPoints converts a batch of raw records, failing on the first malformed one.
func ToDataPoints(raw []RawPoint) ([]DataPoint, error) {
	points := make([]DataPoint, 0, len(raw))
	for i, rp := range raw {
		p, err := rp.ToDataPoint()
		if err != nil {
			if mie, ok := err.(*MalformedInputError); ok {
				mie.Index = i
			}
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Cluster is one value range bucket inside a column.
type Cluster struct {
	RangeLabel string      `json:"rangeLabel"`
	Count      int         `json:"count"`
	Members    []DataPoint `json:"members"`
}

// Add records a point in the cluster, keeping Count equal to len(Members).
func (c *Cluster) Add(p DataPoint) {
	c.Members = append(c.Members, p)
	c.Count = len(c.Members)
}

// Reset empties the cluster while keeping its label.
func (c *Cluster) Reset() {
	c.Members = nil
	c.Count = 0
}

// Column is one time bucket of clustered data. Key is the bucket start time in milliseconds.
// Clusters are ordered from the lowest value range to the highest.
type Column struct {
	ID       string    `json:"id"`
	Key      float64   `json:"key"`
	Clusters []Cluster `json:"clusters"`
}

// Total returns the number of points in the column.
func (c *Column) Total() int {
	total := 0
	for i := range c.Clusters {
		total += c.Clusters[i].Count
	}
	return total
}

// MaxCount returns the largest cluster count in the column.
func (c *Column) MaxCount() int {
	maxCount := 0
	for i := range c.Clusters {
		if c.Clusters[i].Count > maxCount {
			maxCount = c.Clusters[i].Count
		}
	}
	return maxCount
}

// Members returns every point of the column in cluster order.
func (c *Column) Members() []DataPoint {
	var members []DataPoint
	for i := range c.Clusters {
		members = append(members, c.Clusters[i].Members...)
	}
	return members
}
