package analyzer

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ParseStats holds statistics for one parsing run
type ParseStats struct {
	totalFiles int64
	failures   int64
	points     int64
	mu         sync.Mutex
	failed     []FailureDetail
}

// FailureDetail records a file that could not be parsed
type FailureDetail struct {
	FilePath string
	Err      error
}

// NewParseStats creates an empty ParseStats
func NewParseStats() *ParseStats {
	return &ParseStats{}
}

// IncrementTotal increases the processed file count
func (ps *ParseStats) IncrementTotal() {
	atomic.AddInt64(&ps.totalFiles, 1)
}

// IncrementFailure counts a failed file and keeps its error
func (ps *ParseStats) IncrementFailure(filePath string, err error) {
	atomic.AddInt64(&ps.failures, 1)

	ps.mu.Lock()
	ps.failed = append(ps.failed, FailureDetail{FilePath: filePath, Err: err})
	ps.mu.Unlock()
}

// AddPoints adds n parsed points
func (ps *ParseStats) AddPoints(n int) {
	atomic.AddInt64(&ps.points, int64(n))
}

func (ps *ParseStats) Total() int64    { return atomic.LoadInt64(&ps.totalFiles) }
func (ps *ParseStats) Failures() int64 { return atomic.LoadInt64(&ps.failures) }
func (ps *ParseStats) Points() int64   { return atomic.LoadInt64(&ps.points) }

// FirstError returns the error of the first failed file, if any
func (ps *ParseStats) FirstError() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.failed) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", ps.failed[0].FilePath, ps.failed[0].Err)
}

// Failed returns a copy of the failure details
func (ps *ParseStats) Failed() []FailureDetail {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]FailureDetail(nil), ps.failed...)
}

func (ps *ParseStats) String() string {
	return fmt.Sprintf("files %d, failed %d, points %d", ps.Total(), ps.Failures(), ps.Points())
}
