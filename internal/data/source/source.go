package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// DataSource supplies raw points on demand. An empty batch with a nil error means
// nothing new is available yet.
type DataSource interface {
	FetchMore(ctx context.Context) ([]model.DataPoint, error)
}

// SliceSource pages through a fixed, timestamp ordered point set, count points at a time.
type SliceSource struct {
	points []model.DataPoint
	count  int

	mu     sync.Mutex
	offset int
}

// NewSliceSource returns a source paging points count at a time. count <= 0 returns
// everything in one batch.
func NewSliceSource(points []model.DataPoint, count int) *SliceSource {
	if count <= 0 {
		count = len(points)
	}
	return &SliceSource{points: points, count: count}
}

func (s *SliceSource) FetchMore(ctx context.Context) ([]model.DataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offset >= len(s.points) {
		return nil, nil
	}
	end := s.offset + s.count
	if end > len(s.points) {
		end = len(s.points)
	}
	batch := make([]model.DataPoint, end-s.offset)
	copy(batch, s.points[s.offset:end])
	s.offset = end
	return batch, nil
}

// Remaining returns the number of points not yet handed out.
func (s *SliceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points) - s.offset
}

// GeneratorConfig shapes the synthetic latency stream.
type GeneratorConfig struct {
	Start           time.Time
	ColumnInterval  time.Duration
	ColumnsPerBatch int
	PointsPerColumn int
	MaxValue        int64
	Latency         time.Duration // simulated fetch delay
	Batches         int           // 0 for an endless stream
	Seed            int64
}

// GeneratorSource produces randomized latency data: a noisy body under MaxValue and a
// hot band just above it, so the top clusters stay busy like a saturated service.
type GeneratorSource struct {
	cfg GeneratorConfig

	mu      sync.Mutex
	rnd     *rand.Rand
	next    time.Time
	batches int
}

// NewGeneratorSource creates a generator, filling zero config fields with demo defaults.
func NewGeneratorSource(cfg GeneratorConfig) *GeneratorSource {
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().Truncate(time.Second)
	}
	if cfg.ColumnInterval <= 0 {
		cfg.ColumnInterval = time.Second
	}
	if cfg.ColumnsPerBatch <= 0 {
		cfg.ColumnsPerBatch = 100
	}
	if cfg.PointsPerColumn <= 0 {
		cfg.PointsPerColumn = 40
	}
	if cfg.MaxValue <= 0 {
		cfg.MaxValue = 50
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &GeneratorSource{
		cfg:  cfg,
		rnd:  rand.New(rand.NewSource(cfg.Seed)),
		next: cfg.Start,
	}
}

func (g *GeneratorSource) FetchMore(ctx context.Context) ([]model.DataPoint, error) {
	if g.cfg.Latency > 0 {
		timer := time.NewTimer(g.cfg.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cfg.Batches > 0 && g.batches >= g.cfg.Batches {
		return nil, nil
	}
	g.batches++

	step := g.cfg.ColumnInterval / time.Duration(g.cfg.PointsPerColumn)
	if step <= 0 {
		step = time.Millisecond
	}
	hot := g.cfg.MaxValue + g.cfg.MaxValue*3/10

	points := make([]model.DataPoint, 0, g.cfg.ColumnsPerBatch*g.cfg.PointsPerColumn)
	for c := 0; c < g.cfg.ColumnsPerBatch; c++ {
		columnStart := g.next
		low := int64(g.rnd.Intn(2) + 1)
		for i := 0; i < g.cfg.PointsPerColumn; i++ {
			var value int64
			if g.rnd.Intn(10) < 3 {
				value = hot - 5*low*int64(g.rnd.Intn(2))
			} else {
				value = g.rnd.Int63n(g.cfg.MaxValue)
			}
			ts := columnStart.Add(time.Duration(i) * step)
			points = append(points, model.DataPoint{
				Timestamp: float64(ts.UnixMilli()),
				Value:     value,
			})
		}
		g.next = columnStart.Add(g.cfg.ColumnInterval)
	}
	return points, nil
}
