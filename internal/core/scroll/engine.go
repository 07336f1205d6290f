package scroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/cache"
	"github.com/penwyp/go-heatmap-monitor/internal/core/constants"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/data/source"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// Direction tells the renderer which end of the window changed.
type Direction int

const (
	// Forward: Column was appended at the new end.
	Forward Direction = iota
	// Back: Column was inserted at the old end by StepBack.
	Back
	// Cleared: the window was emptied by Reset. Column is nil.
	Cleared
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Back:
		return "back"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Update is handed to the renderer after every window change.
type Update struct {
	Column    *model.Column
	Direction Direction
	Window    []*model.Column // copy, oldest first
	Cursor    int
}

// Renderer draws window changes. Render runs with the engine locked and must not call
// back into the engine.
type Renderer interface {
	Render(update Update)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(update Update)

func (f RendererFunc) Render(update Update) { f(update) }

// Snapshot is a consistent view of the engine for status displays.
type Snapshot struct {
	State      model.PlayState
	Interval   time.Duration
	Cursor     int
	MaxVisible int
	Window     []*model.Column
	Cache      cache.Stats
	Retrieving bool
	LastErr    error
}

var errStaleGeneration = errors.New("engine was reset while fetching")

// Engine reveals cached columns on a timer into a bounded window.
// All state is guarded by one mutex; each Playing run owns one ticker goroutine and
// ticks from a superseded run are ignored.
type Engine struct {
	cfg        model.Config
	maxVisible int
	retriever  *source.Retriever
	renderer   Renderer

	mu         sync.Mutex
	cache      *cache.ColumnCache
	window     *Window
	state      model.PlayState
	interval   time.Duration
	runID      uint64
	stop       chan struct{}
	generation uint64
	poll       *source.Poll
	lastErr    error

	wg sync.WaitGroup
}

// NewEngine creates a stopped engine. cc may be nil for an empty cache, retriever may be
// nil when no data source backs the engine.
func NewEngine(cfg model.Config, cc *cache.ColumnCache, retriever *source.Retriever, renderer Renderer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cc == nil {
		cc = cache.NewColumnCache(cfg)
	}
	if renderer == nil {
		renderer = RendererFunc(func(Update) {})
	}
	maxVisible := cfg.MaxVisibleColumns()
	return &Engine{
		cfg:        cfg,
		maxVisible: maxVisible,
		retriever:  retriever,
		renderer:   renderer,
		cache:      cc,
		window:     NewWindow(maxVisible),
		state:      model.StateStopped,
		interval:   cfg.TickInterval,
	}, nil
}

// Start begins ticking at interval from any state.
func (e *Engine) Start(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if interval < 0 {
		interval = 0
	}
	e.interval = interval
	e.state = model.StatePlaying
	e.restartLocked()
	util.LogDebugf("Scroll engine started, interval %v", interval)
}

// Pause stops ticking and keeps the window and cursor. Only valid while Playing.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.StatePlaying {
		return false
	}
	e.state = model.StatePaused
	e.stopRunLocked()
	return true
}

// Resume restarts ticking at the last interval. Only valid while Paused.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.StatePaused {
		return false
	}
	e.state = model.StatePlaying
	e.restartLocked()
	return true
}

// Play is an alias for Resume.
func (e *Engine) Play() bool { return e.Resume() }

// Toggle pauses a playing engine and resumes a paused one.
func (e *Engine) Toggle() model.PlayState {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case model.StatePlaying:
		e.state = model.StatePaused
		e.stopRunLocked()
	case model.StatePaused:
		e.state = model.StatePlaying
		e.restartLocked()
	}
	return e.state
}

// SetSpeed shortens the interval by delta (a negative delta slows down), floored at zero.
// A playing engine switches to the new interval without touching the window.
func (e *Engine) SetSpeed(delta time.Duration) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.interval -= delta
	if e.interval < 0 {
		e.interval = 0
	}
	if e.state == model.StatePlaying {
		e.restartLocked()
	}
	return e.interval
}

// Stop halts ticking, cancels any retrieval and waits for the ticker goroutine to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.state = model.StateStopped
	e.stopRunLocked()
	if e.poll != nil {
		e.poll.Cancel()
		e.poll = nil
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// Reset clears the cache and the window. Data from retrievals started before the reset
// is discarded. The play state is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	if e.poll != nil {
		e.poll.Cancel()
		e.poll = nil
	}
	e.cache.Reset()
	e.window.Reset()
	e.lastErr = nil
	e.renderLocked(nil, Cleared)
}

// Tick performs one scroll step. It only acts while Playing.
func (e *Engine) Tick() bool {
	return e.tick(0)
}

// StepForward reveals the next column regardless of the play state.
// It does not start a retrieval.
func (e *Engine) StepForward() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cache.HasUnrevealed() {
		return false
	}
	return e.revealLocked()
}

// StepBack moves the window one column into already revealed history.
func (e *Engine) StepBack() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.cache.Cursor() - e.maxVisible - 1
	if idx < 0 {
		return false
	}
	col := e.cache.Column(idx)
	if col == nil || !e.cache.Retreat() {
		return false
	}
	e.window.ShiftBack(col)
	e.renderLocked(col, Back)
	return true
}

// EnsureData blocks until unrevealed columns exist, the retrieval gives up, or ctx is done.
// A poll abandoned because ctx is done is canceled.
func (e *Engine) EnsureData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to ensure data: %w", err)
	}

	e.mu.Lock()
	if e.cache.HasUnrevealed() {
		e.mu.Unlock()
		return nil
	}
	poll := e.pollLocked()
	e.mu.Unlock()

	if poll == nil {
		return &model.DataUnavailableError{}
	}
	poll.Run()
	if err := poll.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			poll.Cancel()
		}
		return fmt.Errorf("failed to ensure data: %w", err)
	}
	return nil
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		State:      e.state,
		Interval:   e.interval,
		Cursor:     e.cache.Cursor(),
		MaxVisible: e.maxVisible,
		Window:     e.window.Columns(),
		Cache:      e.cache.Stats(),
		Retrieving: e.poll != nil && !e.poll.Finished(),
		LastErr:    e.lastErr,
	}
}

// State returns the play state.
func (e *Engine) State() model.PlayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Interval returns the current tick interval.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

func (e *Engine) tick(run uint64) bool {
	e.mu.Lock()
	if !e.activeLocked(run) {
		e.mu.Unlock()
		return false
	}

	if !e.cache.HasUnrevealed() {
		poll := e.pollLocked()
		e.mu.Unlock()
		if poll == nil {
			return false
		}
		// The first attempt runs here; later ones are scheduled by the poll itself
		poll.Run()

		e.mu.Lock()
		if !e.activeLocked(run) || !e.cache.HasUnrevealed() {
			e.mu.Unlock()
			return false
		}
	}

	revealed := e.revealLocked()
	e.mu.Unlock()
	return revealed
}

func (e *Engine) activeLocked(run uint64) bool {
	if e.state != model.StatePlaying {
		return false
	}
	return run == 0 || run == e.runID
}

func (e *Engine) revealLocked() bool {
	col, err := e.cache.RevealNext()
	if err != nil {
		e.lastErr = err
		util.LogDebugf("Reveal skipped: %v", err)
		return false
	}
	e.window.PushNew(col)
	if removed := e.cache.EvictIfOverLimit(e.cfg.CacheLimit, e.maxVisible); removed > 0 {
		util.LogDebugf("Evicted %d columns, cursor now %d", removed, e.cache.Cursor())
	}
	e.renderLocked(col, Forward)
	return true
}

func (e *Engine) renderLocked(col *model.Column, dir Direction) {
	defer func() {
		if r := recover(); r != nil {
			util.LogErrorf("Renderer panicked: %v", r)
		}
	}()
	e.renderer.Render(Update{
		Column:    col,
		Direction: dir,
		Window:    e.window.Columns(),
		Cursor:    e.cache.Cursor(),
	})
}

// pollLocked returns the in-flight poll or starts a new one. A finished poll's
// failure is recorded before it is replaced.
func (e *Engine) pollLocked() *source.Poll {
	if e.retriever == nil {
		return nil
	}
	if e.poll != nil {
		if !e.poll.Finished() {
			return e.poll
		}
		if err := e.poll.Err(); err != nil && !errors.Is(err, source.ErrPollCanceled) {
			e.lastErr = err
			util.LogWarnf("Retrieval finished without data: %v", err)
		}
	}
	e.poll = e.retriever.NewPoll(&engineSink{engine: e, generation: e.generation})
	return e.poll
}

func (e *Engine) restartLocked() {
	e.stopRunLocked()

	period := e.interval
	if period < constants.MinTickInterval {
		period = constants.MinTickInterval
	}

	e.runID++
	stop := make(chan struct{})
	e.stop = stop
	e.wg.Add(1)
	go e.run(e.runID, stop, period)
}

func (e *Engine) stopRunLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) run(id uint64, stop <-chan struct{}, period time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tick(id)
		}
	}
}

// engineSink feeds a poll into the cache of the generation that started it.
type engineSink struct {
	engine     *Engine
	generation uint64
}

func (s *engineSink) HasUnrevealed() bool {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if s.engine.generation != s.generation {
		// Stale polls stop at their next check
		return true
	}
	return s.engine.cache.HasUnrevealed()
}

func (s *engineSink) AppendRawBatch(points []model.DataPoint) (int, error) {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if s.engine.generation != s.generation {
		return 0, errStaleGeneration
	}
	return s.engine.cache.AppendRawBatch(points)
}
