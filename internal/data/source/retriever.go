package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// ErrPollCanceled is the result of a poll stopped through Cancel.
var ErrPollCanceled = errors.New("retrieval canceled")

// Sink receives fetched batches. HasUnrevealed stops the poll once it reports true.
type Sink interface {
	HasUnrevealed() bool
	AppendRawBatch(points []model.DataPoint) (int, error)
}

// Retriever wraps a DataSource with bounded polling.
type Retriever struct {
	Source     DataSource
	MaxRetries int // 0 polls until data arrives or the poll is canceled
	Timeout    time.Duration
}

// NewRetriever creates a retriever polling src
func NewRetriever(src DataSource, maxRetries int, timeout time.Duration) *Retriever {
	return &Retriever{Source: src, MaxRetries: maxRetries, Timeout: timeout}
}

// NewPoll prepares a poll feeding sink. Nothing is fetched until Run.
func (r *Retriever) NewPoll(sink Sink) *Poll {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poll{
		retriever: r,
		sink:      sink,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Poll is one bounded retrieval. Each attempt after the first is scheduled with
// time.AfterFunc, so a waiting poll holds no goroutine.
type Poll struct {
	retriever *Retriever
	sink      Sink
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	mu       sync.Mutex
	started  bool
	finished bool
	attempts int
	timer    *time.Timer
	lastErr  error
	err      error
}

// Run performs the first attempt on the calling goroutine. Later calls are no-ops.
func (p *Poll) Run() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.attempt()
}

func (p *Poll) attempt() {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	if p.sink.HasUnrevealed() {
		p.finish(nil)
		return
	}

	p.mu.Lock()
	p.attempts++
	attempt := p.attempts
	p.mu.Unlock()

	batch, err := p.retriever.Source.FetchMore(p.ctx)
	if p.ctx.Err() != nil {
		p.finish(ErrPollCanceled)
		return
	}

	if err != nil {
		util.LogWarnf("Fetch attempt %d failed: %v", attempt, err)
		p.setLastErr(err)
	} else if len(batch) > 0 {
		added, err := p.sink.AppendRawBatch(batch)
		if err != nil {
			util.LogWarnf("Rejected batch of %d points on attempt %d: %v", len(batch), attempt, err)
			p.setLastErr(err)
		} else {
			util.LogDebugf("Attempt %d appended %d columns from %d points", attempt, added, len(batch))
		}
	}

	if p.sink.HasUnrevealed() {
		p.finish(nil)
		return
	}

	if max := p.retriever.MaxRetries; max > 0 && attempt >= max {
		p.mu.Lock()
		lastErr := p.lastErr
		p.mu.Unlock()
		p.finish(&model.DataUnavailableError{Attempts: attempt, LastErr: lastErr})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.timer = time.AfterFunc(p.retriever.Timeout, p.attempt)
}

func (p *Poll) setLastErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func (p *Poll) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.cancel()
	close(p.done)
}

// Cancel stops the poll. A fetch in progress sees its context canceled.
func (p *Poll) Cancel() {
	p.finish(ErrPollCanceled)
}

// Done is closed once the poll has finished.
func (p *Poll) Done() <-chan struct{} { return p.done }

// Finished reports whether the poll has finished.
func (p *Poll) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// Err returns nil when data became available, a *model.DataUnavailableError when the
// attempts ran out, or ErrPollCanceled. It is only meaningful once Done is closed.
func (p *Poll) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Attempts returns the number of fetches issued so far.
func (p *Poll) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// Wait blocks until the poll finishes or ctx is done.
func (p *Poll) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
