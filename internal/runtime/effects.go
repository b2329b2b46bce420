package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Effect is a unit of asynchronous work requested by a state change,
// such as reloading the options that depend on an upstream selection.
type Effect struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Result is the outcome of an Effect. Ticket identifies the request.
type Result struct {
	Ticket uint64
	Value  any
	Err    error
}

type job struct {
	ticket uint64
	effect Effect
	out    chan Result
}

// EffectQueue runs effects one at a time on a single worker goroutine.
// Each Enqueue supersedes earlier requests: a waiting job that gets replaced
// never runs and receives domain.ErrStale, and callers use Latest to discard
// a result that finished after a newer request was made.
type EffectQueue struct {
	mu      sync.Mutex
	seq     uint64
	pending *job
	closed  bool
	wake    chan struct{}

	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// QueueOption configures an EffectQueue.
type QueueOption func(*EffectQueue)

// WithQueueLogger sets the queue logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *EffectQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewEffectQueue starts the worker. It stops when ctx is done or Close is called.
func NewEffectQueue(ctx context.Context, opts ...QueueOption) *EffectQueue {
	q := &EffectQueue{
		wake:   make(chan struct{}, 1),
		logger: logging.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.ctx, q.cancel = context.WithCancel(ctx)

	go q.loop()
	return q
}

// Enqueue schedules effect and returns its ticket and a channel that receives
// exactly one Result.
func (q *EffectQueue) Enqueue(effect Effect) (uint64, <-chan Result) {
	out := make(chan Result, 1)

	q.mu.Lock()
	q.seq++
	ticket := q.seq
	if q.closed {
		q.mu.Unlock()
		out <- Result{Ticket: ticket, Err: context.Canceled}
		return ticket, out
	}
	if prev := q.pending; prev != nil {
		prev.out <- Result{Ticket: prev.ticket, Err: domain.ErrStale}
	}
	q.pending = &job{ticket: ticket, effect: effect, out: out}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return ticket, out
}

// Latest reports whether ticket is the most recent request.
func (q *EffectQueue) Latest(ticket uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq == ticket
}

// Close stops the worker and waits for the running effect to return.
// A waiting job receives context.Canceled.
func (q *EffectQueue) Close() {
	q.cancel()
	<-q.done
}

func (q *EffectQueue) loop() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			q.shutdown()
			return
		case <-q.wake:
		}

		q.mu.Lock()
		j := q.pending
		q.pending = nil
		q.mu.Unlock()

		if j != nil {
			q.run(j)
		}
	}
}

func (q *EffectQueue) run(j *job) {
	value, err := j.effect.Run(q.ctx)
	if err != nil {
		q.logger.Debug("Effect failed", "effect", j.effect.Name, "ticket", j.ticket, "err", err)
	}
	j.out <- Result{Ticket: j.ticket, Value: value, Err: err}
}

func (q *EffectQueue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if j := q.pending; j != nil {
		j.out <- Result{Ticket: j.ticket, Err: context.Canceled}
		q.pending = nil
	}
}
