package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/cenkalti/backoff/v4"
)

// Sink accepts records without blocking.
type Sink interface {
	Enqueue(rec Record) bool
}

// Discard is a Sink that drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Enqueue(Record) bool { return false }

// Sender posts one activity to the backend.
type Sender interface {
	LogActivity(ctx context.Context, activity arena.Activity) error
}

// Journal records delivery state locally.
type Journal interface {
	AppendActivity(ctx context.Context, rec Record) error
	UpdateActivity(ctx context.Context, id string, status Status, attempts int, lastErr string) error
}

// Options tune the queue.
type Options struct {
	// Buffer is the number of records held before Enqueue starts dropping.
	Buffer int
	// MaxRetries is the number of redeliveries after the first failure.
	MaxRetries uint64
	// RetryInterval is the initial wait between attempts.
	RetryInterval time.Duration
	// SendTimeout bounds each attempt. Zero means no per-attempt bound.
	SendTimeout time.Duration
}

// DefaultOptions returns options matching the backend's historical
// behavior: no redelivery.
func DefaultOptions() Options {
	return Options{
		Buffer:        64,
		MaxRetries:    0,
		RetryInterval: 500 * time.Millisecond,
		SendTimeout:   10 * time.Second,
	}
}

// Stats are cumulative queue counters.
type Stats struct {
	Enqueued  int64
	Delivered int64
	Failed    int64
	Dropped   int64
}

// Queue is a FIFO outbox with a single delivery worker.
type Queue struct {
	sender  Sender
	journal Journal
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	ch      chan Record
	closed  bool
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	drops   sync.WaitGroup

	enqueued  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewQueue creates a queue. journal may be nil.
func NewQueue(sender Sender, journal Journal, opts Options, logger *slog.Logger) *Queue {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultOptions().Buffer
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultOptions().RetryInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		sender:  sender,
		journal: journal,
		opts:    opts,
		logger:  logger,
		ch:      make(chan Record, opts.Buffer),
		done:    make(chan struct{}),
	}
}

// Start launches the delivery worker. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go q.run(ctx)
}

// Enqueue hands rec to the worker. It never blocks; false means the
// record was dropped. Dropped records are journaled in the background.
func (q *Queue) Enqueue(rec Record) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case rec.LoginID == "":
		q.logger.Error("no login id available for activity logging", "type", rec.Type)
		q.dropLocked(rec, "no login id")
		return false
	case q.closed:
		q.logger.Warn("activity queue closed, dropping record", "type", rec.Type)
		q.dropLocked(rec, "queue closed")
		return false
	}

	select {
	case q.ch <- rec:
		q.enqueued.Add(1)
		return true
	default:
		q.logger.Warn("activity queue full, dropping record", "type", rec.Type, "buffer", q.opts.Buffer)
		q.dropLocked(rec, "queue full")
		return false
	}
}

// dropLocked counts rec as dropped and journals it off the caller's
// goroutine. Writes started before Close are awaited by Close; later ones
// are best effort. q.mu must be held.
func (q *Queue) dropLocked(rec Record, reason string) {
	q.dropped.Add(1)
	if q.journal == nil {
		return
	}
	if q.closed {
		go q.journalDrop(context.Background(), rec, reason)
		return
	}
	q.drops.Add(1)
	go func() {
		defer q.drops.Done()
		q.journalDrop(context.Background(), rec, reason)
	}()
}

// Close stops intake and waits for queued records to be delivered or for
// ctx to expire, whichever comes first.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	started := q.started
	q.mu.Unlock()

	if !started {
		n := 0
		for rec := range q.ch {
			n++
			q.dropped.Add(1)
			if q.journal != nil {
				q.journalDrop(ctx, rec, "queue never started")
			}
		}
		if n > 0 {
			q.logger.Warn("activity queue never started, dropping records", "count", n)
		}
		return q.waitDrops(ctx)
	}

	select {
	case <-q.done:
		return q.waitDrops(ctx)
	case <-ctx.Done():
		pending := len(q.ch)
		q.cancel()
		<-q.done
		return fmt.Errorf("activity queue: %d records undelivered: %w", pending, ctx.Err())
	}
}

func (q *Queue) waitDrops(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.drops.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("activity queue: journaling dropped records: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Delivered: q.delivered.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for rec := range q.ch {
		q.deliver(ctx, rec)
	}
}

func (q *Queue) deliver(ctx context.Context, rec Record) {
	q.journalAppend(ctx, rec)

	attempts := 0
	op := func() error {
		attempts++
		sendCtx := ctx
		if q.opts.SendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, q.opts.SendTimeout)
			defer cancel()
		}
		return q.sender.LogActivity(sendCtx, rec.Payload())
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.opts.RetryInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, q.opts.MaxRetries), ctx))
	if err != nil {
		q.failed.Add(1)
		q.logger.Error("error logging activity", "type", rec.Type, "attempts", attempts, "error", err)
		q.journalUpdate(rec.ID, StatusFailed, attempts, err.Error())
		return
	}

	q.delivered.Add(1)
	q.logger.Debug("activity delivered", "type", rec.Type, "attempts", attempts)
	q.journalUpdate(rec.ID, StatusDelivered, attempts, "")
}

func (q *Queue) journalAppend(ctx context.Context, rec Record) {
	if q.journal == nil {
		return
	}
	if err := q.journal.AppendActivity(context.WithoutCancel(ctx), rec); err != nil {
		q.logger.Warn("failed to journal activity", "id", rec.ID, "error", err)
	}
}

func (q *Queue) journalUpdate(id string, status Status, attempts int, lastErr string) {
	if q.journal == nil {
		return
	}
	if err := q.journal.UpdateActivity(context.Background(), id, status, attempts, lastErr); err != nil {
		q.logger.Warn("failed to update activity journal", "id", id, "error", err)
	}
}

func (q *Queue) journalDrop(ctx context.Context, rec Record, reason string) {
	ctx = context.WithoutCancel(ctx)
	if err := q.journal.AppendActivity(ctx, rec); err != nil {
		q.logger.Warn("failed to journal dropped activity", "id", rec.ID, "error", err)
		return
	}
	if err := q.journal.UpdateActivity(ctx, rec.ID, StatusDropped, 0, reason); err != nil {
		q.logger.Warn("failed to update activity journal", "id", rec.ID, "error", err)
	}
}
