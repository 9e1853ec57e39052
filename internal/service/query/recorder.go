package query

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tabula/internal/domain"
)

const (
	defaultRecorderBuffer = 256
	persistTimeout        = 5 * time.Second
)

var _ domain.HistoryRecorder = (*Recorder)(nil)

// Recorder persists query records off the request path. Records are queued
// to a single background worker; when the queue is full the record is
// handed to a short-lived overflow writer so Record never waits on the
// store. Only records arriving after Close are written inline. Persistence
// failures are logged as domain.RecorderFailure and never returned.
type Recorder struct {
	repo   domain.QueryHistoryRepository
	logger *slog.Logger

	mu       sync.RWMutex
	closed   bool
	queue    chan domain.QueryRecord
	done     chan struct{}
	overflow sync.WaitGroup
	spilled  atomic.Int64
}

// NewRecorder starts a Recorder with the given queue size.
func NewRecorder(repo domain.QueryHistoryRepository, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		repo:   repo,
		logger: logger.With("component", "history-recorder"),
		queue:  make(chan domain.QueryRecord, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues rec for persistence.
func (r *Recorder) Record(rec domain.QueryRecord) {
	r.mu.RLock()
	if !r.closed {
		select {
		case r.queue <- rec:
		default:
			n := r.spilled.Add(1)
			r.logger.Warn("history queue full, writing out of band", "query_id", rec.ID, "spilled_total", n)
			r.overflow.Add(1)
			go func() {
				defer r.overflow.Done()
				r.persist(rec)
			}()
		}
		r.mu.RUnlock()
		return
	}
	r.mu.RUnlock()
	r.persist(rec)
}

// Spilled reports how many records bypassed the queue because it was full.
func (r *Recorder) Spilled() int64 {
	return r.spilled.Load()
}

// Close stops accepting queued records and waits until the queue and any
// overflow writers have finished or ctx is done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-r.done
		r.overflow.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		r.persist(rec)
	}
}

func (r *Recorder) persist(rec domain.QueryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.repo.Insert(ctx, &rec); err != nil {
		failure := &domain.RecorderFailure{QueryID: rec.ID, Err: err}
		r.logger.Error("query history not persisted",
			"query_id", rec.ID, "status", rec.Status, "error", failure)
	}
}
