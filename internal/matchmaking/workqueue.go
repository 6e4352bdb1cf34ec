package matchmaking

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrQueueClosed = errors.New("queue_closed")

// JobHandler runs one match. Returned errors are logged; jobs are never
// retried.
type JobHandler func(ctx context.Context, job Job) error

// WorkQueue is a buffered queue drained by exactly one consumer, so matches
// run one at a time in pairing order.
type WorkQueue struct {
	ch      chan Job
	handler JobHandler

	closeOnce sync.Once
	done      chan struct{}
}

func NewWorkQueue(buffer int, handler JobHandler) *WorkQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &WorkQueue{
		ch:      make(chan Job, buffer),
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Submit blocks until the job is buffered, ctx is done, or the queue closes.
func (q *WorkQueue) Submit(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- job:
		metricJobsQueued.Set(int64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

func (q *WorkQueue) Len() int { return len(q.ch) }

// Run consumes jobs until ctx is done or Close is called. It must be started
// exactly once.
func (q *WorkQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case job := <-q.ch:
			metricJobsQueued.Set(int64(len(q.ch)))
			q.process(ctx, job)
		}
	}
}

func (q *WorkQueue) process(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			metricJobsFailedTotal.Add(1)
			log.Error().Interface("panic", r).Str("match_id", job.MatchID).Msg("match job panicked")
		}
	}()
	if err := q.handler(ctx, job); err != nil {
		metricJobsFailedTotal.Add(1)
		log.Error().Err(err).Str("match_id", job.MatchID).Msg("match job failed")
	}
}

// Close stops Run and rejects further submissions. Buffered jobs are dropped.
func (q *WorkQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
