// Package jobs runs background work on a bounded in-process worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexanderramin/smeta/internal/logger"
)

var (
	ErrQueueClosed = errors.New("job queue closed")
	ErrQueueFull   = errors.New("job queue full")
)

// Job is one unit of background work. Jobs sharing a non-empty Key are
// deduplicated while one of them is still waiting to start.
type Job struct {
	Name string
	Key  string
	Run  func(ctx context.Context) error
}

// Enqueuer is what job producers depend on.
type Enqueuer interface {
	Enqueue(job Job) (bool, error)
}

type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.QueueSize < 1 {
		o.QueueSize = 64
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

type Queue struct {
	log  *logger.Logger
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	jobs   chan Job

	mu      sync.Mutex
	closed  bool
	pending map[string]bool

	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewQueue starts the worker pool. Workers stop when Close drains the queue
// or when ctx is cancelled.
func NewQueue(ctx context.Context, log *logger.Logger, opts Options) *Queue {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	q := &Queue{
		log:     log.With("component", "jobs"),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		group:   &errgroup.Group{},
		jobs:    make(chan Job, opts.QueueSize),
		pending: make(map[string]bool),
	}
	for i := 0; i < opts.Workers; i++ {
		workerID := i + 1
		q.group.Go(func() error {
			q.work(workerID)
			return nil
		})
	}
	return q
}

// Enqueue schedules job. It returns false when a job with the same key is
// already waiting; that job will observe the latest state when it runs.
func (q *Queue) Enqueue(job Job) (bool, error) {
	if job.Run == nil {
		return false, fmt.Errorf("job %q has no Run func", job.Name)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrQueueClosed
	}
	if job.Key != "" && q.pending[job.Key] {
		return false, nil
	}
	select {
	case q.jobs <- job:
	default:
		return false, ErrQueueFull
	}
	if job.Key != "" {
		q.pending[job.Key] = true
	}
	return true, nil
}

// Close stops accepting jobs, lets the workers drain what is queued and
// waits for them to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	err := q.group.Wait()
	q.cancel()
	return err
}

// Stats reports how many jobs finished successfully and how many exhausted
// their attempts.
func (q *Queue) Stats() (succeeded, failed int64) {
	return q.succeeded.Load(), q.failed.Load()
}

func (q *Queue) work(workerID int) {
	for job := range q.jobs {
		if job.Key != "" {
			q.mu.Lock()
			delete(q.pending, job.Key)
			q.mu.Unlock()
		}
		if err := q.runWithRetry(job); err != nil {
			q.failed.Add(1)
			q.log.Error("job failed", "job", job.Name, "key", job.Key, "worker_id", workerID,
				"attempts", q.opts.MaxAttempts, "error", err)
			continue
		}
		q.succeeded.Add(1)
	}
}

func (q *Queue) runWithRetry(job Job) error {
	var err error
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		if err = q.ctx.Err(); err != nil {
			return err
		}
		if err = runSafely(q.ctx, job); err == nil {
			return nil
		}
		if attempt == q.opts.MaxAttempts {
			break
		}
		q.log.Warn("job attempt failed, retrying", "job", job.Name, "key", job.Key,
			"attempt", attempt, "error", err)
		select {
		case <-q.ctx.Done():
			return q.ctx.Err()
		case <-time.After(q.opts.RetryDelay):
		}
	}
	return err
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
