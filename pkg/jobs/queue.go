package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is one queued background task.
type Job struct {
	ID       string
	Type     string
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. Errors wrapped with Permanent are not retried.
type Handler func(context.Context, Job) error

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by a fixed set of goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue dispatching to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{name: name, handler: handler, cfg: cfg, jobs: make(chan Job, cfg.BufferSize)}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Debug("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for them to exit. Queued jobs are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	for {
		select {
		case <-q.jobs:
			q.pending.Done()
			continue
		default:
		}
		break
	}
	q.cfg.Logger.Debug("queue stopped", zap.String("queue", q.name))
}

// Enqueue schedules a job of jobType and returns its id.
func (q *Queue) Enqueue(jobType string) (string, error) {
	job := Job{ID: uuid.NewString(), Type: jobType, Enqueued: time.Now().UTC()}
	if err := q.push(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Wait blocks until every enqueued job finished, including retries.
func (q *Queue) Wait() {
	q.pending.Wait()
}

func (q *Queue) push(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	if started {
		q.pending.Add(1)
	}
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	select {
	case <-ctx.Done():
		q.pending.Done()
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			err := q.handler(q.ctx, job)
			if err != nil {
				q.handleFailure(job, err)
			}
			q.pending.Done()
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	var permanent permanentError
	job.Attempt++
	if errors.As(err, &permanent) || job.Attempt > q.cfg.MaxRetries {
		q.cfg.Logger.Warn("job failed", zap.String("queue", q.name), zap.String("job_id", job.ID),
			zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
		return
	}
	q.cfg.Logger.Debug("job failed, retrying", zap.String("queue", q.name), zap.String("job_id", job.ID),
		zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	q.pending.Add(1)
	go func(j Job) {
		defer q.pending.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.push(j); err != nil {
				q.cfg.Logger.Warn("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
