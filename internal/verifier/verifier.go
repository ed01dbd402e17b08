// Package verifier runs verification asynchronously: an in-process task
// queue, a bounded worker pool draining it, and a recovery sweep that
// re-enqueues profiles stuck pending past a deadline. The queue is not
// durable across restarts; the sweep is what makes a crash between
// profile creation and verdict recoverable.
package verifier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
)

// ErrQueueFull is returned when the queue cannot take another task. The
// caller's response path is unaffected; the sweep picks the profile up.
var ErrQueueFull = errors.New("verification queue full")

// Pipeline is the part of the verification service the worker needs.
type Pipeline interface {
	Verify(ctx context.Context, task port.VerificationTask) error
}

// Queue is a buffered in-process implementation of
// port.VerificationQueue.
type Queue struct {
	tasks   chan port.VerificationTask
	metrics *observability.Metrics
}

// NewQueue creates a queue holding at most size tasks.
func NewQueue(size int, metrics *observability.Metrics) *Queue {
	return &Queue{
		tasks:   make(chan port.VerificationTask, size),
		metrics: metrics,
	}
}

// Enqueue hands a task to the workers without blocking the caller.
func (q *Queue) Enqueue(_ context.Context, task port.VerificationTask) error {
	select {
	case q.tasks <- task:
		q.metrics.SetQueueDepth(len(q.tasks))
		return nil
	default:
		return ErrQueueFull
	}
}

// Config tunes the worker pool and the recovery sweep.
type Config struct {
	Workers       int
	TaskTimeout   time.Duration
	SweepInterval time.Duration
	SweepDeadline time.Duration
}

// Runner drains the queue with a fixed pool of workers and periodically
// sweeps for stale pending profiles.
type Runner struct {
	queue    *Queue
	pipeline Pipeline
	profiles port.ProfileStore
	cfg      Config
	logger   *zap.Logger
}

// NewRunner wires the worker pool.
func NewRunner(queue *Queue, pipeline Pipeline, profiles port.ProfileStore, cfg Config, logger *zap.Logger) *Runner {
	return &Runner{
		queue:    queue,
		pipeline: pipeline,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled and all workers have drained.
func (r *Runner) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			return r.work(gCtx)
		})
	}
	g.Go(func() error {
		return r.sweep(gCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-r.queue.tasks:
			r.queue.metrics.SetQueueDepth(len(r.queue.tasks))
			r.runOne(ctx, task)
		}
	}
}

// runOne executes a single pipeline run under its own deadline. Pipeline
// errors are logged, not returned: one bad task must not stop the pool.
func (r *Runner) runOne(ctx context.Context, task port.VerificationTask) {
	taskCtx, cancel := context.WithTimeout(ctx, r.cfg.TaskTimeout)
	defer cancel()

	if err := r.pipeline.Verify(taskCtx, task); err != nil {
		r.logger.Error("verification run failed",
			zap.String("kind", task.Kind),
			zap.String("profile_id", task.ProfileID),
			zap.Error(err),
		)
	}
}

// sweep re-enqueues profiles that have sat pending past the deadline —
// lost enqueues, crashed runs, or a restart that emptied the queue. The
// CAS on the status write makes a duplicate delivery harmless.
func (r *Runner) sweep(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-r.cfg.SweepDeadline)
			tasks, err := r.profiles.ListStalePending(ctx, cutoff)
			if err != nil {
				r.logger.Error("pending sweep failed", zap.Error(err))
				continue
			}
			for _, task := range tasks {
				if err := r.queue.Enqueue(ctx, task); err != nil {
					// Queue saturated; the next sweep retries.
					r.logger.Warn("sweep could not re-enqueue",
						zap.String("profile_id", task.ProfileID),
						zap.Error(err),
					)
					break
				}
			}
			if len(tasks) > 0 {
				r.logger.Info("pending sweep re-enqueued profiles", zap.Int("count", len(tasks)))
			}
		}
	}
}
