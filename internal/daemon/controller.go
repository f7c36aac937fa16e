package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scorepub/internal/logging"
	"scorepub/internal/metrics"
	"scorepub/internal/model"
	"scorepub/internal/notifications"
	"scorepub/internal/publish"
	"scorepub/internal/queue"
)

// BatchRunner processes one batch for an axis.
type BatchRunner interface {
	Axis() queue.Axis
	RunBatch(ctx context.Context) (*publish.Result, error)
}

// LockVerifier confirms the process still owns its lock.
type LockVerifier interface {
	Verify() error
}

// PendingCounter reports queue depth for the pending gauge.
type PendingCounter interface {
	PendingCount(ctx context.Context, axis queue.Axis) (int, error)
}

// Options configures a Controller.
type Options struct {
	Runner        BatchRunner
	Lock          LockVerifier
	Deployment    *Deployment
	Repo          model.Repository
	Pending       PendingCounter
	Notifier      notifications.Service
	Interval      time.Duration
	WriterBackoff time.Duration
	Logger        *slog.Logger
}

// Stats counts what a run did.
type Stats struct {
	Batches  int
	Requests int
	Written  int
	Retired  int
	Failures int
}

// Controller owns the poll loop for one axis.
type Controller struct {
	runner     BatchRunner
	lock       LockVerifier
	deployment *Deployment
	resetter   model.Resetter
	pending    PendingCounter
	notifier   notifications.Service
	interval   time.Duration
	backoff    time.Duration
	logger     *slog.Logger

	stats Stats
}

var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// New validates opts.
func New(opts Options) (*Controller, error) {
	if opts.Runner == nil {
		return nil, errors.New("daemon: batch runner is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	c := &Controller{
		runner:     opts.Runner,
		lock:       opts.Lock,
		deployment: opts.Deployment,
		pending:    opts.Pending,
		notifier:   notifier,
		interval:   opts.Interval,
		backoff:    opts.WriterBackoff,
		logger:     logging.NewComponentLogger(logger, "daemon").With(logging.String(logging.FieldAxis, string(opts.Runner.Axis()))),
	}
	if resetter, ok := opts.Repo.(model.Resetter); ok {
		c.resetter = resetter
	}
	return c, nil
}

// Stats returns the counters accumulated so far.
func (c *Controller) Stats() Stats {
	return c.stats
}

// RunOnce processes batches until the queue is empty. A writer failure ends
// the run after the backoff so the operator sees it.
func (c *Controller) RunOnce(ctx context.Context) error {
	for {
		empty, err := c.step(ctx)
		if err != nil {
			if publish.Recoverable(err) {
				_ = sleep(ctx, c.backoff)
			}
			if isShutdown(ctx, err) {
				return nil
			}
			return err
		}
		if empty {
			c.logger.Info("queue drained",
				logging.String(logging.FieldEventType, "queue_drained"),
				logging.Int("batches", c.stats.Batches),
				logging.Int("requests", c.stats.Requests),
			)
			return nil
		}
	}
}

// Run loops until ctx is cancelled or a fatal error occurs. Cancellation
// returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("publisher started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Duration("interval", c.interval),
		logging.String("deployment", c.deployment.Source()),
	)
	for {
		if ctx.Err() != nil {
			return nil
		}
		empty, err := c.step(ctx)
		switch {
		case err == nil && !empty:
			continue
		case err == nil:
		case isShutdown(ctx, err):
			return nil
		case publish.Recoverable(err):
			logging.WarnWithContext(c.logger, "backing off after write failure", "writer_backoff",
				logging.Duration("backoff", c.backoff),
				logging.String(logging.FieldImpact, "requests stay pending and retry after the backoff"),
			)
			if sleep(ctx, c.backoff) != nil {
				return nil
			}
			continue
		default:
			return err
		}

		if c.resetter != nil {
			c.resetter.Reset()
		}
		if err := sleep(ctx, c.interval); err != nil {
			return nil
		}
		if err := c.checkLock(); err != nil {
			return err
		}
		if err := c.deployment.Check(); err != nil {
			c.logger.Info("deployment changed",
				logging.String(logging.FieldEventType, "redeploy_detected"),
				logging.Error(err),
			)
			if notifyErr := c.notifier.NotifyRedeploy(context.WithoutCancel(ctx), string(c.runner.Axis())); notifyErr != nil {
				c.logger.Debug("redeploy notification failed", logging.Error(notifyErr))
			}
			return err
		}
	}
}

// step runs one batch and reports whether the queue was empty.
func (c *Controller) step(ctx context.Context) (bool, error) {
	result, err := c.runner.RunBatch(ctx)
	if result != nil && !result.Empty() {
		c.stats.Batches++
		c.stats.Requests += result.Requests
		c.stats.Written += len(result.Written)
		c.stats.Retired += len(result.Retired)
	}
	if err != nil {
		c.stats.Failures++
		return false, err
	}
	empty := result.Empty()
	if empty {
		c.recordPending(ctx)
	}
	return empty, nil
}

func (c *Controller) recordPending(ctx context.Context) {
	if c.pending == nil {
		return
	}
	axis := c.runner.Axis()
	n, err := c.pending.PendingCount(ctx, axis)
	if err != nil {
		c.logger.Debug("pending count failed", logging.Error(err))
		return
	}
	metrics.PendingRequests.WithLabelValues(string(axis)).Set(float64(n))
}

func (c *Controller) checkLock() error {
	if c.lock == nil {
		return nil
	}
	if err := c.lock.Verify(); err != nil {
		logging.ErrorWithContext(c.logger, "lock integrity check failed", "lock_integrity_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another process replaced or removed the lock file"),
		)
		return fmt.Errorf("verify lock: %w", err)
	}
	return nil
}

func isShutdown(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
