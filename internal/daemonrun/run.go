// Package daemonrun assembles one axis publisher process: logging, the PID
// lock, storage, the writer, hooks, metrics, and the daemon controller.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"scorepub/internal/catalog"
	"scorepub/internal/config"
	"scorepub/internal/daemon"
	"scorepub/internal/hooks"
	"scorepub/internal/lock"
	"scorepub/internal/logging"
	"scorepub/internal/metrics"
	"scorepub/internal/notifications"
	"scorepub/internal/publish"
	"scorepub/internal/queue"
	"scorepub/internal/render"
	"scorepub/internal/writer"
)

// Options configures one publisher process.
type Options struct {
	// Continuous keeps polling after the queue drains.
	Continuous bool
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Renderer overrides the built-in document renderer.
	Renderer render.Renderer
}

// Run acquires the axis lock and publishes until done, cancelled, or failed.
func Run(cmdCtx context.Context, cfg *config.Config, axis queue.Axis, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if _, err := queue.ParseAxis(string(axis)); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg, string(axis))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.NewString()
	ctx := logging.WithRunID(signalCtx, runID)
	logger = logger.With(
		logging.String(logging.FieldAxis, string(axis)),
		logging.String(logging.FieldRunID, runID),
	)

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scorepub-*.log", Keep: logging.LogPath(cfg, string(axis))},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "detached"), Pattern: "*.out"},
	)

	handle, err := lock.Acquire(cfg.Paths.TmpDir, cfg.Paths.LockName, string(axis))
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyRunning) {
			logging.WarnWithContext(logger, "publisher already running", "lock_conflict",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this process exits without touching the queue"),
			)
		}
		return err
	}
	defer func() {
		if err := handle.Release(); err != nil {
			logger.Warn("release lock", logging.Error(err))
		}
	}()

	notifier := notifications.NewService(cfg)
	err = run(ctx, cfg, axis, opts, logger, handle, notifier)
	if err != nil && !errors.Is(err, lock.ErrAlreadyRunning) {
		logging.ErrorWithContext(logger, "publisher stopped", "daemon_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		if !errors.Is(err, daemon.ErrRedeployed) {
			if notifyErr := notifier.NotifyError(context.WithoutCancel(ctx), err, string(axis)+" publisher"); notifyErr != nil {
				logger.Debug("error notification failed", logging.Error(notifyErr))
			}
		}
	}
	return err
}

func run(ctx context.Context, cfg *config.Config, axis queue.Axis, opts Options, logger *slog.Logger, handle *lock.Handle, notifier notifications.Service) error {
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	if keep := cfg.PurgeAfter(); keep > 0 {
		removed, err := store.PurgeCompleted(ctx, axis, time.Now().Add(-keep))
		if err != nil {
			logging.WarnWithContext(logger, "purge completed requests failed", "queue_purge",
				logging.Error(err),
				logging.String(logging.FieldImpact, "completed requests accumulate until the next start"),
			)
		} else if removed > 0 {
			logger.Info("purged completed requests", logging.Int64("removed", removed))
		}
	}

	repo, err := catalog.Open(cfg.Paths.Database)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer repo.Close()

	out, err := writer.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewDocuments()
	}

	runner, err := publish.NewRunner(publish.Options{
		Axis:        axis,
		Store:       store,
		Repo:        repo,
		Renderer:    renderer,
		Writer:      out,
		Notifier:    notifier,
		Hooks:       hooks.NewRunner(cfg.Paths.HooksDir, cfg.HookTimeout(), logger),
		FatalHooks:  cfg.Hooks.Fatal,
		BatchSize:   cfg.Queue.BatchSize,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	controllerOpts := daemon.Options{
		Runner:        runner,
		Lock:          handle,
		Repo:          repo,
		Pending:       store,
		Notifier:      notifier,
		Interval:      cfg.PollInterval(string(axis)),
		WriterBackoff: cfg.WriterBackoff(),
		Logger:        logger,
	}

	if !opts.Continuous {
		controller, err := daemon.New(controllerOpts)
		if err != nil {
			return err
		}
		return controller.RunOnce(ctx)
	}

	deployment, err := daemon.NewDeployment(cfg.Paths.ChecksumFile)
	if err != nil {
		return fmt.Errorf("read deployment checksum: %w", err)
	}
	controllerOpts.Deployment = deployment
	controller, err := daemon.New(controllerOpts)
	if err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				logging.WarnWithContext(logger, "metrics endpoint stopped", "metrics_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "publishing continues without /metrics"),
				)
			}
		}()
	}

	logger.Info("publisher ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.Int("pid", os.Getpid()),
		logging.String("lock", handle.Path()),
		logging.String("database", store.Path()),
		logging.Bool("fatal_hooks", cfg.Hooks.Fatal),
	)
	err = controller.Run(ctx)
	stats := controller.Stats()
	logger.Info("publisher shutting down",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Int("batches", stats.Batches),
		logging.Int("requests", stats.Requests),
		logging.Int("failures", stats.Failures),
	)
	return err
}

func hintFor(err error) string {
	switch {
	case lock.IsIntegrityError(err):
		return "another process replaced or removed the lock file; check for a duplicate publisher"
	case errors.Is(err, hooks.ErrHookFailed):
		return "fix the failing hook in hooks_dir, then restart the publisher"
	case errors.Is(err, daemon.ErrRedeployed):
		return "a new build was deployed; the supervisor should restart the publisher"
	default:
		return "check the queue database and configuration"
	}
}
