package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scorepub/internal/config"
	"scorepub/internal/fileutil"
	"scorepub/internal/hooks"
	"scorepub/internal/logging"
	"scorepub/internal/metrics"
	"scorepub/internal/model"
	"scorepub/internal/notifications"
	"scorepub/internal/queue"
	"scorepub/internal/render"
	"scorepub/internal/writer"
)

// Store is the queue surface a Runner needs.
type Store interface {
	Ledger
	FetchPending(ctx context.Context, axis queue.Axis, limit, maxAttempts int) ([]*queue.Request, error)
	MarkComplete(ctx context.Context, axis queue.Axis, ids []int64) error
	MarkFailed(ctx context.Context, axis queue.Axis, ids []int64) error
	EnqueueMany(ctx context.Context, reqs []queue.NewRequest) (int, error)
	RecordPages(ctx context.Context, axis queue.Axis, pages []queue.PublishedPage) error
	RemovePages(ctx context.Context, axis queue.Axis, paths []string) error
}

// HookRunner runs post-batch hooks.
type HookRunner interface {
	Run(ctx context.Context, batch hooks.Batch) error
}

// Options configures a Runner.
type Options struct {
	Axis     queue.Axis
	Store    Store
	Repo     model.Repository
	Renderer render.Renderer
	Writer   writer.Writer
	Notifier notifications.Service
	Hooks    HookRunner
	// FatalHooks makes a failing hook abort the daemon instead of logging.
	FatalHooks bool
	BatchSize  int
	// MaxAttempts stalls a request once its own entity failed to publish this
	// many times. Writer outages do not count. Zero retries forever.
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Result summarizes one batch.
type Result struct {
	BatchID  string
	Requests int
	Groups   int
	Renders  int
	Written  []string
	Retired  []string
	Skipped  int
	Cascades int
}

// Empty reports whether the batch found nothing to do.
func (r *Result) Empty() bool {
	return r == nil || r.Requests == 0
}

// Runner drains one axis a batch at a time.
type Runner struct {
	axis        queue.Axis
	store       Store
	strategy    Strategy
	renderer    render.Renderer
	writer      writer.Writer
	notifier    notifications.Service
	hooks       HookRunner
	fatalHooks  bool
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
}

// NewRunner validates opts and builds the axis strategy.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Store == nil {
		return nil, errors.New("publish runner: store is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("publish runner: renderer is required")
	}
	if opts.Writer == nil {
		return nil, errors.New("publish runner: writer is required")
	}
	strategy, err := NewStrategy(opts.Axis, Env{Repo: opts.Repo, Ledger: opts.Store, Now: opts.Now})
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	return &Runner{
		axis:        opts.Axis,
		store:       opts.Store,
		strategy:    strategy,
		renderer:    opts.Renderer,
		writer:      opts.Writer,
		notifier:    notifier,
		hooks:       opts.Hooks,
		fatalHooks:  opts.FatalHooks,
		batchSize:   batchSize,
		maxAttempts: opts.MaxAttempts,
		logger:      logging.NewComponentLogger(logger, "publish").With(logging.String(logging.FieldAxis, string(opts.Axis))),
	}, nil
}

// Axis returns the axis this runner drains.
func (r *Runner) Axis() queue.Axis { return r.axis }

// RunBatch fetches up to one batch of pending requests and publishes them.
//
// Writer and render failures wrap ErrWriterFailure or ErrRenderFailure and
// leave every request in the batch pending. Hook failures wrap
// hooks.ErrHookFailed when hooks are fatal. Any other error comes from the
// store or repository.
func (r *Runner) RunBatch(ctx context.Context) (*Result, error) {
	started := time.Now()
	axis := string(r.axis)

	reqs, err := r.store.FetchPending(ctx, r.axis, r.batchSize, r.maxAttempts)
	if err != nil {
		metrics.RecordBatch(axis, metrics.ResultError, time.Since(started))
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	result := &Result{BatchID: uuid.NewString(), Requests: len(reqs)}
	if len(reqs) == 0 {
		metrics.RecordBatch(axis, metrics.ResultEmpty, time.Since(started))
		return result, nil
	}

	ctx = logging.WithBatchID(ctx, result.BatchID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("requests", len(reqs)),
	)

	err = r.process(ctx, logger, reqs, result)
	switch {
	case err == nil:
		metrics.RecordBatch(axis, metrics.ResultOK, time.Since(started))
	case Recoverable(err):
		metrics.WriterFailures.WithLabelValues(axis).Inc()
		metrics.RecordBatch(axis, metrics.ResultWriterFailure, time.Since(started))
		logging.ErrorWithContext(logger, "batch aborted", "batch_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the output store; requests stay pending and retry after the backoff"),
			logging.Int("requests", len(reqs)),
		)
		return result, err
	case errors.Is(err, hooks.ErrHookFailed):
		metrics.RecordBatch(axis, metrics.ResultHookFailure, time.Since(started))
		return result, err
	default:
		metrics.RecordBatch(axis, metrics.ResultError, time.Since(started))
		return result, err
	}

	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_completed"),
		logging.Int("requests", result.Requests),
		logging.Int("groups", result.Groups),
		logging.Int("renders", result.Renders),
		logging.Int("written", len(result.Written)),
		logging.Int("retired", len(result.Retired)),
		logging.Int("skipped", result.Skipped),
		logging.Int("cascades", result.Cascades),
		logging.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (r *Runner) process(ctx context.Context, logger *slog.Logger, reqs []*queue.Request, result *Result) error {
	axis := string(r.axis)
	groups := Coalesce(r.axis, reqs)
	result.Groups = len(groups)

	var (
		cascades  []queue.NewRequest
		announces []notifications.Announcement
		ids       []int64
	)
	for _, group := range groups {
		ids = append(ids, group.IDs()...)
		plan, err := r.strategy.Plan(ctx, group)
		if err != nil {
			return fmt.Errorf("plan %s %s: %w", r.axis, group.Entity, err)
		}
		if plan.empty() {
			logger.Debug("nothing to publish",
				logging.String(logging.FieldEntity, group.Entity),
				logging.Strings("activities", activityNames(group)),
			)
			continue
		}
		if err := r.retire(ctx, plan, result); err != nil {
			return r.groupFailed(ctx, logger, group, err)
		}
		if err := r.publish(ctx, logger, plan, result); err != nil {
			return r.groupFailed(ctx, logger, group, err)
		}
		cascades = append(cascades, plan.Cascades...)
		if plan.Announce != nil {
			announces = append(announces, *plan.Announce)
		}
	}

	if len(cascades) > 0 {
		n, err := r.store.EnqueueMany(ctx, cascades)
		if err != nil {
			return fmt.Errorf("enqueue cascades: %w", err)
		}
		result.Cascades = n
		byTarget := make(map[string]int)
		for _, c := range cascades {
			byTarget[string(c.Axis)]++
		}
		metrics.RecordCascades(axis, byTarget)
	}

	if err := r.store.MarkComplete(ctx, r.axis, ids); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	metrics.RequestsProcessed.WithLabelValues(axis).Add(float64(len(ids)))

	for _, a := range announces {
		if err := r.notifier.AnnounceRegatta(ctx, a); err != nil {
			logging.WarnWithContext(logger, "regatta announcement failed", "announce_failed",
				logging.Error(err),
				logging.String(logging.FieldEntity, a.Regatta),
				logging.String(logging.FieldImpact, "regatta was published without an announcement"),
			)
		}
	}

	return r.runHooks(ctx, logger, result)
}

// groupFailed charges a failure to group's requests when the group itself
// caused it. Backend-wide writer errors leave the failure counts alone.
func (r *Runner) groupFailed(ctx context.Context, logger *slog.Logger, group *Group, err error) error {
	if !errors.Is(err, ErrRenderFailure) && !errors.Is(err, writer.ErrInvalidPath) {
		return err
	}
	if markErr := r.store.MarkFailed(ctx, r.axis, group.IDs()); markErr != nil {
		logger.Warn("record request failure", logging.Error(markErr), logging.String(logging.FieldEntity, group.Entity))
	}
	return err
}

func (r *Runner) retire(ctx context.Context, plan *Plan, result *Result) error {
	if len(plan.Retire) == 0 {
		return nil
	}
	for _, p := range plan.Retire {
		if err := r.writer.Remove(ctx, p); err != nil {
			return fmt.Errorf("%w: %w", ErrWriterFailure, err)
		}
	}
	if err := r.store.RemovePages(ctx, r.axis, plan.Retire); err != nil {
		return fmt.Errorf("forget retired pages: %w", err)
	}
	result.Retired = append(result.Retired, plan.Retire...)
	metrics.PagesRetired.WithLabelValues(string(r.axis)).Add(float64(len(plan.Retire)))
	return nil
}

func (r *Runner) publish(ctx context.Context, logger *slog.Logger, plan *Plan, result *Result) error {
	if plan.Job == nil || len(plan.Job.Pages) == 0 {
		return nil
	}
	job := *plan.Job
	outputs, err := r.renderer.Render(ctx, job)
	result.Renders++
	metrics.RendersTotal.WithLabelValues(string(r.axis)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRenderFailure, r.axis, plan.Entity, err)
	}
	if err := render.CheckOutputs(job, outputs); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	var recorded []queue.PublishedPage
	for _, out := range outputs {
		sum := fileutil.SHA256(out.Body)
		if plan.SkipUnchanged {
			prev, err := r.store.Page(ctx, r.axis, out.Path)
			if err != nil {
				return err
			}
			if prev != nil && prev.Checksum == sum {
				result.Skipped++
				logger.Debug("output unchanged",
					logging.String(logging.FieldEntity, plan.Entity),
					logging.String(logging.FieldPath, out.Path),
				)
				continue
			}
		}
		if err := r.writer.Write(ctx, out.Path, out.Body); err != nil {
			// Pages already written in this group are still recorded.
			if recordErr := r.store.RecordPages(ctx, r.axis, recorded); recordErr != nil {
				logger.Warn("record pages after write failure", logging.Error(recordErr))
			}
			return fmt.Errorf("%w: %w", ErrWriterFailure, err)
		}
		recorded = append(recorded, queue.PublishedPage{
			Axis:     r.axis,
			Entity:   plan.Entity,
			Path:     out.Path,
			Checksum: sum,
		})
		result.Written = append(result.Written, out.Path)
	}
	if err := r.store.RecordPages(ctx, r.axis, recorded); err != nil {
		return fmt.Errorf("record pages: %w", err)
	}
	metrics.PagesWritten.WithLabelValues(string(r.axis)).Add(float64(len(recorded)))
	return nil
}

func (r *Runner) runHooks(ctx context.Context, logger *slog.Logger, result *Result) error {
	if r.hooks == nil {
		return nil
	}
	err := r.hooks.Run(ctx, hooks.Batch{
		Axis:    string(r.axis),
		BatchID: result.BatchID,
		Written: result.Written,
		Retired: result.Retired,
	})
	if err == nil {
		return nil
	}
	if r.fatalHooks {
		return err
	}
	logging.WarnWithContext(logger, "post-batch hook failed", "hook_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "batch was published but downstream hooks did not finish"),
	)
	return nil
}

func activityNames(g *Group) []string {
	activities := g.Activities()
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = string(a)
	}
	return out
}
