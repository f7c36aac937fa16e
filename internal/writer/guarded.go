package writer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"scorepub/internal/logging"
)

// GuardOptions tunes the circuit breaker around a backend.
type GuardOptions struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	CallTimeout      time.Duration
	Logger           *slog.Logger
}

// Guarded wraps a Writer with a per-call timeout and a circuit breaker. Once
// the backend fails FailureThreshold times in a row, calls fail fast until
// OpenTimeout passes.
type Guarded struct {
	next        Writer
	breaker     *gobreaker.CircuitBreaker[struct{}]
	callTimeout time.Duration
}

// NewGuarded wraps next. A zero FailureThreshold disables tripping.
func NewGuarded(next Writer, opts GuardOptions) *Guarded {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = "writer"
	}
	threshold := opts.FailureThreshold
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidPath)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("writer circuit breaker state changed",
				logging.String(logging.FieldEventType, "writer_breaker_state"),
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	}
	return &Guarded{
		next:        next,
		breaker:     gobreaker.NewCircuitBreaker[struct{}](settings),
		callTimeout: opts.CallTimeout,
	}
}

// State exposes the breaker state for status output.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

// Unwrap returns the guarded backend.
func (g *Guarded) Unwrap() Writer {
	return g.next
}

func (g *Guarded) Write(ctx context.Context, p string, body []byte) error {
	return g.call(ctx, "write", p, func(ctx context.Context) error {
		return g.next.Write(ctx, p, body)
	})
}

func (g *Guarded) Remove(ctx context.Context, p string) error {
	return g.call(ctx, "remove", p, func(ctx context.Context) error {
		return g.next.Remove(ctx, p)
	})
}

func (g *Guarded) call(ctx context.Context, op, p string, fn func(context.Context) error) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		callCtx := ctx
		if g.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.callTimeout)
			defer cancel()
		}
		return struct{}{}, fn(callCtx)
	})
	if err == nil {
		return nil
	}
	return failure(op, p, err)
}
