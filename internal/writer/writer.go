// Package writer stores rendered outputs at their public paths.
//
// Paths are URL-style ("/s26/champs/index.html"). A path ending in "/" names
// a tree: Remove deletes everything underneath it. Remove of a missing path
// is not an error. Every failure wraps ErrWriteFailed so the publish engine
// can classify it without knowing the backend.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"scorepub/internal/config"
)

// ErrWriteFailed marks any backend failure to write or remove an output.
var ErrWriteFailed = errors.New("writer failure")

// ErrInvalidPath indicates a path that is not a clean absolute URL path.
var ErrInvalidPath = errors.New("invalid output path")

// Writer persists and retires public outputs.
type Writer interface {
	Write(ctx context.Context, path string, body []byte) error
	Remove(ctx context.Context, path string) error
}

// New builds the configured backend wrapped in a circuit breaker.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Writer, error) {
	if cfg == nil {
		return nil, errors.New("writer: config is required")
	}
	var (
		backend Writer
		err     error
	)
	switch cfg.Writer.Backend {
	case config.WriterLocal, "":
		backend, err = NewLocal(cfg.Writer.Root)
	case config.WriterS3:
		backend, err = NewS3(ctx, S3Config{
			Bucket:         cfg.Writer.S3.Bucket,
			Region:         cfg.Writer.S3.Region,
			Endpoint:       cfg.Writer.S3.Endpoint,
			Prefix:         cfg.Writer.S3.Prefix,
			AccessKeyID:    cfg.Writer.S3.AccessKeyID,
			SecretKey:      cfg.Writer.S3.SecretKey,
			ForcePathStyle: cfg.Writer.S3.ForcePathStyle,
		})
	case config.WriterDiscard:
		backend = NewDiscard()
	default:
		return nil, fmt.Errorf("writer: unsupported backend %q", cfg.Writer.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewGuarded(backend, GuardOptions{
		Name:             "writer-" + cfg.Writer.Backend,
		FailureThreshold: uint32(max(cfg.Writer.BreakerThreshold, 0)),
		OpenTimeout:      time.Duration(cfg.Writer.BreakerTimeoutSeconds) * time.Second,
		CallTimeout:      time.Duration(cfg.Writer.TimeoutSeconds) * time.Second,
		Logger:           logger,
	}), nil
}

// CleanPath validates p and returns it without the leading slash. A trailing
// slash is preserved so callers can tell trees from files.
func CleanPath(p string) (string, bool, error) {
	if !strings.HasPrefix(p, "/") {
		return "", false, fmt.Errorf("%w: %q must start with /", ErrInvalidPath, p)
	}
	tree := strings.HasSuffix(p, "/")
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." || segment == "." {
			return "", false, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean(p), "/")
	if cleaned == "" && !tree {
		return "", false, fmt.Errorf("%w: %q names the root", ErrInvalidPath, p)
	}
	if tree && cleaned != "" {
		cleaned += "/"
	}
	return cleaned, tree, nil
}

func failure(op, p string, err error) error {
	if errors.Is(err, ErrWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", ErrWriteFailed, op, p, err)
}
