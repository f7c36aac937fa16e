// Package hooks runs operator-supplied executables after each batch.
//
// Every executable regular file in the hooks directory runs in lexical order.
// Hooks receive the axis and batch id through the environment and the list of
// written or retired paths on stdin, one per line. A non-zero exit wraps
// ErrHookFailed.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scorepub/internal/logging"
)

// ErrHookFailed indicates a post-batch hook exited unsuccessfully.
var ErrHookFailed = errors.New("post-batch hook failed")

var commandContext = exec.CommandContext

// Batch describes the work a hook is told about.
type Batch struct {
	Axis    string
	BatchID string
	Written []string
	Retired []string
}

// Runner executes the hooks found in a directory.
type Runner struct {
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner returns a Runner for dir. An empty dir disables hooks.
func NewRunner(dir string, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{dir: strings.TrimSpace(dir), timeout: timeout, logger: logger}
}

// Discover lists the executable hooks in lexical order.
func (r *Runner) Discover() ([]string, error) {
	if r == nil || r.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hooks dir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		out = append(out, filepath.Join(r.dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// Run executes every hook and stops at the first failure.
func (r *Runner) Run(ctx context.Context, batch Batch) error {
	hooks, err := r.Discover()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHookFailed, err)
	}
	if len(hooks) == 0 {
		return nil
	}
	stdin := strings.Join(append(append([]string(nil), batch.Written...), batch.Retired...), "\n")
	if stdin != "" {
		stdin += "\n"
	}
	for _, hook := range hooks {
		if err := r.runOne(ctx, hook, batch, stdin); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, hook string, batch Batch, stdin string) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	started := time.Now()
	cmd := commandContext(runCtx, hook) //nolint:gosec
	cmd.Dir = r.dir
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"SCOREPUB_AXIS="+batch.Axis,
		"SCOREPUB_BATCH_ID="+batch.BatchID,
		fmt.Sprintf("SCOREPUB_WRITTEN=%d", len(batch.Written)),
		fmt.Sprintf("SCOREPUB_RETIRED=%d", len(batch.Retired)),
	)
	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrHookFailed, filepath.Base(hook), err, trimmed)
	}
	r.logger.Debug("hook completed",
		logging.String(logging.FieldEventType, "hook_completed"),
		logging.String("hook", filepath.Base(hook)),
		logging.Duration("duration", time.Since(started)),
		logging.String("output", trimmed),
	)
	return nil
}
