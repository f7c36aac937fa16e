// Package daemonctl holds the process-control helpers the CLI uses around a
// publisher: detaching into the background and probing whether one is live.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"scorepub/internal/config"
	"scorepub/internal/lock"
	"scorepub/internal/queue"
)

// DetachedEnv marks a process started by Launch so it never detaches again.
const DetachedEnv = "SCOREPUB_DETACHED"

// LaunchOptions controls a detached launch.
type LaunchOptions struct {
	Axis   queue.Axis
	LogDir string
	// Args are the original command-line arguments, without the program name.
	Args []string
}

// LaunchResult describes the background process.
type LaunchResult struct {
	PID        int
	OutputPath string
}

var commandContext = exec.CommandContext

// Detached reports whether the current process was started by Launch.
func Detached() bool {
	return os.Getenv(DetachedEnv) == "1"
}

// Launch re-executes executablePath in a new session with --detach removed
// and output appended to {log_dir}/detached/{axis}-{timestamp}.out.
func Launch(ctx context.Context, executablePath string, opts LaunchOptions) (LaunchResult, error) {
	if strings.TrimSpace(executablePath) == "" {
		return LaunchResult{}, fmt.Errorf("resolve executable: executable path is empty")
	}
	if strings.TrimSpace(opts.LogDir) == "" {
		return LaunchResult{}, errors.New("detach: log directory is required")
	}
	dir := filepath.Join(opts.LogDir, "detached")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return LaunchResult{}, fmt.Errorf("create detached log dir: %w", err)
	}
	outputPath := filepath.Join(dir, fmt.Sprintf("%s-%s.out", opts.Axis, time.Now().UTC().Format("20060102T150405")))
	output, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return LaunchResult{}, fmt.Errorf("open detached output: %w", err)
	}
	defer output.Close()

	// The child outlives ctx, so it is only used to satisfy the constructor.
	proc := commandContext(context.WithoutCancel(ctx), executablePath, StripDetach(opts.Args)...)
	proc.Stdin = nil
	proc.Stdout = output
	proc.Stderr = output
	proc.Env = append(os.Environ(), DetachedEnv+"=1")
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return LaunchResult{}, fmt.Errorf("launch publisher: %w", err)
	}
	result := LaunchResult{PID: proc.Process.Pid, OutputPath: outputPath}
	return result, proc.Process.Release()
}

// StripDetach removes --detach from args.
func StripDetach(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--detach" || arg == "--detach=true" {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// Query reports whether a live publisher owns the axis lock without touching
// the queue or the lock.
func Query(cfg *config.Config, axis queue.Axis) (lock.Status, error) {
	if cfg == nil {
		return lock.Status{}, errors.New("configuration not available")
	}
	return lock.Query(cfg.Paths.TmpDir, cfg.Paths.LockName, string(axis))
}

// QueryAll probes every axis.
func QueryAll(cfg *config.Config) (map[queue.Axis]lock.Status, error) {
	out := make(map[queue.Axis]lock.Status, len(queue.Axes()))
	for _, axis := range queue.Axes() {
		status, err := Query(cfg, axis)
		if err != nil {
			return nil, err
		}
		out[axis] = status
	}
	return out, nil
}
