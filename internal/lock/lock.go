package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

var (
	// ErrAlreadyRunning indicates another live process owns the axis lock.
	ErrAlreadyRunning = errors.New("another daemon already holds the lock")
	// ErrLockLost indicates the lock file disappeared while the daemon held it.
	ErrLockLost = errors.New("lock file lost")
	// ErrLockStolen indicates the lock file now names a different process.
	ErrLockStolen = errors.New("lock file stolen")
)

// IsIntegrityError reports whether err means the held lock can no longer be trusted.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrLockLost) || errors.Is(err, ErrLockStolen)
}

// processAlive probes a PID with signal 0. EPERM still means the process exists.
var processAlive = func(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Path returns the lock file location for an axis.
func Path(dir, base, axis string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s", base, axis))
}

// Handle is an acquired axis lock. The zero value is not usable.
type Handle struct {
	path string
	pid  int
	fl   *flock.Flock

	mu       sync.Mutex
	released bool
}

// Acquire takes the lock for axis or returns ErrAlreadyRunning.
func Acquire(dir, base, axis string) (*Handle, error) {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(base) == "" || strings.TrimSpace(axis) == "" {
		return nil, errors.New("lock: dir, base, and axis are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := Path(dir, base, axis)
	self := os.Getpid()

	owner, err := readPID(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, errMalformed) {
		return nil, fmt.Errorf("read lock file %q: %w", path, err)
	}
	if owner > 0 && owner != self && processAlive(owner) {
		return nil, fmt.Errorf("%w: pid %d (%s)", ErrAlreadyRunning, owner, path)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrAlreadyRunning, path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(self)+"\n"), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write lock file %q: %w", path, err)
	}
	return &Handle{path: path, pid: self, fl: fl}, nil
}

// Path returns the lock file location.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// PID returns the process id recorded by this handle.
func (h *Handle) PID() int {
	if h == nil {
		return 0
	}
	return h.pid
}

// Verify confirms the lock file still exists and still names this process.
func (h *Handle) Verify() error {
	if h == nil {
		return ErrLockLost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("%w: handle released", ErrLockLost)
	}
	owner, err := readPID(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrLockLost, h.path)
	}
	if errors.Is(err, errMalformed) {
		return fmt.Errorf("%w: %s", ErrLockStolen, err)
	}
	if err != nil {
		return fmt.Errorf("read lock file %q: %w", h.path, err)
	}
	if owner != h.pid {
		return fmt.Errorf("%w: %s now names pid %d", ErrLockStolen, h.path, owner)
	}
	return nil
}

// Release deletes the lock file when it still names this process and drops
// the flock. Calling it more than once is a no-op.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	var errs []error
	if owner, err := readPID(h.path); err == nil && owner == h.pid {
		if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove lock file: %w", err))
		}
	}
	if err := h.fl.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlock: %w", err))
	}
	return errors.Join(errs...)
}

// Status describes what a read-only probe found.
type Status struct {
	Running bool
	PID     int
	Path    string
}

// Query reports whether a live daemon owns the axis lock. It never creates
// or modifies the lock file.
func Query(dir, base, axis string) (Status, error) {
	path := Path(dir, base, axis)
	status := Status{Path: path}
	pid, err := readPID(path)
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		if errors.Is(err, errMalformed) {
			return status, nil
		}
		return status, fmt.Errorf("read lock file %q: %w", path, err)
	}
	status.PID = pid
	status.Running = processAlive(pid)
	return status, nil
}

var errMalformed = errors.New("malformed pid")

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", errMalformed, raw)
	}
	return pid, nil
}
