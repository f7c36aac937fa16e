package lock

import (
	"errors"
	"os"
	"strconv"
	"testing"
)

// deadPID is above any kernel pid_max so kill(pid, 0) reports ESRCH.
const deadPID = 1 << 30

func TestAcquireWritesPIDAndReleaseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	h, err := Acquire(dir, "scorepub", "regatta")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	data, err := os.ReadFile(h.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid())+"\n" {
		t.Fatalf("lock file contents = %q", data)
	}
	if err := h.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second Release must be a no-op: %v", err)
	}
	if _, err := os.Stat(h.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}
}

func TestAcquireConflictsWithLiveHolder(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "scorepub", "school")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	if _, err := Acquire(dir, "scorepub", "school"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != strconv.Itoa(os.Getppid())+"\n" {
		t.Fatalf("conflicting acquire must not touch the file, got %q", data)
	}
}

func TestAcquireConflictsWithHeldFlock(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir, "scorepub", "sailor")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(dir, "scorepub", "sailor"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning for a second handle, got %v", err)
	}
}

func TestAcquireOverwritesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "scorepub", "file")
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID)+"\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	h, err := Acquire(dir, "scorepub", "file")
	if err != nil {
		t.Fatalf("expected stale lock to be replaced, got %v", err)
	}
	defer h.Release()
	if h.PID() != os.Getpid() {
		t.Fatalf("handle pid = %d", h.PID())
	}
}

func TestVerifyDetectsLostAndStolen(t *testing.T) {
	dir := t.TempDir()
	h, err := Acquire(dir, "scorepub", "season")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()

	if err := os.WriteFile(h.Path(), []byte("12345\n"), 0o644); err != nil {
		t.Fatalf("rewrite lock: %v", err)
	}
	if err := h.Verify(); !errors.Is(err, ErrLockStolen) || !IsIntegrityError(err) {
		t.Fatalf("expected ErrLockStolen, got %v", err)
	}

	if err := os.Remove(h.Path()); err != nil {
		t.Fatalf("remove lock: %v", err)
	}
	if err := h.Verify(); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestQueryIsReadOnly(t *testing.T) {
	dir := t.TempDir()

	status, err := Query(dir, "scorepub", "conference")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected not running without a lock file")
	}
	if _, err := os.Stat(status.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Query must not create the lock file, stat err=%v", err)
	}

	if err := os.WriteFile(status.Path, []byte(strconv.Itoa(deadPID)+"\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	status, err = Query(dir, "scorepub", "conference")
	if err != nil || status.Running || status.PID != deadPID {
		t.Fatalf("expected stale status, got %#v err=%v", status, err)
	}

	h, err := Acquire(dir, "scorepub", "conference")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release()
	status, err = Query(dir, "scorepub", "conference")
	if err != nil || !status.Running || status.PID != os.Getpid() {
		t.Fatalf("expected live status, got %#v err=%v", status, err)
	}
}
