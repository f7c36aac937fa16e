package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeHook(t *testing.T, dir, name, script string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), mode); err != nil {
		t.Fatalf("write hook %s: %v", name, err)
	}
}

func TestDiscoverSkipsNonExecutables(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "20-purge", "#!/bin/sh\nexit 0\n", 0o755)
	writeHook(t, dir, "10-sync", "#!/bin/sh\nexit 0\n", 0o755)
	writeHook(t, dir, "README", "notes", 0o644)
	writeHook(t, dir, ".hidden", "#!/bin/sh\nexit 0\n", 0o755)

	hooks, err := NewRunner(dir, 0, nil).Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(hooks) != 2 || filepath.Base(hooks[0]) != "10-sync" || filepath.Base(hooks[1]) != "20-purge" {
		t.Fatalf("unexpected hooks: %v", hooks)
	}
}

func TestRunPassesBatchDetails(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "seen.txt")
	writeHook(t, dir, "10-record", "#!/bin/sh\n{ echo \"$SCOREPUB_AXIS $SCOREPUB_BATCH_ID $SCOREPUB_WRITTEN\"; cat; } > "+out+"\n", 0o755)

	err := NewRunner(dir, time.Minute, nil).Run(context.Background(), Batch{
		Axis:    "regatta",
		BatchID: "b-1",
		Written: []string{"/s26/champs/index.html"},
		Retired: []string{"/f25/champs/"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read hook output: %v", err)
	}
	want := "regatta b-1 1\n/s26/champs/index.html\n/f25/champs/\n"
	if string(data) != want {
		t.Fatalf("hook saw %q, want %q", data, want)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "second-ran")
	writeHook(t, dir, "10-fail", "#!/bin/sh\necho purge failed\nexit 3\n", 0o755)
	writeHook(t, dir, "20-after", "#!/bin/sh\ntouch "+marker+"\n", 0o755)

	err := NewRunner(dir, 0, nil).Run(context.Background(), Batch{Axis: "school"})
	if !errors.Is(err, ErrHookFailed) {
		t.Fatalf("expected ErrHookFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "purge failed") {
		t.Fatalf("expected hook output in error, got %v", err)
	}
	if _, statErr := os.Stat(marker); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("hooks after a failure must not run")
	}
}

func TestRunWithoutDirectoryIsNoop(t *testing.T) {
	if err := NewRunner("", 0, nil).Run(context.Background(), Batch{}); err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope")
	if err := NewRunner(missing, 0, nil).Run(context.Background(), Batch{}); err != nil {
		t.Fatalf("missing dir: %v", err)
	}
}
