package daemonctl_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"scorepub/internal/daemonctl"
	"scorepub/internal/lock"
	"scorepub/internal/queue"
	"scorepub/internal/testsupport"
)

func TestStripDetach(t *testing.T) {
	got := daemonctl.StripDetach([]string{"regatta", "--detach", "-d", "--detach=true", "-c", "x.toml"})
	want := []string{"regatta", "-d", "-c", "x.toml"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("StripDetach = %v, want %v", got, want)
	}
}

func TestQueryReportsRunningAndStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.TmpDir = t.TempDir()

	status, err := daemonctl.Query(cfg, queue.AxisFile)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if status.Running {
		t.Fatalf("expected no publisher")
	}

	handle, err := lock.Acquire(cfg.Paths.TmpDir, cfg.Paths.LockName, string(queue.AxisFile))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer handle.Release()

	status, err = daemonctl.Query(cfg, queue.AxisFile)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %#v", status)
	}

	all, err := daemonctl.QueryAll(cfg)
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if !all[queue.AxisFile].Running || all[queue.AxisRegatta].Running {
		t.Fatalf("unexpected QueryAll %#v", all)
	}
}

func TestLaunchWritesDetachedOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	logDir := t.TempDir()
	script := filepath.Join(t.TempDir(), "fake-publisher")
	body := "#!/bin/sh\necho \"args:$*\" \"detached:$" + daemonctl.DetachedEnv + "\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	result, err := daemonctl.Launch(context.Background(), script, daemonctl.LaunchOptions{
		Axis:   queue.AxisSailor,
		LogDir: logDir,
		Args:   []string{"sailor", "-d", "--detach"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if result.PID <= 0 || !strings.HasPrefix(filepath.Base(result.OutputPath), "sailor-") {
		t.Fatalf("unexpected result %#v", result)
	}

	var data []byte
	for i := 0; i < 200; i++ {
		data, _ = os.ReadFile(result.OutputPath)
		if len(data) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := strings.TrimSpace(string(data)); got != "args:sailor -d detached:1" {
		t.Fatalf("detached output = %q", got)
	}
}
