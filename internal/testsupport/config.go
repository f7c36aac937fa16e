package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"scorepub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Database = filepath.Join(base, "data", "scorepub.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TmpDir = filepath.Join(base, "tmp")
	cfgVal.Paths.HooksDir = ""
	cfgVal.Writer.Backend = config.WriterLocal
	cfgVal.Writer.Root = filepath.Join(base, "html")
	cfgVal.Queue.WriterBackoffSeconds = 0
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Metrics.Listen = ""
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBatchSize overrides the per-batch request cap.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.BatchSize = size
	}
}

// WithMaxAttempts overrides the retry ceiling.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxAttempts = n
	}
}

// WithHooksDir creates a hooks directory under the test root and points the
// config at it.
func WithHooksDir() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "hooks")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir hooks dir: %v", err)
		}
		b.cfg.Paths.HooksDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
