package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	Database     string `toml:"database"`
	LogDir       string `toml:"log_dir"`
	TmpDir       string `toml:"tmp_dir"`
	LockName     string `toml:"lock_name"`
	HooksDir     string `toml:"hooks_dir"`
	ChecksumFile string `toml:"checksum_file"`
}

// Queue contains batch sizing and retry policy.
type Queue struct {
	BatchSize            int `toml:"batch_size"`
	MaxAttempts          int `toml:"max_attempts"`
	WriterBackoffSeconds int `toml:"writer_backoff_seconds"`
	PurgeAfterDays       int `toml:"purge_after_days"`
}

// Intervals contains the continuous-mode sleep per axis, in seconds.
type Intervals struct {
	Regatta    int `toml:"regatta"`
	Season     int `toml:"season"`
	School     int `toml:"school"`
	Conference int `toml:"conference"`
	Sailor     int `toml:"sailor"`
	File       int `toml:"file"`
}

// S3 contains settings for the s3 writer backend.
type S3 struct {
	Bucket         string `toml:"bucket"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	Prefix         string `toml:"prefix"`
	AccessKeyID    string `toml:"access_key_id"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Writer selects and tunes the output writer.
type Writer struct {
	Backend               string `toml:"backend"`
	Root                  string `toml:"root"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	BreakerThreshold      int    `toml:"breaker_threshold"`
	BreakerTimeoutSeconds int    `toml:"breaker_timeout_seconds"`
	S3                    S3     `toml:"s3"`
}

// Hooks controls post-batch executables.
type Hooks struct {
	Fatal          bool `toml:"fatal"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Announcements  bool   `toml:"announcements"`
	Errors         bool   `toml:"errors"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scorepub.
//
// Configuration sections by subsystem:
//   - Paths: database, logs, lock files, hooks, deployment checksum
//   - Queue: batch cap, retry ceiling, writer failure backoff
//   - Intervals: continuous-mode polling per axis
//   - Writer: output backend (local, s3, discard) and circuit breaker
//   - Hooks: post-batch executable policy
//   - Notifications: ntfy announcements and fatal alerts
//   - Metrics: Prometheus listen address
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Intervals     Intervals     `toml:"intervals"`
	Writer        Writer        `toml:"writer"`
	Hooks         Hooks         `toml:"hooks"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scorepub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scorepub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.TmpDir, filepath.Dir(c.Paths.Database)}
	if c.Writer.Backend == WriterLocal {
		dirs = append(dirs, c.Writer.Root)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the continuous-mode sleep for the named axis.
func (c *Config) PollInterval(axis string) time.Duration {
	var seconds int
	switch axis {
	case "regatta":
		seconds = c.Intervals.Regatta
	case "season":
		seconds = c.Intervals.Season
	case "school":
		seconds = c.Intervals.School
	case "conference":
		seconds = c.Intervals.Conference
	case "sailor":
		seconds = c.Intervals.Sailor
	case "file":
		seconds = c.Intervals.File
	}
	if seconds <= 0 {
		seconds = defaultIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// PurgeAfter returns how long completed requests are kept. Zero keeps them.
func (c *Config) PurgeAfter() time.Duration {
	return time.Duration(c.Queue.PurgeAfterDays) * 24 * time.Hour
}

// WriterBackoff returns the sleep applied after a failed write.
func (c *Config) WriterBackoff() time.Duration {
	return time.Duration(c.Queue.WriterBackoffSeconds) * time.Second
}

// HookTimeout returns the per-hook execution limit, zero meaning none.
func (c *Config) HookTimeout() time.Duration {
	return time.Duration(c.Hooks.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
