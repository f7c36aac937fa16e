package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateWriter(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database must be set")
	}
	if strings.ContainsAny(c.Paths.LockName, `/\`) {
		return fmt.Errorf("paths.lock_name %q must not contain path separators", c.Paths.LockName)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.BatchSize <= 0 {
		return errors.New("queue.batch_size must be positive")
	}
	if c.Queue.PurgeAfterDays < 0 {
		return errors.New("queue.purge_after_days must not be negative")
	}
	if c.Queue.WriterBackoffSeconds < 0 {
		return errors.New("queue.writer_backoff_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"intervals.regatta":    c.Intervals.Regatta,
		"intervals.season":     c.Intervals.Season,
		"intervals.school":     c.Intervals.School,
		"intervals.conference": c.Intervals.Conference,
		"intervals.sailor":     c.Intervals.Sailor,
		"intervals.file":       c.Intervals.File,
	})
}

func (c *Config) validateWriter() error {
	switch c.Writer.Backend {
	case WriterLocal:
		if c.Writer.Root == "" {
			return errors.New("writer.root must be set when writer.backend is local")
		}
	case WriterS3:
		if c.Writer.S3.Bucket == "" {
			return errors.New("writer.s3.bucket must be set when writer.backend is s3")
		}
		if c.Writer.S3.Region == "" {
			return errors.New("writer.s3.region must be set when writer.backend is s3")
		}
	case WriterDiscard:
	default:
		return fmt.Errorf("writer.backend: unsupported value %q (want local, s3, or discard)", c.Writer.Backend)
	}
	if c.Writer.BreakerThreshold < 0 {
		return errors.New("writer.breaker_threshold must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
