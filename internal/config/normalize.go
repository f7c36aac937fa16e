package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWriter(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TmpDir) == "" {
		c.Paths.TmpDir = os.TempDir()
	}
	if c.Paths.TmpDir, err = expandPath(c.Paths.TmpDir); err != nil {
		return fmt.Errorf("paths.tmp_dir: %w", err)
	}
	c.Paths.LockName = strings.TrimSpace(c.Paths.LockName)
	if c.Paths.LockName == "" {
		c.Paths.LockName = defaultLockName
	}
	if c.Paths.HooksDir, err = expandPath(strings.TrimSpace(c.Paths.HooksDir)); err != nil {
		return fmt.Errorf("paths.hooks_dir: %w", err)
	}
	if c.Paths.ChecksumFile, err = expandPath(strings.TrimSpace(c.Paths.ChecksumFile)); err != nil {
		return fmt.Errorf("paths.checksum_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeWriter() error {
	c.Writer.Backend = strings.ToLower(strings.TrimSpace(c.Writer.Backend))
	if c.Writer.Backend == "" {
		c.Writer.Backend = WriterLocal
	}
	var err error
	if c.Writer.Root, err = expandPath(strings.TrimSpace(c.Writer.Root)); err != nil {
		return fmt.Errorf("writer.root: %w", err)
	}
	s3 := &c.Writer.S3
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Region = strings.TrimSpace(s3.Region)
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	if s3.AccessKeyID == "" {
		if value, ok := os.LookupEnv("SCOREPUB_S3_ACCESS_KEY"); ok {
			s3.AccessKeyID = strings.TrimSpace(value)
		}
	}
	if s3.SecretKey == "" {
		if value, ok := os.LookupEnv("SCOREPUB_S3_SECRET_KEY"); ok {
			s3.SecretKey = strings.TrimSpace(value)
		}
	}
	if c.Writer.TimeoutSeconds <= 0 {
		c.Writer.TimeoutSeconds = defaultWriterTimeoutSeconds
	}
	if c.Writer.BreakerTimeoutSeconds <= 0 {
		c.Writer.BreakerTimeoutSeconds = defaultBreakerTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeQueue() {
	if c.Queue.BatchSize <= 0 {
		c.Queue.BatchSize = DefaultBatchSize
	}
	if c.Queue.MaxAttempts < 0 {
		c.Queue.MaxAttempts = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
