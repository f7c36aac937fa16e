package config

import "os"

// Writer backend names accepted by writer.backend.
const (
	WriterLocal   = "local"
	WriterS3      = "s3"
	WriterDiscard = "discard"
)

// DefaultBatchSize caps how many requests one batch fetches when
// queue.batch_size is unset.
const DefaultBatchSize = 50

const (
	defaultDatabase              = "~/.local/share/scorepub/scorepub.db"
	defaultLogDir                = "~/.local/share/scorepub/logs"
	defaultLockName              = "scorepub"
	defaultWriterRoot            = "~/.local/share/scorepub/html"
	defaultMaxAttempts           = 25
	defaultWriterBackoffSeconds  = 3
	defaultPurgeAfterDays        = 14
	defaultIntervalSeconds       = 60
	defaultWriterTimeoutSeconds  = 30
	defaultBreakerThreshold      = 5
	defaultBreakerTimeoutSeconds = 60
	defaultHookTimeoutSeconds    = 300
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Database: defaultDatabase,
			LogDir:   defaultLogDir,
			TmpDir:   os.TempDir(),
			LockName: defaultLockName,
		},
		Queue: Queue{
			BatchSize:            DefaultBatchSize,
			MaxAttempts:          defaultMaxAttempts,
			WriterBackoffSeconds: defaultWriterBackoffSeconds,
			PurgeAfterDays:       defaultPurgeAfterDays,
		},
		Intervals: Intervals{
			Regatta:    23,
			Season:     57,
			School:     123,
			Conference: 123,
			Sailor:     639,
			File:       59,
		},
		Writer: Writer{
			Backend:               WriterLocal,
			Root:                  defaultWriterRoot,
			TimeoutSeconds:        defaultWriterTimeoutSeconds,
			BreakerThreshold:      defaultBreakerThreshold,
			BreakerTimeoutSeconds: defaultBreakerTimeoutSeconds,
		},
		Hooks: Hooks{
			Fatal:          true,
			TimeoutSeconds: defaultHookTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Announcements:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
