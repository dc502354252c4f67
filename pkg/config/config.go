// Package config loads and validates the ingestion platform's configuration
// from a YAML file overlaid with environment variables, following the
// teacher's loader/envexpand/merge/validator split (pkg/config in
// codeready-toolchain/tarsy).
package config

import "time"

// Config is the umbrella configuration object returned by Initialize and
// threaded through every component at process start (spec.md §9's
// "explicit dependencies wired at a single composition root").
type Config struct {
	configPath string

	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Merge      MergeConfig      `yaml:"merge"`
	Validator  ValidatorConfig  `yaml:"validator"`
	Queue      QueueConfig      `yaml:"queue"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Completion CompletionConfig `yaml:"completion"`
	Store      StoreConfig      `yaml:"store"`
	System     SystemConfig     `yaml:"system"`
}

// ConfigPath returns the directory or file the configuration was loaded from.
func (c *Config) ConfigPath() string { return c.configPath }

// FetcherConfig controls C1's rate limiting, retry, robots, and dedup behavior.
type FetcherConfig struct {
	BurstSize         int           `yaml:"burst_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CooldownSeconds   int           `yaml:"cooldown_seconds"`
	RespectRetryAfter bool          `yaml:"respect_retry_after"`
	MaxRetries        int           `yaml:"max_retries"`
	MaxAgeHours       int           `yaml:"max_age_hours"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	UserAgent         string        `yaml:"user_agent"`
	AllowedHosts      []string      `yaml:"allowed_hosts"`
	CacheDir          string        `yaml:"cache_dir"`
}

// MergeStrategy selects the cross-chamber field-resolution strategy (C6).
type MergeStrategy string

const (
	MergeChamberAPriority MergeStrategy = "chamber_A_priority"
	MergeChamberBPriority MergeStrategy = "chamber_B_priority"
	MergeMostComplete     MergeStrategy = "most_complete"
	MergeLatestUpdate     MergeStrategy = "latest_update"
	MergeFields           MergeStrategy = "merge_fields"
)

// MergeConfig controls C6's matching and resolution behavior.
type MergeConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	Strategy            MergeStrategy `yaml:"strategy"`
}

// ValidationLevel is the three-tier strictness C7 operates at.
type ValidationLevel string

const (
	LevelBasic         ValidationLevel = "basic"
	LevelStandard      ValidationLevel = "standard"
	LevelComprehensive ValidationLevel = "comprehensive"
)

// ValidatorConfig controls C7's required-field sets per level.
type ValidatorConfig struct {
	DefaultLevel    ValidationLevel     `yaml:"default_level"`
	RequiredFields  map[ValidationLevel][]string `yaml:"required_fields"`
	OptionalFields  []string            `yaml:"optional_fields"`
	MinJapaneseLen  int                 `yaml:"min_japanese_len"`
}

// QueueConfig controls C12's worker pool sizing and polling.
type QueueConfig struct {
	WorkerCount             int           `yaml:"worker_count"`
	MaxConcurrentTasks      int           `yaml:"max_concurrent_tasks"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	PollIntervalJitter      time.Duration `yaml:"poll_interval_jitter"`
	DefaultTimeout          time.Duration `yaml:"default_timeout"`
	ResultTTL               time.Duration `yaml:"result_ttl"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
	MaxBatchAgeHours        int           `yaml:"max_batch_age_hours"`
	Backend                 string        `yaml:"backend"` // "memory" or "postgres"
	PostgresDSN             string        `yaml:"postgres_dsn"`
}

// CacheConfig controls C13's TTL and stale-while-revalidate thresholds.
type CacheConfig struct {
	URL             string        `yaml:"url"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	StaleThreshold  time.Duration `yaml:"stale_threshold"`
}

// MonitoringConfig controls C14's loop intervals and notification settings.
type MonitoringConfig struct {
	EvaluationInterval  time.Duration `yaml:"evaluation_interval"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	MetricsCacheTTL     time.Duration `yaml:"metrics_cache_ttl"`

	SMTPServer   string `yaml:"smtp_server"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	AlertEmails  []string `yaml:"alert_emails"`

	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`

	SlackWebhookURL string `yaml:"slack_webhook_url"`
	WebhookURL      string `yaml:"webhook_url"`
}

// CompletionConfig controls C10's batching.
type CompletionConfig struct {
	BatchSize          int           `yaml:"batch_size"`
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
	RateLimitDelay     time.Duration `yaml:"rate_limit_delay"`
	TaskTimeout        time.Duration `yaml:"task_timeout"`
}

// StoreConfig describes the external record store connection (spec.md §6 —
// interface only; these fields are passed to whatever RecordStore
// implementation is wired at the composition root).
type StoreConfig struct {
	RecordStoreURL    string `yaml:"record_store_url"`
	RecordStoreKey    string `yaml:"record_store_key"`
	RecordStoreBaseID string `yaml:"record_store_base_id"`
	ReportsDir        string `yaml:"reports_dir"`
}

// SystemConfig groups process-wide settings.
type SystemConfig struct {
	Port            int  `yaml:"port"`
	MockDataEnabled bool `yaml:"mock_data_enabled"`
}

// Stats summarizes the loaded configuration for the health endpoint.
type Stats struct {
	QueueWorkers   int
	CacheConfigured bool
	MonitoringRules int
}
