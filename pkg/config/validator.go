package config

import (
	"errors"
	"fmt"
)

// Validator runs a fail-fast, dependency-ordered set of checks over a
// loaded Config, mirroring codeready-toolchain/tarsy's pkg/config/validator.go
// shape: one method per concern, stop at the first failure so the operator
// gets a single actionable error instead of a wall of unrelated ones.
type Validator struct {
	cfg *Config
}

// NewValidator builds a Validator bound to cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ErrInvalidConfig wraps every validation failure so callers can
// errors.Is-match on "bad config" without parsing the message.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateAll runs every check in dependency order, returning the first
// failure wrapped in ErrInvalidConfig.
func (v *Validator) ValidateAll() error {
	checks := []func() error{
		v.validateStore,
		v.validateFetcher,
		v.validateMerge,
		v.validateValidator,
		v.validateQueue,
		v.validateCache,
		v.validateMonitoring,
		v.validateCompletion,
		v.validateSystem,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (v *Validator) validateStore() error {
	s := v.cfg.Store
	if s.RecordStoreURL == "" && v.cfg.Queue.Backend == "postgres" {
		return errors.New("store.record_store_url is required when queue.backend is postgres")
	}
	if s.ReportsDir == "" {
		return errors.New("store.reports_dir must not be empty")
	}
	return nil
}

func (v *Validator) validateFetcher() error {
	f := v.cfg.Fetcher
	if f.BurstSize <= 0 {
		return errors.New("fetcher.burst_size must be positive")
	}
	if f.RequestsPerSecond <= 0 {
		return errors.New("fetcher.requests_per_second must be positive")
	}
	if f.CooldownSeconds < 0 {
		return errors.New("fetcher.cooldown_seconds must not be negative")
	}
	if f.MaxRetries < 0 {
		return errors.New("fetcher.max_retries must not be negative")
	}
	if f.MaxConcurrent <= 0 {
		return errors.New("fetcher.max_concurrent must be positive")
	}
	if f.RequestTimeout <= 0 {
		return errors.New("fetcher.request_timeout must be positive")
	}
	if f.UserAgent == "" {
		return errors.New("fetcher.user_agent must not be empty")
	}
	return nil
}

func (v *Validator) validateMerge() error {
	m := v.cfg.Merge
	if m.SimilarityThreshold <= 0 || m.SimilarityThreshold > 1 {
		return errors.New("merge.similarity_threshold must be in (0, 1]")
	}
	switch m.Strategy {
	case MergeChamberAPriority, MergeChamberBPriority, MergeMostComplete, MergeLatestUpdate, MergeFields:
	default:
		return fmt.Errorf("merge.strategy %q is not a recognized strategy", m.Strategy)
	}
	return nil
}

func (v *Validator) validateValidator() error {
	vc := v.cfg.Validator
	switch vc.DefaultLevel {
	case LevelBasic, LevelStandard, LevelComprehensive:
	default:
		return fmt.Errorf("validator.default_level %q is not recognized", vc.DefaultLevel)
	}
	for _, level := range []ValidationLevel{LevelBasic, LevelStandard, LevelComprehensive} {
		if len(vc.RequiredFields[level]) == 0 {
			return fmt.Errorf("validator.required_fields has no entries for level %q", level)
		}
	}
	if vc.MinJapaneseLen <= 0 {
		return errors.New("validator.min_japanese_len must be positive")
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.WorkerCount <= 0 {
		return errors.New("queue.worker_count must be positive")
	}
	if q.MaxConcurrentTasks <= 0 {
		return errors.New("queue.max_concurrent_tasks must be positive")
	}
	if q.PollInterval <= 0 {
		return errors.New("queue.poll_interval must be positive")
	}
	if q.DefaultTimeout <= 0 {
		return errors.New("queue.default_timeout must be positive")
	}
	switch q.Backend {
	case "memory":
	case "postgres":
		if q.PostgresDSN == "" {
			return errors.New("queue.postgres_dsn is required when queue.backend is postgres")
		}
	default:
		return fmt.Errorf("queue.backend %q must be \"memory\" or \"postgres\"", q.Backend)
	}
	return nil
}

func (v *Validator) validateCache() error {
	c := v.cfg.Cache
	if c.URL == "" {
		return errors.New("cache.url must not be empty")
	}
	if c.DefaultTTL <= 0 {
		return errors.New("cache.default_ttl must be positive")
	}
	if c.StaleThreshold <= 0 || c.StaleThreshold > c.DefaultTTL {
		return errors.New("cache.stale_threshold must be positive and no greater than cache.default_ttl")
	}
	return nil
}

func (v *Validator) validateMonitoring() error {
	m := v.cfg.Monitoring
	if m.EvaluationInterval <= 0 {
		return errors.New("monitoring.evaluation_interval must be positive")
	}
	if m.HealthCheckInterval <= 0 {
		return errors.New("monitoring.health_check_interval must be positive")
	}
	if len(m.AlertEmails) > 0 && m.SMTPServer == "" {
		return errors.New("monitoring.smtp_server is required when monitoring.alert_emails is set")
	}
	return nil
}

func (v *Validator) validateCompletion() error {
	c := v.cfg.Completion
	if c.BatchSize <= 0 {
		return errors.New("completion.batch_size must be positive")
	}
	if c.MaxConcurrentTasks <= 0 {
		return errors.New("completion.max_concurrent_tasks must be positive")
	}
	if c.RateLimitDelay < 0 {
		return errors.New("completion.rate_limit_delay must not be negative")
	}
	return nil
}

func (v *Validator) validateSystem() error {
	if v.cfg.System.Port <= 0 || v.cfg.System.Port > 65535 {
		return errors.New("system.port must be in 1-65535")
	}
	return nil
}
