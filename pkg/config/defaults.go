package config

import "time"

// Defaults returns the built-in configuration, matching the midpoints of
// spec.md's documented default ranges (e.g. burst_size 3-5 -> 4).
func Defaults() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			BurstSize:         4,
			RequestsPerSecond: 0.4,
			CooldownSeconds:   15,
			RespectRetryAfter: true,
			MaxRetries:        3,
			MaxAgeHours:       24,
			MaxConcurrent:     3,
			RequestTimeout:    30 * time.Second,
			UserAgent:         "ingest-core/1.0 (+https://github.com/seiji-watch/ingest-core)",
			CacheDir:          "./cache",
		},
		Merge: MergeConfig{
			SimilarityThreshold: 0.7,
			Strategy:            MergeMostComplete,
		},
		Validator: ValidatorConfig{
			DefaultLevel: LevelStandard,
			RequiredFields: map[ValidationLevel][]string{
				LevelBasic:         {"bill_id", "title", "chamber_of_origin"},
				LevelStandard:      {"bill_id", "title", "chamber_of_origin", "session_number", "status", "submitter_kind"},
				LevelComprehensive: {"bill_id", "title", "chamber_of_origin", "session_number", "status", "submitter_kind", "outline", "category"},
			},
			OptionalFields: []string{
				"background", "expected_effects", "key_provisions", "related_laws",
				"sponsoring_ministry", "submitting_members", "supporting_members",
			},
			MinJapaneseLen: 10,
		},
		Queue: QueueConfig{
			WorkerCount:             5,
			MaxConcurrentTasks:      10,
			PollInterval:            1 * time.Second,
			PollIntervalJitter:      250 * time.Millisecond,
			DefaultTimeout:          5 * time.Minute,
			ResultTTL:               1 * time.Hour,
			GracefulShutdownTimeout: 30 * time.Second,
			MaxBatchAgeHours:        24,
			Backend:                 "memory",
		},
		Cache: CacheConfig{
			URL:            "local-cache://localhost:6379",
			DefaultTTL:     24 * time.Hour,
			StaleThreshold: 6 * time.Hour,
		},
		Monitoring: MonitoringConfig{
			EvaluationInterval:  300 * time.Second,
			HealthCheckInterval: 60 * time.Second,
			MetricsCacheTTL:     300 * time.Second,
		},
		Completion: CompletionConfig{
			BatchSize:          50,
			MaxConcurrentTasks: 10,
			RateLimitDelay:     2 * time.Second,
			TaskTimeout:        30 * time.Second,
		},
		Store: StoreConfig{
			ReportsDir: "./reports",
		},
		System: SystemConfig{
			Port:            8080,
			MockDataEnabled: true,
		},
	}
}
