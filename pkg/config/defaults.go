package config

import "time"

// defaultConfig returns the built-in defaults applied to any field left
// zero-valued by the loaded YAML, collapsed into one function since this
// package has a single flat config tree rather than several registries.
func defaultConfig() *Config {
	return &Config{
		BaseURL:    "https://dev.azure.com",
		APIVersion: "7.1",
		Handle: HandleConfig{
			TTL:           time.Hour,
			SweepInterval: time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BackoffBase:    500 * time.Millisecond,
			BackoffCap:     5 * time.Second,
			JitterFraction: 0.25,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		Staleness: StalenessConfig{
			DefaultRevisionCount: 50,
			MaxRevisionCount:     200,
			AutomationPatterns:   []string{"Build Service", "Project Collection Service Accounts"},
			SubstantiveFields: []string{
				"System.Title",
				"System.Description",
				"Microsoft.VSTS.Common.AcceptanceCriteria",
				"Microsoft.VSTS.TCM.ReproSteps",
				"System.State",
				"System.AssignedTo",
				"Microsoft.VSTS.Common.Priority",
				"Microsoft.VSTS.Scheduling.StoryPoints",
				"System.Tags",
			},
			NonSubstantiveFields: []string{
				"System.AreaPath",
				"System.IterationPath",
				"System.ChangedDate",
				"System.Watermark",
				"System.Rev",
			},
		},
		Bulk: BulkConfig{
			DefaultPerItemConcurrency: 8,
			DefaultMaxPreviewItems:    10,
			MinConfidenceScore:        0.6,
		},
		Query: QueryConfig{
			BatchSize:            200,
			DefaultPreviewCount:  10,
			StalenessFanOut:      16,
			FullPackageWarnAbove: 50,
		},
	}
}

// applyDefaults fills every zero-valued field of cfg from defaultConfig()
// as a loader step, after YAML parsing and before validation.
func applyDefaults(cfg *Config) {
	d := defaultConfig()

	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = d.APIVersion
	}
	if cfg.Handle.TTL == 0 {
		cfg.Handle.TTL = d.Handle.TTL
	}
	if cfg.Handle.SweepInterval == 0 {
		cfg.Handle.SweepInterval = d.Handle.SweepInterval
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if cfg.Retry.BackoffBase == 0 {
		cfg.Retry.BackoffBase = d.Retry.BackoffBase
	}
	if cfg.Retry.BackoffCap == 0 {
		cfg.Retry.BackoffCap = d.Retry.BackoffCap
	}
	if cfg.Retry.JitterFraction == 0 {
		cfg.Retry.JitterFraction = d.Retry.JitterFraction
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = d.RateLimit.RequestsPerSecond
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = d.RateLimit.Burst
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker.ConsecutiveFailures = d.Breaker.ConsecutiveFailures
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker.OpenTimeout = d.Breaker.OpenTimeout
	}
	if cfg.Staleness.DefaultRevisionCount == 0 {
		cfg.Staleness.DefaultRevisionCount = d.Staleness.DefaultRevisionCount
	}
	if cfg.Staleness.MaxRevisionCount == 0 {
		cfg.Staleness.MaxRevisionCount = d.Staleness.MaxRevisionCount
	}
	if len(cfg.Staleness.AutomationPatterns) == 0 {
		cfg.Staleness.AutomationPatterns = d.Staleness.AutomationPatterns
	}
	if len(cfg.Staleness.SubstantiveFields) == 0 {
		cfg.Staleness.SubstantiveFields = d.Staleness.SubstantiveFields
	}
	if len(cfg.Staleness.NonSubstantiveFields) == 0 {
		cfg.Staleness.NonSubstantiveFields = d.Staleness.NonSubstantiveFields
	}
	if cfg.Bulk.DefaultPerItemConcurrency == 0 {
		cfg.Bulk.DefaultPerItemConcurrency = d.Bulk.DefaultPerItemConcurrency
	}
	if cfg.Bulk.DefaultMaxPreviewItems == 0 {
		cfg.Bulk.DefaultMaxPreviewItems = d.Bulk.DefaultMaxPreviewItems
	}
	if cfg.Bulk.MinConfidenceScore == 0 {
		cfg.Bulk.MinConfidenceScore = d.Bulk.MinConfidenceScore
	}
	if cfg.Query.BatchSize == 0 {
		cfg.Query.BatchSize = d.Query.BatchSize
	}
	if cfg.Query.DefaultPreviewCount == 0 {
		cfg.Query.DefaultPreviewCount = d.Query.DefaultPreviewCount
	}
	if cfg.Query.StalenessFanOut == 0 {
		cfg.Query.StalenessFanOut = d.Query.StalenessFanOut
	}
	if cfg.Query.FullPackageWarnAbove == 0 {
		cfg.Query.FullPackageWarnAbove = d.Query.FullPackageWarnAbove
	}
}
