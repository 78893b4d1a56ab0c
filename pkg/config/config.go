// Package config loads and validates the server configuration for the
// ADO work-item query-handle and bulk-operation core: organization/project
// scoping, handle TTL and sweep cadence, HTTP retry/backoff/rate-limit
// tuning, and the substantive-change analyzer's field and automation-author
// overrides.
package config

import "time"

// ADOTokenResource is the Azure AD resource id used when acquiring bearer
// tokens for the ADO REST API (spec §6, normative constant).
const ADOTokenResource = "499b84ac-1321-427f-aa17-267ca6975798"

// Config is the umbrella configuration object returned by Initialize and
// threaded through C1-C6 at construction time.
type Config struct {
	configPath string

	// Organization and Project scope every ADO REST call C1 makes.
	Organization string `yaml:"organization" validate:"required"`
	Project      string `yaml:"project" validate:"required"`

	// BaseURL defaults to "https://dev.azure.com" and rarely needs
	// overriding outside of tests (pointed at a httptest server there).
	BaseURL string `yaml:"base_url,omitempty"`

	// APIVersion is appended as api-version= to every ADO request.
	APIVersion string `yaml:"api_version,omitempty"`

	Handle    HandleConfig    `yaml:"handle"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Breaker   BreakerConfig   `yaml:"circuit_breaker"`
	Staleness StalenessConfig `yaml:"staleness"`
	Bulk      BulkConfig      `yaml:"bulk"`
	Query     QueryConfig     `yaml:"query"`
}

// HandleConfig controls query-handle lifetime and eviction (spec §4.4).
type HandleConfig struct {
	// TTL is the duration a handle remains resolvable after creation.
	// Defaults to 1h per spec §3 QueryHandle invariant (iv).
	TTL time.Duration `yaml:"ttl,omitempty" validate:"omitempty,gt=0"`

	// SweepInterval is how often the background sweeper scans for expired
	// handles. Spec §4.4 requires "at most once per minute".
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty" validate:"omitempty,gt=0"`
}

// RetryConfig tunes C1's idempotent-GET retry policy (spec §4.1).
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts,omitempty" validate:"omitempty,min=1"`
	BackoffBase    time.Duration `yaml:"backoff_base,omitempty" validate:"omitempty,gt=0"`
	BackoffCap     time.Duration `yaml:"backoff_cap,omitempty" validate:"omitempty,gt=0"`
	JitterFraction float64       `yaml:"jitter_fraction,omitempty" validate:"omitempty,min=0,max=1"`
}

// RateLimitConfig throttles outbound ADO calls proactively, ahead of any
// reactive 429 handling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" validate:"omitempty,gt=0"`
	Burst             int     `yaml:"burst,omitempty" validate:"omitempty,gt=0"`
}

// BreakerConfig tunes the circuit breaker wrapping ADO upstream calls.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures,omitempty" validate:"omitempty,min=1"`
	OpenTimeout         time.Duration `yaml:"open_timeout,omitempty" validate:"omitempty,gt=0"`
}

// StalenessConfig tunes C2's substantive-change analyzer (spec §4.2).
type StalenessConfig struct {
	DefaultRevisionCount int      `yaml:"default_revision_count,omitempty" validate:"omitempty,min=1"`
	MaxRevisionCount     int      `yaml:"max_revision_count,omitempty" validate:"omitempty,min=1"`
	AutomationPatterns   []string `yaml:"automation_patterns,omitempty"`
	SubstantiveFields    []string `yaml:"substantive_fields,omitempty"`
	NonSubstantiveFields []string `yaml:"non_substantive_fields,omitempty"`
}

// BulkConfig tunes C6's default execution options (spec §4.6).
type BulkConfig struct {
	DefaultPerItemConcurrency int     `yaml:"default_per_item_concurrency,omitempty" validate:"omitempty,min=1"`
	DefaultMaxPreviewItems    int     `yaml:"default_max_preview_items,omitempty" validate:"omitempty,min=1"`
	MinConfidenceScore        float64 `yaml:"min_confidence_score,omitempty" validate:"omitempty,min=0,max=1"`
}

// QueryConfig tunes C3's batching and fan-out (spec §4.3).
type QueryConfig struct {
	BatchSize            int `yaml:"batch_size,omitempty" validate:"omitempty,min=1,max=200"`
	DefaultPreviewCount  int `yaml:"default_preview_count,omitempty" validate:"omitempty,min=0"`
	StalenessFanOut      int `yaml:"staleness_fan_out,omitempty" validate:"omitempty,min=1"`
	FullPackageWarnAbove int `yaml:"full_package_warn_above,omitempty" validate:"omitempty,min=1"`
}

// ConfigPath returns the path the configuration was loaded from.
func (c *Config) ConfigPath() string { return c.configPath }
