package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton, following go-playground/validator's
// own recommendation to cache the struct-tag reflection once rather than
// per call. Declarative `validate:"..."` tags cover this config surface
// fully, so there is no hand-written field-by-field walk to maintain.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation over cfg and cross-field checks that
// tags cannot express (e.g. BackoffCap >= BackoffBase).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Retry.BackoffCap < cfg.Retry.BackoffBase {
		return fmt.Errorf("retry.backoff_cap (%s) must be >= retry.backoff_base (%s)",
			cfg.Retry.BackoffCap, cfg.Retry.BackoffBase)
	}
	if cfg.Staleness.MaxRevisionCount < cfg.Staleness.DefaultRevisionCount {
		return fmt.Errorf("staleness.max_revision_count (%d) must be >= staleness.default_revision_count (%d)",
			cfg.Staleness.MaxRevisionCount, cfg.Staleness.DefaultRevisionCount)
	}

	return nil
}
