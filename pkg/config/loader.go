package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Initialize loads, defaults, and validates the server configuration.
// This is the primary entry point, collapsed to a single YAML file since
// this server has one flat config tree rather than several registries.
func Initialize(ctx context.Context, configPath string) (*Config, error) {
	log := slog.With("config_path", configPath)
	log.InfoContext(ctx, "initializing configuration")

	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.InfoContext(ctx, "configuration initialized",
		"organization", cfg.Organization,
		"project", cfg.Project,
		"handle_ttl", cfg.Handle.TTL)

	return cfg, nil
}

// load reads configPath, expands ${VAR} references, and unmarshals YAML.
func load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(configPath, ErrConfigNotFound)
		}
		return nil, NewLoadError(configPath, err)
	}

	data = ExpandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(configPath, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	cfg.configPath = configPath

	return &cfg, nil
}
