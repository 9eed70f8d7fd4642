// Package config loads pinvault settings from an optional YAML file,
// falling back to safe defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/pinguard"
)

// LockoutStep is one row of the lockout escalation table
type LockoutStep struct {
	Attempts uint32 `yaml:"attempts"`
	Minutes  uint32 `yaml:"minutes"`
}

// Config holds the tunable knobs: KDF cost and the lockout table
type Config struct {
	KDFIterations uint32        `yaml:"kdf_iterations"`
	Lockout       []LockoutStep `yaml:"lockout"`
}

// Default returns the production defaults
func Default() *Config {
	return &Config{
		KDFIterations: crypto.DefaultIters,
		Lockout: []LockoutStep{
			{Attempts: 5, Minutes: 5},
			{Attempts: 10, Minutes: 15},
			{Attempts: 15, Minutes: 60},
		},
	}
}

// Load reads configuration from path. A missing file is not an error;
// defaults apply. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.KDFIterations == 0 {
		cfg.KDFIterations = crypto.DefaultIters
	}
	if len(cfg.Lockout) == 0 {
		cfg.Lockout = Default().Lockout
	}
	if err := cfg.Policy().Validate(); err != nil {
		return nil, fmt.Errorf("invalid lockout table: %w", err)
	}
	return cfg, nil
}

// Policy converts the configured lockout table into a pinguard policy
func (c *Config) Policy() pinguard.Policy {
	steps := make([]pinguard.Step, 0, len(c.Lockout))
	for _, s := range c.Lockout {
		steps = append(steps, pinguard.Step{
			Attempts: s.Attempts,
			Lockout:  time.Duration(s.Minutes) * time.Minute,
		})
	}
	return pinguard.Policy{Steps: steps}
}
