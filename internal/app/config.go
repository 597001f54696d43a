package app

import (
	"errors"

	"github.com/google/uuid"

	"github.com/healthmetrics/cascade/internal/identity"
)

// Config holds everything an App instance needs to run.
type Config struct {
	SettingsPath string // hcl file or directory
	BaseDir      string // run artifacts live under here

	MockRun    bool
	PrintGraph bool
	Workers    int
	LogFormat  string
	LogLevel   string

	// RunID attaches to an existing run's artifacts; nil starts a new run.
	RunID *uuid.UUID

	// Optional job selectors; nil means unconstrained.
	LocationID *int
	Recipe     *string
	Sex        *identity.Sex
	Name       *string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SettingsPath == "" {
		return nil, errors.New("SettingsPath is a required configuration field and cannot be empty")
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "."
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &cfg, nil
}
