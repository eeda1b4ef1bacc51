// Package config reads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings.
type Config struct {
	Address        string        `env:"FACTURKIT_ADDRESS" envDefault:":8080"`
	UploadDir      string        `env:"FACTURKIT_UPLOAD_DIR" envDefault:"/tmp/facturkit/uploads"`
	OutputDir      string        `env:"FACTURKIT_OUTPUT_DIR" envDefault:"/tmp/facturkit/output"`
	MaxUploadBytes int64         `env:"FACTURKIT_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	SweepInterval  time.Duration `env:"FACTURKIT_SWEEP_INTERVAL" envDefault:"5m"`
	Retention      time.Duration `env:"FACTURKIT_RETENTION" envDefault:"30m"`
	Profile        string        `env:"FACTURKIT_PROFILE" envDefault:"EN16931"`
	ValidateOutput bool          `env:"FACTURKIT_VALIDATE" envDefault:"true"`
}

// Load parses the environment and applies lower bounds on the numeric
// settings.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * time.Minute
	}
	return cfg, nil
}

// EnsureDirs creates the upload and output roots.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}
