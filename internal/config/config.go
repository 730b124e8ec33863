// Package config loads golden-gate settings from YAML, .env and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/golden-gate/internal/canary"
	"github.com/danielpatrickdp/golden-gate/internal/eval"
	"github.com/danielpatrickdp/golden-gate/internal/gate"
	"github.com/danielpatrickdp/golden-gate/internal/lifecycle"
	"github.com/danielpatrickdp/golden-gate/internal/promotion"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

// Config is the complete golden-gate configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store"`
	Fixtures  string           `yaml:"fixtures"`
	Backend   BackendConfig    `yaml:"backend"`
	Log       LogConfig        `yaml:"log"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Runner    runner.Config    `yaml:"runner"`
	Match     eval.MatchConfig `yaml:"match"`
	Policy    promotion.Policy `yaml:"policy"`
	Canary    canary.Criteria  `yaml:"canary"`
	Guard     gate.GuardConfig `yaml:"guard"`
	Lifecycle lifecycle.Config `yaml:"lifecycle"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// BackendConfig configures the generation backend. Recording, when set,
// replays stored predictions instead of dialing Addr.
type BackendConfig struct {
	Addr          string        `yaml:"addr"`
	Recording     string        `yaml:"recording"`
	RatePerSecond float64       `yaml:"rate_per_second"` // 0 disables client-side limiting
	Burst         int           `yaml:"burst"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables the export
}

// DefaultConfig returns a Config with the standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Path: "goldengate.db"},
		Fixtures: "golden/cases.yaml",
		Backend: BackendConfig{
			Addr:        "localhost:50051",
			Burst:       1,
			DialTimeout: 10 * time.Second,
		},
		Log:       LogConfig{Level: "info", Format: "text"},
		Runner:    runner.DefaultConfig(),
		Match:     eval.DefaultMatchConfig(),
		Policy:    promotion.DefaultPolicy(),
		Canary:    canary.DefaultCriteria(),
		Guard:     gate.DefaultGuardConfig(),
		Lifecycle: lifecycle.DefaultConfig(),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Backend.Addr == "" && c.Backend.Recording == "" {
		return fmt.Errorf("backend.addr or backend.recording is required")
	}
	if c.Backend.RatePerSecond < 0 {
		return fmt.Errorf("backend.rate_per_second must be >= 0")
	}
	if c.Runner.Repeats < 1 {
		return fmt.Errorf("runner.repeats must be >= 1")
	}
	if c.Runner.Workers < 1 {
		return fmt.Errorf("runner.workers must be >= 1")
	}
	if c.Runner.MaxAttempts < 1 {
		return fmt.Errorf("runner.max_attempts must be >= 1")
	}
	if c.Runner.AttemptTimeout <= 0 {
		return fmt.Errorf("runner.attempt_timeout must be positive")
	}
	for tag, w := range c.Runner.TagWeights {
		if w <= 0 {
			return fmt.Errorf("runner.tag_weights[%s] must be positive", tag)
		}
	}
	if c.Match.RenameCredit < 0 || c.Match.RenameCredit >= 1 {
		return fmt.Errorf("match.rename_credit must be in [0,1)")
	}
	if c.Match.RenameSimilarity <= 0 || c.Match.RenameSimilarity > 1 {
		return fmt.Errorf("match.rename_similarity must be in (0,1]")
	}
	if c.Match.AbsoluteTolerance < 0 || c.Match.RelativeTolerance < 0 {
		return fmt.Errorf("match tolerances must be >= 0")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Canary.WindowDays < 1 {
		return fmt.Errorf("canary.window_days must be >= 1")
	}
	if c.Canary.MinObservations < 1 {
		return fmt.Errorf("canary.min_observations must be >= 1")
	}
	if c.Lifecycle.EscalationCount < 1 {
		return fmt.Errorf("lifecycle.escalation_count must be >= 1")
	}
	if c.Lifecycle.MaxCanaryDuration <= 0 {
		return fmt.Errorf("lifecycle.max_canary_duration must be positive")
	}
	return nil
}

// LoadFromFile reads a YAML file over the defaults. Unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := decodeInto(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func decodeInto(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
