package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment overrides, applied after the file and .env layers.
const (
	EnvDB          = "GOLDENGATE_DB"
	EnvBackendAddr = "GOLDENGATE_BACKEND_ADDR"
	EnvLogLevel    = "GOLDENGATE_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	envFile string
	getenv  func(string) string
}

// NewLoader creates a loader reading .env from the working directory.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, envFile: ".env", getenv: os.Getenv}
}

// Load resolves configuration with layered precedence:
// 1. defaults
// 2. the YAML file at path (optional; a missing default file is not an error)
// 3. .env, without overriding variables already set
// 4. GOLDENGATE_* environment variables
// CLI flags are applied by the caller afterwards.
func (l *Loader) Load(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := LoadFromFile(path)
		switch {
		case err == nil:
			l.logger.Debug("loaded config file", slog.String("path", path))
			cfg = fileCfg
		case errors.Is(err, fs.ErrNotExist) && !required:
			l.logger.Debug("no config file", slog.String("path", path))
		default:
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err == nil {
			l.logger.Debug("loaded env file", slog.String("path", l.envFile))
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("failed to load env file", slog.String("path", l.envFile), slog.String("error", err.Error()))
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := l.getenv(EnvDB); v != "" {
		cfg.Store.Path = v
	}
	if v := l.getenv(EnvBackendAddr); v != "" {
		cfg.Backend.Addr = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}
