// Package config resolves graphlab settings from defaults, a YAML file, a
// .env file and GRAPHLAB_* environment variables, in increasing precedence.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/graphlab/internal/logging"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GRAPHLAB_"

// Config holds the process settings.
type Config struct {
	HTTPAddr         string        `mapstructure:"http_addr" yaml:"http_addr"`
	RedisAddr        string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix      string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	SessionTTL       time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	LockTTL          time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	SweepSchedule    string        `mapstructure:"sweep_schedule" yaml:"sweep_schedule"`
	AutoPlayInterval time.Duration `mapstructure:"autoplay_interval" yaml:"autoplay_interval"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat        string        `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		RedisPrefix:      "graphlab:session:",
		SessionTTL:       30 * time.Minute,
		LockTTL:          30 * time.Second,
		SweepSchedule:    "@every 1m",
		AutoPlayInterval: 600 * time.Millisecond,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// keys lists the settings by their file and environment names.
var keys = []string{
	"http_addr", "redis_addr", "redis_password", "redis_db", "redis_prefix",
	"session_ttl", "lock_ttl", "sweep_schedule", "autoplay_interval",
	"log_level", "log_format",
}

// Load builds the configuration. path may be empty; dotenv files that do not
// exist are ignored.
func Load(path string, dotenv ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	for _, f := range dotenv {
		// godotenv.Load never overrides variables already set in the environment.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := decode(fromEnv(os.LookupEnv), &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// fromEnv collects the GRAPHLAB_* variables that are set.
func fromEnv(lookup func(string) (string, bool)) map[string]any {
	raw := map[string]any{}
	for _, k := range keys {
		if v, ok := lookup(EnvPrefix + strings.ToUpper(k)); ok {
			raw[k] = v
		}
	}
	return raw
}

func decode(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr must not be empty"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("session_ttl must not be negative"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("lock_ttl must be positive"))
	}
	if c.AutoPlayInterval <= 0 {
		errs = append(errs, errors.New("autoplay_interval must be positive"))
	}
	if c.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("sweep_schedule: %w", err))
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, logging.WithFormat(format)), nil
}
