package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/graphlab/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 600*time.Millisecond, cfg.AutoPlayInterval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "graphlab.yaml", `
http_addr: ":9000"
redis_addr: "localhost:6379"
redis_db: 2
session_ttl: 10m
sweep_schedule: "@every 30s"
log_format: json
`)
	t.Setenv("GRAPHLAB_REDIS_DB", "5")
	t.Setenv("GRAPHLAB_SESSION_TTL", "1h")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.RedisDB, "environment overrides the file")
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "@every 30s", cfg.SweepSchedule)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep their default")
}

func TestLoad_DotEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", "GRAPHLAB_HTTP_ADDR=:7000\nGRAPHLAB_LOG_LEVEL=debug\n")
	t.Setenv("GRAPHLAB_LOG_LEVEL", "warn")

	cfg, err := config.Load("", dotenv, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "warn", cfg.LogLevel, "real environment wins over .env")

	// godotenv sets variables for the whole process; undo it for other tests.
	require.NoError(t, os.Unsetenv("GRAPHLAB_HTTP_ADDR"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "http_port: 80\n"},
		{"bad duration", "session_ttl: soon\n"},
		{"bad schedule", "sweep_schedule: whenever\n"},
		{"bad level", "log_level: loud\n"},
		{"bad format", "log_format: xml\n"},
		{"not yaml", "http_addr: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "c.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
