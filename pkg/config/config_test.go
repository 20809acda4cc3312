package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macropull/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, "sqlite", cfg.Cache.DurableBackend)
	require.Equal(t, time.Minute, cfg.Cache.TTL.Realtime)
	require.Equal(t, 720*time.Hour, cfg.Cache.TTL.Annual)
	require.Equal(t, 2, cfg.Retry.MaxRetries)
	require.True(t, cfg.Providers.WorldBank.Enabled)
	require.Equal(t, -1, cfg.Providers.WorldBank.MaxRetries)
	require.False(t, cfg.Dedupe)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
cache:
  durable_backend: none
  ttl:
    annual: 48h
retry:
  max_retries: 5
dedupe: true
priority:
  gdp: [localfile, worldbank]
indicators:
  gdp:
    frequency: annual
    worldbank_code: NY.GDP.MKTP.CD
  price:
    frequency: realtime
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "none", cfg.Cache.DurableBackend)
	require.Equal(t, 48*time.Hour, cfg.Cache.TTL.Annual)
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.True(t, cfg.Dedupe)
	require.Equal(t, []string{"localfile", "worldbank"}, cfg.Priority["gdp"])
	require.Equal(t, "NY.GDP.MKTP.CD", cfg.Indicators["gdp"].WorldBankCode)
	require.Equal(t, "realtime", cfg.Indicators["price"].Frequency)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "server:\n  port: -1\n"},
		{name: "bad backend", content: "cache:\n  durable_backend: dynamo\n"},
		{name: "bad log level", content: "logging:\n  level: loud\n"},
		{name: "bad frequency", content: "indicators:\n  gdp:\n    frequency: hourly\n"},
		{name: "localfile without dir", content: "providers:\n  localfile:\n    enabled: true\n"},
		{name: "stream without url", content: "providers:\n  stream:\n    enabled: true\n    indicators: [price]\n"},
		{name: "kafka without brokers", content: "kafka:\n  enabled: true\n"},
		{name: "inverted backoff", content: "retry:\n  backoff_min: 5s\n  backoff_max: 1s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORLDBANK_API_KEY", "secret-token")
	t.Setenv("MACROPULL_CACHE_PATH", "/tmp/override.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	path := writeConfig(t, "environment: test\nkafka:\n  enabled: true\n  brokers: [localhost:9092]\n")

	cfg, err := config.LoadWithEnv(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "secret-token", cfg.Providers.WorldBank.APIKey)
	require.Equal(t, "/tmp/override.db", cfg.Cache.SQLitePath)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithEnvBadPortKeepsConfigured(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	path := writeConfig(t, "environment: test\nserver:\n  port: 8181\n")

	cfg, err := config.LoadWithEnv(path)
	require.NoError(t, err)
	require.Equal(t, 8181, cfg.Server.Port)
}
