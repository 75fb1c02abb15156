package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, &Config{
		Port:       "8081",
		RedisAddr:  "redis-server:6379",
		CounterKey: "visits",
		Mode:       "getset",
		Seed:       true,
		LogLevel:   "info",
	}, cfg)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("COUNTER_MODE", "incr")
	t.Setenv("SEED_COUNTER", "false")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, "incr", cfg.Mode)
	assert.False(t, cfg.Seed)
}

func TestLoad_EnvFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(fn, []byte("COUNTER_KEY=hits\nLOG_LEVEL=debug\n"), 0644))
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("COUNTER_KEY") })

	cfg := Load(fn)
	assert.Equal(t, "hits", cfg.CounterKey)
	assert.Equal(t, "warn", cfg.LogLevel)
}
