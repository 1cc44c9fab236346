package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHoldConfig_Defaults(t *testing.T) {
	t.Setenv("HOLD_TTL", "")
	t.Setenv("HOLD_SWEEP_INTERVAL", "bogus")

	cfg := LoadHoldConfig()

	assert.Equal(t, 15*time.Minute, cfg.TTL)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
}

func TestLoadHoldConfig_FromEnv(t *testing.T) {
	t.Setenv("HOLD_TTL", "90s")
	t.Setenv("HOLD_SWEEP_INTERVAL", "250ms")

	cfg := LoadHoldConfig()

	assert.Equal(t, 90*time.Second, cfg.TTL)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := LoadRateLimitConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "ip_order_route", cfg.KeyStrategy)
}

func TestLoadRateLimitConfig_Burst(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "7")
	assert.Equal(t, 7, LoadRateLimitConfig().Capacity)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "")

	cfg := LoadCacheConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, time.Second, cfg.TTL)
}

func TestRedisOptions_HostPortOverridesAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	assert.Equal(t, "cache:6380", RedisOptions().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "1")
	opts := RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.NotNil(t, opts.TLSConfig)
}

func TestLoadClient(t *testing.T) {
	t.Run("missing file keeps defaults", func(t *testing.T) {
		cfg, err := LoadClient(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultClientConfig(), cfg)
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seatpicker.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://seats.internal:9000
flight_id: FL-777
feed: ws
poll_interval: 2s
rows: 10
`), 0o600))

		cfg, err := LoadClient(path)
		require.NoError(t, err)
		assert.Equal(t, "http://seats.internal:9000", cfg.BaseURL)
		assert.Equal(t, "FL-777", cfg.FlightID)
		assert.Equal(t, "ws", cfg.Feed)
		assert.Equal(t, 2*time.Second, cfg.PollInterval)
		assert.Equal(t, 10, cfg.Rows)
		assert.Equal(t, 6, cfg.Cols)
	})

	t.Run("bad feed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seatpicker.yaml")
		require.NoError(t, os.WriteFile(path, []byte("feed: carrier-pigeon\n"), 0o600))
		_, err := LoadClient(path)
		assert.ErrorContains(t, err, "carrier-pigeon")
	})
}
