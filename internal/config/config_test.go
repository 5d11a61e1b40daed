package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	t.Setenv("UPSTREAM_A_URL", "http://a:8080")
	t.Setenv("UPSTREAM_B_URL", "http://b:8080")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/payments", cfg.Upstreams.PayPath)
	assert.Equal(t, "Authorization", cfg.Auth.HeaderName)
	assert.Equal(t, 50*time.Millisecond, cfg.RequestTimeout())
	assert.Equal(t, 5*time.Millisecond, cfg.HedgeDelay())
	assert.Equal(t, 2048, cfg.Engine.ConcurrencyLimit)
	assert.Equal(t, 0.30, cfg.Breaker.FailRate)
	assert.Equal(t, 20, cfg.Breaker.MinSamples)
	assert.Equal(t, 5*time.Second, cfg.BreakerOpenFor())
	assert.Equal(t, 500000, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_A_URL", "http://a:8080")
	t.Setenv("UPSTREAM_B_URL", "http://b:8080")
	t.Setenv("PORT", "8088")
	t.Setenv("REQUEST_TIMEOUT_MS", "120")
	t.Setenv("HEDGE_DELAY_MS", "40")
	t.Setenv("CB_FAIL_RATE", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 120*time.Millisecond, cfg.RequestTimeout())
	assert.Equal(t, 40*time.Millisecond, cfg.HedgeDelay())
	assert.Equal(t, 0.5, cfg.Breaker.FailRate)
}

func TestLoad_RequiredUpstreams(t *testing.T) {
	t.Setenv("UPSTREAM_A_URL", "")
	t.Setenv("UPSTREAM_B_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_A_URL")
}

func TestLoad_HedgeMustBeBelowTimeout(t *testing.T) {
	t.Setenv("UPSTREAM_A_URL", "http://a:8080")
	t.Setenv("UPSTREAM_B_URL", "http://b:8080")
	t.Setenv("REQUEST_TIMEOUT_MS", "10")
	t.Setenv("HEDGE_DELAY_MS", "10")

	_, err := Load("")
	require.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Setenv("UPSTREAM_A_URL", "http://a:8080")
	t.Setenv("UPSTREAM_B_URL", "http://b:8080")
	t.Setenv("AUTH_HEADER_VALUE", "topsecret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "***", cfg.Redacted().Auth.HeaderValue)
	assert.Equal(t, "topsecret", cfg.Auth.HeaderValue, "redaction must not mutate the original")
}
