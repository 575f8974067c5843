package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/formboard/internal/config"
)

func TestBuildInfrastructureDefaults(t *testing.T) {
	infra, err := BuildInfrastructure(&config.Config{})
	require.NoError(t, err)

	assert.NotNil(t, infra.Cache)
	assert.NotNil(t, infra.Resolver)
	assert.Nil(t, infra.RateLimiter)
	assert.Nil(t, infra.Registry)
	assert.Nil(t, infra.Metrics)
}

func TestBuildInfrastructureOptionalParts(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.Window = time.Minute
	cfg.Metrics.Enabled = true

	infra, err := BuildInfrastructure(cfg)
	require.NoError(t, err)
	require.NotNil(t, infra.RateLimiter)
	require.NotNil(t, infra.Registry)
	require.NotNil(t, infra.Metrics)

	res, err := infra.RateLimiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	families, err := infra.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuildInfrastructureRejectsBadRateLimit(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true

	_, err := BuildInfrastructure(cfg)
	require.Error(t, err)
}

func TestBuildInfrastructureRequiresConfig(t *testing.T) {
	_, err := BuildInfrastructure(nil)
	require.Error(t, err)
}
