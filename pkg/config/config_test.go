package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "B.D Library", cfg.Fees.OrgName)
	assert.Equal(t, int64(500), cfg.Fees.DefaultFee)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, "students", cfg.Firestore.StudentsCollection)
	assert.False(t, cfg.Redis.Enabled)
	require.NotNil(t, cfg.Fees.Location)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")
	t.Setenv("EXPORTS_SIGNED_URL_TTL", "not-a-duration")
	t.Setenv("FEES_DEFAULT_FEE", "-20")
	t.Setenv("FEES_TIMEZONE", "Not/AZone")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
	assert.Equal(t, int64(0), cfg.Fees.DefaultFee)
	assert.Equal(t, time.UTC, cfg.Fees.Location)
}
