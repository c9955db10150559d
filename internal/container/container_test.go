package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"class-election/internal/config"
	"class-election/internal/handler"
	"class-election/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	return &config.Config{
		Environment:            "development",
		JWTSecret:              "test-secret",
		VoterSessionTTL:        time.Hour,
		AuditSessionTTL:        time.Hour,
		DefaultAuditPassword:   "audit2025",
		DefaultAuditAccessCode: "AUDIT-EESA-2025",
		LoginRatePerMinute:     20,
		LoginRateBurst:         5,
		ResultsCacheTTL:        5 * time.Second,
		GitHubImagesBranch:     "main",
	}
}

func TestNew_MemoryStore(t *testing.T) {
	c, err := New(context.Background(), devConfig(), logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.False(t, c.HasRedis())
	require.NotNil(t, c.Repositories)
	require.NotNil(t, c.Services)
	assert.NotNil(t, c.Services.Ballots)
	assert.NotNil(t, c.Services.Results)
	assert.NotNil(t, c.Services.Voters)
	assert.NotNil(t, c.Services.Candidates)
	assert.NotNil(t, c.Services.Settings)
	assert.NotNil(t, c.Services.Audit)
	assert.False(t, c.Photos.IsConfigured())
	assert.False(t, c.Cache.Enabled())
	assert.Empty(t, c.HealthChecks())
}

func TestNew_ProductionRequiresDatabase(t *testing.T) {
	cfg := devConfig()
	cfg.Environment = "production"

	c, err := New(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := devConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.HasRedis())
	assert.True(t, c.Cache.Enabled())
	require.Len(t, c.HealthChecks(), 1)
	assert.Equal(t, "redis", c.HealthChecks()[0].Name)
	assert.NoError(t, c.HealthChecks()[0].Check(context.Background()))
}

func TestNew_InvalidRedisURLFallsBack(t *testing.T) {
	cfg := devConfig()
	cfg.RedisURL = "invalid://redis-url"

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.HasRedis())
	assert.False(t, c.Cache.Enabled())
}

func TestRouterDeps_ServesHealth(t *testing.T) {
	c, err := New(context.Background(), devConfig(), logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	router := handler.NewRouter(c.RouterDeps("test"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
