package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/metrics"
	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:     ":0",
		BaseURL:        "http://localhost:8000",
		FrontendURL:    "http://localhost:3000",
		DatabaseDriver: "sqlite",
		DatabaseDSN:    ":memory:",
		DBInitTimeout:  5 * time.Second,
		AppSecret:      "test-secret",
		MachineID:      "test-machine",
		StateTTL:       10 * time.Minute,
		RefreshLeeway:  60 * time.Second,
		OAuthTimeout:   5 * time.Second,
		RateLimitRate:  "30-M",
	}
}

func TestInitializeProviderRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.GoogleClientID = "google-id"
	cfg.GoogleClientSecret = "google-secret"

	registry := initializeProviderRegistry(cfg, http.DefaultClient)

	google, ok := registry.Get(models.ProviderGoogle)
	require.True(t, ok)
	assert.True(t, google.Configured())

	// Slack is registered but unconfigured without client credentials.
	slack, ok := registry.Get(models.ProviderSlack)
	require.True(t, ok)
	assert.False(t, slack.Configured())
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	db, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)

	app := &Application{Config: cfg, DB: db}
	app.MetricsRecorder = metrics.NewNoopMetrics()
	app.Registry = initializeProviderRegistry(cfg, http.DefaultClient)
	require.NoError(t, app.initializeBusinessLayer())

	h := initializeHandlers(cfg, app.CredentialService, app.SharedService)
	router, err := setupRouter(cfg, db, h, app.MetricsRecorder)
	require.NoError(t, err)

	t.Run("health endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
	})

	t.Run("status endpoint wired", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unconfigured provider rejects authorization", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/google/authorize", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSetupRateLimiting(t *testing.T) {
	t.Run("disabled returns passthrough", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimitEnabled = false
		mw, err := setupRateLimiting(cfg)
		require.NoError(t, err)
		require.NotNil(t, mw)
	})

	t.Run("invalid rate fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimitEnabled = true
		cfg.RateLimitRate = "bogus"
		_, err := setupRateLimiting(cfg)
		assert.Error(t, err)
	})
}
