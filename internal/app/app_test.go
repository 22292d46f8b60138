package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/storage"
	"gigboard_backend/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.Storage.BasePath = t.TempDir()

	store, err := storage.NewStorage(storageConfig(cfg))
	require.NoError(t, err)

	router, worker := SetupRouter(cfg, nil, store, nil, ws.NewWebSocketManager())
	require.NotNil(t, worker)
	return router, cfg.Storage.BasePath
}

func TestSetupRouter_PublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestSetupRouter_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/media"},
		{http.MethodGet, "/api/v1/media/user/me"},
		{http.MethodPost, "/api/v1/screening/run"},
		{http.MethodGet, "/api/v1/applications"},
		{http.MethodGet, "/ws"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestSetupRouter_StaticServesOnlyPublicPrefix(t *testing.T) {
	router, base := newTestRouter(t)

	for _, dir := range []string{"media/u-1/epk", "private/u-1/epk"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(base, dir, "a.txt"), []byte("hi"), 0o644))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/media/u-1/epk/a.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/private/u-1/epk/a.txt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
