package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tokens *auth.TokenManager, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware(), AuthMiddleware(tokens))
	handlers := append(extra, func(c *gin.Context) {
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": role})
	})
	r.GET("/private", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Minute)
	r := newRouter(tokens)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	token, err := tokens.GenerateToken("venue-1", models.UserRoleVenue)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"venue-1","role":"venue"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestRequirePermission(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Minute)
	r := newRouter(tokens, RequirePermission(auth.PermScreeningRun))

	for role, want := range map[models.UserRole]int{
		models.UserRoleVenue:  http.StatusOK,
		models.UserRoleAdmin:  http.StatusOK,
		models.UserRoleArtist: http.StatusForbidden,
	} {
		token, err := tokens.GenerateToken("u", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestRateLimitPerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens := auth.NewTokenManager("secret", time.Minute)
	r := newRouter(tokens, RateLimitPerUser(NewRedisLimiter(client), "upload", 2, time.Minute))
	token, err := tokens.GenerateToken("artist-1", models.UserRoleArtist)
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRequestIDMiddleware_KeepsValidClientID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", w.Header().Get("X-Request-ID"))
}

func TestOptionalAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Minute)
	r := gin.New()
	r.GET("/files", OptionalAuthMiddleware(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	token, err := tokens.GenerateToken("artist-1", models.UserRoleArtist)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "artist-1", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
