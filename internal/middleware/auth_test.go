package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/metrics"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/services"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/store"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthEnv(t *testing.T) (*services.TokenService, *services.AuthService, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		BaseURL:                "http://localhost:8080",
		JWTSecret:              "middleware-test-secret-0123456789ab",
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		OTPLength:              6,
		OTPExpiration:          10 * time.Minute,
	}

	noop := metrics.NewNoopMetrics()
	audit := services.NewAuditService(s, false, 8, noop)
	tokens := services.NewTokenService(s, cfg, token.NewLocalTokenProvider(cfg), audit, noop)
	auth := services.NewAuthService(s, cfg, tokens, services.LogOTPSender{}, audit, noop)

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        "mw@example.com",
		PasswordHash: "x",
		Role:         models.RolePatient,
		Active:       true,
	}
	require.NoError(t, s.CreateUser(user))

	return tokens, auth, user
}

func newProtectedRouter(tokens *services.TokenService, auth *services.AuthService, roles ...string) *gin.Engine {
	r := gin.New()
	group := r.Group("/", RequireAuth(tokens, auth))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	})
	return r
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	tokens, auth, user := setupAuthEnv(t)
	pair, err := tokens.IssuePair(context.Background(), user)
	require.NoError(t, err)

	r := newProtectedRouter(tokens, auth)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID)
}

func TestRequireAuthRejectsMissingAndMalformedHeader(t *testing.T) {
	tokens, auth, _ := setupAuthEnv(t)
	r := newProtectedRouter(tokens, auth)

	for _, header := range []string{"", "Token abc", "Bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	}
}

func TestRequireAuthRejectsRevokedToken(t *testing.T) {
	tokens, auth, user := setupAuthEnv(t)
	pair, err := tokens.IssuePair(context.Background(), user)
	require.NoError(t, err)
	require.NoError(t, tokens.Logout(context.Background(), user.ID))

	r := newProtectedRouter(tokens, auth)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleBlocksWrongRole(t *testing.T) {
	tokens, auth, user := setupAuthEnv(t)
	pair, err := tokens.IssuePair(context.Background(), user)
	require.NoError(t, err)

	r := newProtectedRouter(tokens, auth, models.RoleClinician)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", MetricsAuth("scrape-secret"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Authorization", "Bearer scrape-secret")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("open when unconfigured", func(t *testing.T) {
		open := gin.New()
		open.GET("/metrics", MetricsAuth(""), func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		open.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
