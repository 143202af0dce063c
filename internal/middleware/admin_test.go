package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "test-jwt-secret"
	testAPIKey = "test-admin-key"
)

func newTestAdmin(t *testing.T, secret, key string) *AdminMiddleware {
	t.Helper()
	am, err := NewAdminMiddleware(secret, key, bcrypt.MinCost, nil)
	require.NoError(t, err)
	return am
}

func adminRouter(am *AdminMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(am.RequireAdmin())
	router.GET("/admin/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"subject": c.GetString(ContextAuthSubject),
			"method":  c.GetString(ContextAuthMethod),
		})
	})
	return router
}

func serveAdmin(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewAdminMiddleware(t *testing.T) {
	am := newTestAdmin(t, testSecret, testAPIKey)
	assert.True(t, am.Auth().Enabled())
	require.NotNil(t, am.keyHash)
	assert.NotContains(t, string(am.keyHash), testAPIKey)

	// Out of range costs fall back to the default.
	am, err := NewAdminMiddleware("", testAPIKey, 99, nil)
	require.NoError(t, err)
	cost, err := bcrypt.Cost(am.keyHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestAdminMiddleware_RequireAdmin(t *testing.T) {
	am := newTestAdmin(t, testSecret, testAPIKey)
	router := adminRouter(am)

	adminToken, err := am.Auth().GenerateToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	viewerToken, err := am.Auth().GenerateToken("viewer", "viewer", time.Hour)
	require.NoError(t, err)
	expiredToken, err := am.Auth().GenerateToken("ops", RoleAdmin, -time.Hour)
	require.NoError(t, err)
	foreignToken, err := NewAuthMiddleware("other-secret").GenerateToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"valid API key", map[string]string{"X-API-Key": testAPIKey}, http.StatusOK, `"method":"api_key"`},
		{"invalid API key", map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized, "Invalid API key"},
		{"valid admin token", map[string]string{"Authorization": "Bearer " + adminToken}, http.StatusOK, `"subject":"ops"`},
		{"lowercase bearer", map[string]string{"Authorization": "bearer " + adminToken}, http.StatusOK, `"method":"jwt"`},
		{"non-admin role", map[string]string{"Authorization": "Bearer " + viewerToken}, http.StatusForbidden, "Admin role required"},
		{"expired token", map[string]string{"Authorization": "Bearer " + expiredToken}, http.StatusUnauthorized, "Token expired"},
		{"foreign signature", map[string]string{"Authorization": "Bearer " + foreignToken}, http.StatusUnauthorized, "Invalid token"},
		{"malformed header", map[string]string{"Authorization": "Token abc"}, http.StatusUnauthorized, "Invalid authorization header format"},
		{"no credentials", nil, http.StatusUnauthorized, "Admin credentials required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveAdmin(router, tt.headers)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAdminMiddleware_NoCredentialsConfigured(t *testing.T) {
	am := newTestAdmin(t, "", "")
	router := adminRouter(am)

	assert.Equal(t, http.StatusUnauthorized, serveAdmin(router, map[string]string{"X-API-Key": ""}).Code)
	assert.Equal(t, http.StatusUnauthorized, serveAdmin(router, map[string]string{"X-API-Key": "anything"}).Code)

	token, err := NewAuthMiddleware("any").GenerateToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serveAdmin(router, map[string]string{"Authorization": "Bearer " + token}).Code)
}

func TestAuthMiddleware_Tokens(t *testing.T) {
	am := NewAuthMiddleware(testSecret)

	token, err := am.GenerateToken("ops", RoleAdmin, time.Minute)
	require.NoError(t, err)
	claims, err := am.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{Role: RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = am.ValidateToken(unsigned)
	assert.Error(t, err)

	_, err = NewAuthMiddleware("").GenerateToken("ops", RoleAdmin, time.Minute)
	assert.Error(t, err)
}
