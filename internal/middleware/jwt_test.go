package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(config *JWTConfig, optional bool) *gin.Engine {
	router := gin.New()

	auth := NewJWTAuth(config)
	if optional {
		auth = NewOptionalJWTAuth(config)
	}

	router.GET("/whoami", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetUserID(c),
			"username": GetUsername(c),
		})
	})
	return router
}

func TestJWTAuthRoundTrip(t *testing.T) {
	config := &JWTConfig{Secret: "test-secret"}
	router := newAuthRouter(config, false)

	token, err := GenerateToken("user-123", "alice", config.Secret, 3600)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-123")
	assert.Contains(t, w.Body.String(), "alice")
}

func TestJWTAuthMissingToken(t *testing.T) {
	router := newAuthRouter(&JWTConfig{Secret: "test-secret"}, false)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	router := newAuthRouter(&JWTConfig{Secret: "right-secret"}, false)

	token, err := GenerateToken("user-123", "alice", "wrong-secret", 3600)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	config := &JWTConfig{Secret: "test-secret"}
	router := newAuthRouter(config, false)

	token, err := GenerateToken("user-123", "alice", config.Secret, -60)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	router := newAuthRouter(&JWTConfig{Secret: "test-secret"}, true)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)
}

func TestOptionalJWTResolvesUser(t *testing.T) {
	config := &JWTConfig{Secret: "test-secret"}
	router := newAuthRouter(config, true)

	token, err := GenerateToken("user-456", "bob", config.Secret, 3600)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-456")
}
