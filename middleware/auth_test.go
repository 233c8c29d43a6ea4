package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	whoami := func(c *gin.Context) {
		s, ok := utils.GetSession(c)
		c.JSON(http.StatusOK, gin.H{"role": s.Role, "authenticated": ok})
	}
	r.GET("/optional", OptionalAuth(secret), whoami)
	r.GET("/any", AuthRequired(secret), whoami)
	r.GET("/admin", AuthRequired(secret), AdminOnly(), whoami)
	r.GET("/guest", AuthRequired(secret), GuestOnly(), whoami)
	return r
}

func request(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	admin, err := utils.GenerateToken(secret, time.Hour, utils.RoleAdmin, uuid.Nil)
	require.NoError(t, err)
	guest, err := utils.GenerateToken(secret, time.Hour, utils.RoleGuest, uuid.New())
	require.NoError(t, err)
	forged, err := utils.GenerateToken("other-secret", time.Hour, utils.RoleAdmin, uuid.Nil)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(secret, -time.Minute, utils.RoleAdmin, uuid.Nil)
	require.NoError(t, err)

	tests := []struct {
		path  string
		token string
		code  int
	}{
		{"/optional", "", http.StatusOK},
		{"/optional", forged, http.StatusOK},
		{"/any", "", http.StatusUnauthorized},
		{"/any", forged, http.StatusUnauthorized},
		{"/any", expired, http.StatusUnauthorized},
		{"/any", guest, http.StatusOK},
		{"/admin", guest, http.StatusForbidden},
		{"/admin", admin, http.StatusOK},
		{"/guest", admin, http.StatusForbidden},
		{"/guest", guest, http.StatusOK},
	}
	for _, tc := range tests {
		w := request(t, r, tc.path, tc.token)
		assert.Equal(t, tc.code, w.Code, "%s", tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://wedding.example.com"}))
	r.GET("/api/gifts", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/gifts", nil)
	req.Header.Set("Origin", "https://wedding.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://wedding.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
