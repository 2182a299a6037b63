package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, id uint, role models.UserRole) string {
	t.Helper()
	u := &models.User{Role: role}
	u.ID = id
	signed, err := utils.GenerateToken(u, "secret", time.Hour)
	require.NoError(t, err)
	return signed
}

func router() *gin.Engine {
	r := gin.New()
	auth := r.Group("/", AuthMiddleware("secret"))
	auth.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c)})
	})
	auth.GET("/admin", AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := router()
	tests := []struct {
		name   string
		setup  func(req *http.Request)
		path   string
		status int
	}{
		{"missing token", func(*http.Request) {}, "/me", 401},
		{"garbage token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, "/me", 401},
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token(t, 4, models.UserRoleUser)) }, "/me", 200},
		{"query token", func(req *http.Request) { req.URL.RawQuery = "token=" + token(t, 4, models.UserRoleUser) }, "/me", 200},
		{"non admin", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token(t, 4, models.UserRoleUser)) }, "/admin", 403},
		{"admin", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token(t, 1, models.UserRoleAdmin)) }, "/admin", 204},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	rl.Cleanup(-time.Second)
	assert.Empty(t, rl.visitors)
}
