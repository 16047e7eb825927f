package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

type stubTokens map[string]string

func (s stubTokens) ParseAccess(token string) (uuid.UUID, string, error) {
	role, ok := s[token]
	if !ok {
		return uuid.Nil, "", errors.New("invalid token")
	}
	return uuid.New(), role, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:              "test",
		MediaStoragePath: t.TempDir(),
		RateLimitLimit:   100,
		RateLimitPeriod:  time.Minute,
		RequestTimeout:   time.Second,
	}
	tokens := stubTokens{"customer-token": models.RoleCustomer, "admin-token": models.RoleAdmin}
	return SetupRouter(cfg, Handlers{}, tokens)
}

func serve(r http.Handler, method, target, token string) int {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSetupRouter_CategoryWritesRequireAdmin(t *testing.T) {
	r := newTestRouter(t)
	id := uuid.NewString()

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/categories", ""))
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/categories", "customer-token"))
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPatch, "/api/categories/"+id, "customer-token"))
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/api/categories/"+id, "customer-token"))
}

func TestSetupRouter_ProtectedRoutes(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/notifications", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/services", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/reviews", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/ws", "bad-token"))
}

func TestSetupRouter_ValidatesIDs(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/categories/not-a-uuid", ""))
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/services/42", ""))
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/reviews/stats/abc", ""))
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/users/abc/reviews/received", ""))
}

func TestSetupRouter_UnknownRoute(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/orders", ""))
}
