package common

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/http/middleware"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

func newContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestCurrentUserID(t *testing.T) {
	c := newContext("/")
	_, err := CurrentUserID(c)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	id := uuid.New()
	c.Set(middleware.ContextUserIDKey, id)
	got, err := CurrentUserID(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestQueryParsers(t *testing.T) {
	id := uuid.New()
	c := newContext("/?provider_id=" + id.String() + "&is_active=false&skip=5&bad=zz")

	parsed, err := ParseUUIDQuery(c, "provider_id")
	require.NoError(t, err)
	assert.Equal(t, id, *parsed)

	missing, err := ParseUUIDQuery(c, "category_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseUUIDQuery(c, "bad")
	assert.True(t, apperror.IsValidation(err))

	active, err := ParseBoolQuery(c, "is_active")
	require.NoError(t, err)
	assert.False(t, *active)

	_, err = ParseBoolQuery(c, "bad")
	assert.True(t, apperror.IsValidation(err))

	assert.Equal(t, 5, ParseIntQuery(c, "skip", 0))
	assert.Equal(t, 10, ParseIntQuery(c, "bad", 10))
}
