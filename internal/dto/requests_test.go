package dto

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCategoryRequest_ParentID(t *testing.T) {
	parent := uuid.New()

	var absent UpdateCategoryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Сантехника"}`), &absent))
	patch := absent.ToPatch()
	assert.Nil(t, patch.ParentID)
	assert.False(t, patch.ClearParent)

	var null UpdateCategoryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"parent_id":null}`), &null))
	patch = null.ToPatch()
	assert.Nil(t, patch.ParentID)
	assert.True(t, patch.ClearParent)

	var set UpdateCategoryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"parent_id":"`+parent.String()+`"}`), &set))
	patch = set.ToPatch()
	require.NotNil(t, patch.ParentID)
	assert.Equal(t, parent, *patch.ParentID)
	assert.False(t, patch.ClearParent)

	var bad UpdateCategoryRequest
	assert.Error(t, json.Unmarshal([]byte(`{"parent_id":"nope"}`), &bad))
}

func TestCreateServiceRequest_Price(t *testing.T) {
	var req CreateServiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Покраска","price":"1200.50","currency":"rub"}`), &req))
	assert.Equal(t, "1200.5", req.ToInput().Price.String())

	require.NoError(t, json.Unmarshal([]byte(`{"price":99.99}`), &req))
	assert.Equal(t, "99.99", req.ToInput().Price.String())
}
