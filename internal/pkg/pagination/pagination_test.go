package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Clamps(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20}, New(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: 100}, New(3, 500))
	assert.Equal(t, Params{Page: 1, Limit: 20}, New(-2, -5))
}

func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestNew_HugePageKeepsOffsetPositive(t *testing.T) {
	params := New(math.MaxInt, MaxLimit)
	assert.Equal(t, MaxPage, params.Page)
	assert.Positive(t, params.Offset())

	assert.Equal(t, math.MaxInt, Params{Page: math.MaxInt, Limit: 7}.Offset())
	assert.Equal(t, 0, Params{Page: 5, Limit: 0}.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 10}, 21)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 21, meta.Total)

	assert.Equal(t, 0, NewMeta(Params{Page: 1, Limit: 10}, 0).TotalPages)
}
