package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name" validate:"required,min=3"`
	Code string `json:"code" validate:"required,couponcode"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(&sample{Name: "Lunch", Code: "LUNCH-01"}))

	err := Struct(&sample{Name: "ab", Code: "lunch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name min")
	assert.Contains(t, err.Error(), "code couponcode")
}

func TestStruct_NotStruct(t *testing.T) {
	assert.EqualError(t, Struct(nil), "is nil")
	assert.EqualError(t, Struct("text"), "not a struct")
}
