package auth

import (
	"errors"
	"testing"

	"evcoupon/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory map[string]*entity.Operator

func (f fakeDirectory) OperatorByToken(token string) (*entity.Operator, error) {
	if token == "broken" {
		return nil, errors.New("connection refused")
	}
	op, ok := f[token]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return op, nil
}

func TestOperatorByToken(t *testing.T) {
	a := New(fakeDirectory{"good": {ID: 3, Name: "Ann", Role: entity.RoleOperator}})

	op, err := a.OperatorByToken(" good ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), op.ID)

	_, err = a.OperatorByToken("bad")
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = a.OperatorByToken("")
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = a.OperatorByToken("broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrForbidden)

	_, err = New(nil).OperatorByToken("good")
	assert.Error(t, err)
}
