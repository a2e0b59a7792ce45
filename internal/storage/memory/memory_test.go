package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/internal/storage/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_RollbackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	def := &entity.CouponDefinition{EventID: "e", Code: "A", IsActive: true}
	require.NoError(t, s.CreateDefinition(ctx, def))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.TryReserve(ctx, def.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.CreateRegistration(ctx, &entity.Registration{ID: "r", CustomerID: "c", EventID: "e"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.DefinitionByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalGenerated)
	reg, err := s.RegistrationByCustomer(ctx, "c", "e")
	require.NoError(t, err)
	assert.Nil(t, reg)
}

func TestTryReserve_Quota(t *testing.T) {
	s := New()
	ctx := context.Background()
	quota := 1
	def := &entity.CouponDefinition{EventID: "e", Code: "A", MaxQuota: &quota}
	require.NoError(t, s.CreateDefinition(ctx, def))

	ok, err := s.TryReserve(ctx, def.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryReserve(ctx, def.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.TryReserve(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryTransition(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateInstance(ctx, &entity.CouponInstance{ID: "i", RegistrationID: "r", Token: "tok"}))
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, err := s.TryTransition(ctx, "i", entity.StateUnredeemed, entity.StateRedeemed, 7, at)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryTransition(ctx, "i", entity.StateUnredeemed, entity.StateRedeemed, 9, at.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	inst, err := s.InstanceByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(7), *inst.RedeemedBy)
	assert.Equal(t, at, *inst.RedeemedAt)

	_, err = s.TryTransition(ctx, "i", entity.StateRedeemed, entity.StateUnredeemed, 7, at)
	assert.Error(t, err)
}

func TestCreateInstance_Unique(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateInstance(ctx, &entity.CouponInstance{ID: "a", RegistrationID: "r1", Token: "tok"}))
	err := s.CreateInstance(ctx, &entity.CouponInstance{ID: "b", RegistrationID: "r2", Token: "tok"})
	assert.ErrorIs(t, err, entity.ErrConflict)
	err = s.CreateInstance(ctx, &entity.CouponInstance{ID: "c", RegistrationID: "r1", Token: "other"})
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestOperatorByToken(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveOperator(&entity.Operator{ID: 1, Name: "Ann", Token: "secret", Role: entity.RoleAdmin}))
	op, err := s.OperatorByToken("secret")
	require.NoError(t, err)
	assert.Equal(t, int64(1), op.ID)
	_, err = s.OperatorByToken("nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return New()
	})
}
