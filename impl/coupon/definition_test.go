package coupon_test

import (
	"context"
	"testing"
	"time"

	"evcoupon/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definitionRequest(code string) *entity.CouponDefinitionRequest {
	return &entity.CouponDefinitionRequest{
		EventID:            testEventID,
		Name:               "Welcome drink",
		Code:               code,
		AllowGenerateFrom:  generateFrom,
		AllowGenerateUntil: generateUntil,
		RedeemFrom:         redeemFrom,
		RedeemUntil:        redeemUntil,
	}
}

func TestCreateDefinition(t *testing.T) {
	store := newStore(t)
	svc := newService(store, issuingTime)
	ctx := context.Background()

	req := definitionRequest("DRINK")
	req.IsMaxNumber = true
	req.MaxQuota = intPtr(50)
	def, err := svc.CreateDefinition(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, def.ID)
	assert.Len(t, def.Slug, 16)
	assert.NotContains(t, def.Slug, "-")
	assert.True(t, def.IsActive)
	require.NotNil(t, def.MaxQuota)
	assert.Equal(t, 50, *def.MaxQuota)

	second, err := svc.CreateDefinition(ctx, definitionRequest("SNACK"))
	require.NoError(t, err)
	assert.Len(t, second.Slug, 16)
	assert.NotEqual(t, def.Slug, second.Slug)

	_, err = svc.CreateDefinition(ctx, definitionRequest("DRINK"))
	assert.ErrorIs(t, err, entity.ErrConflict)

	unknown := definitionRequest("OTHER")
	unknown.EventID = "0b8a3a52-0c8e-4a1c-8d4e-8f5b1c2d3e4f"
	_, err = svc.CreateDefinition(ctx, unknown)
	assert.ErrorIs(t, err, entity.ErrValidation)

	reversed := definitionRequest("REVERSED")
	reversed.RedeemUntil = reversed.RedeemFrom.Add(-time.Hour)
	_, err = svc.CreateDefinition(ctx, reversed)
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestUpdateDefinition(t *testing.T) {
	store := newStore(t)
	existing := addDefinition(t, store, "DRINK", intPtr(10))
	addDefinition(t, store, "SNACK", nil)
	ctx := context.Background()

	t.Run("before redemption", func(t *testing.T) {
		svc := newService(store, issuingTime)
		req := definitionRequest("DRINK-2")
		req.Name = "Two drinks"
		def, err := svc.UpdateDefinition(ctx, existing.ID, req)
		require.NoError(t, err)
		assert.Equal(t, "Two drinks", def.Name)
		assert.Equal(t, existing.Slug, def.Slug)
		assert.Nil(t, def.MaxQuota, "limit switched off")
	})

	t.Run("duplicate code", func(t *testing.T) {
		svc := newService(store, issuingTime)
		_, err := svc.UpdateDefinition(ctx, existing.ID, definitionRequest("SNACK"))
		assert.ErrorIs(t, err, entity.ErrConflict)
	})

	t.Run("locked at redeem_from", func(t *testing.T) {
		svc := newService(store, redeemFrom)
		_, err := svc.UpdateDefinition(ctx, existing.ID, definitionRequest("DRINK-3"))
		var werr *entity.WindowError
		require.ErrorAs(t, err, &werr)
		assert.ErrorIs(t, err, entity.ErrWindowViolation)
		assert.Equal(t, redeemFrom, werr.Boundary)
	})

	t.Run("unknown", func(t *testing.T) {
		svc := newService(store, issuingTime)
		_, err := svc.UpdateDefinition(ctx, 999, definitionRequest("DRINK-4"))
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})
}

func TestUpdateDefinition_QuotaBelowGenerated(t *testing.T) {
	store := newStore(t)
	existing := addDefinition(t, store, "DRINK", intPtr(10))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := store.TryReserve(ctx, existing.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	svc := newService(store, issuingTime)

	req := definitionRequest("DRINK")
	req.IsMaxNumber = true
	req.MaxQuota = intPtr(2)
	_, err := svc.UpdateDefinition(ctx, existing.ID, req)
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestSetDefinitionActive(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	ctx := context.Background()

	_, err := newService(store, generateFrom.Add(-time.Minute)).SetDefinitionActive(ctx, def.ID, false)
	assert.ErrorIs(t, err, entity.ErrWindowViolation)

	_, err = newService(store, redeemUntil).SetDefinitionActive(ctx, def.ID, false)
	assert.ErrorIs(t, err, entity.ErrWindowViolation)

	updated, err := newService(store, redeemingTime).SetDefinitionActive(ctx, def.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	stored, err := store.DefinitionByID(ctx, def.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestOperatorCoupons(t *testing.T) {
	store := newStore(t)
	today := addDefinition(t, store, "TODAY", nil)
	inactive := addDefinition(t, store, "OFF", nil)
	require.NoError(t, store.SetDefinitionActive(context.Background(), inactive.ID, false, issuingTime))

	later := &entity.CouponDefinition{
		EventID:            testEventID,
		Name:               "Next week",
		Code:               "LATER",
		AllowGenerateFrom:  generateFrom,
		AllowGenerateUntil: generateUntil,
		RedeemFrom:         redeemFrom.AddDate(0, 0, 7),
		RedeemUntil:        redeemUntil.AddDate(0, 0, 7),
		IsActive:           true,
	}
	require.NoError(t, store.CreateDefinition(context.Background(), later))

	defs, err := newService(store, redeemingTime).OperatorCoupons(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, today.ID, defs[0].ID)

	defs, err = newService(store, issuingTime).OperatorCoupons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
	assert.NotNil(t, defs)
}

func TestSetRegistrationStatus(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	inst := addInstance(t, store, def, "tok")
	svc := newService(store, issuingTime)
	ctx := context.Background()

	reg, err := svc.SetRegistrationStatus(ctx, inst.RegistrationID, entity.RegistrationCompleted)
	require.NoError(t, err)
	assert.Equal(t, entity.RegistrationCompleted, reg.Status)

	_, err = svc.SetRegistrationStatus(ctx, inst.RegistrationID, "lost")
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = svc.SetRegistrationStatus(ctx, "missing", entity.RegistrationActive)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
