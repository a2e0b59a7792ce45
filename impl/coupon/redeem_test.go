package coupon_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/impl/coupon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeem_OnceThenAlreadyRedeemed(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "abc123")
	svc := newService(store, redeemingTime)
	ctx := context.Background()

	res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "abc123", OperatorID: 7, Role: entity.RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeRedeemed, res.Outcome)
	assert.True(t, res.IsRedeemed)
	require.NotNil(t, res.RedeemedAt)
	assert.Equal(t, redeemingTime, *res.RedeemedAt)
	require.NotNil(t, res.RedeemedByID)
	assert.Equal(t, int64(7), *res.RedeemedByID)
	assert.Equal(t, "Anna", res.RedeemedByName)
	assert.Equal(t, "Jane Roe", res.CustomerName)
	assert.Equal(t, "table 4", res.ClaimData)

	again, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "abc123", OperatorID: 9, Role: entity.RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeAlreadyRedeemed, again.Outcome)
	assert.Equal(t, int64(7), *again.RedeemedByID)
	assert.Equal(t, "Warning: Coupon Already Redeemed!", again.Message)
}

func TestRedeem_WindowBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		at      time.Time
		outcome entity.RedemptionOutcome
	}{
		{"before start", redeemFrom.Add(-time.Nanosecond), entity.OutcomeNotYetOpen},
		{"at start", redeemFrom, entity.OutcomeRedeemed},
		{"at end", redeemUntil, entity.OutcomeRedeemed},
		{"after end", redeemUntil.Add(time.Nanosecond), entity.OutcomeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			def := addDefinition(t, store, "DRINK", nil)
			addInstance(t, store, def, "tok")
			svc := newService(store, tc.at)

			res, err := svc.Redeem(context.Background(), coupon.RedeemInput{Token: "tok", OperatorID: 7, Role: entity.RoleOperator})
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, res.Outcome)

			inst, err := store.InstanceByToken(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, tc.outcome == entity.OutcomeRedeemed, inst.IsRedeemed)
		})
	}
}

func TestRedeem_CheckOnlyDoesNotMutate(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "tok")
	svc := newService(store, redeemingTime)
	ctx := context.Background()

	res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "tok", OperatorID: 7, Role: entity.RoleOperator, CheckOnly: true})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeChecked, res.Outcome)
	assert.True(t, res.CheckOnly)
	assert.False(t, res.IsRedeemed)

	inst, err := store.InstanceByToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, inst.IsRedeemed)
	assert.Nil(t, inst.RedeemedAt)
}

func TestRedeem_Rejections(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "tok")
	addInstance(t, store, nil, "orphan")
	svc := newService(store, redeemingTime)
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "missing", OperatorID: 7, Role: entity.RoleOperator})
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeNotFound, res.Outcome)
	})
	t.Run("viewer role", func(t *testing.T) {
		res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "tok", OperatorID: 7, Role: entity.RoleViewer})
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeForbidden, res.Outcome)
	})
	t.Run("missing operator", func(t *testing.T) {
		res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "tok", Role: entity.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeForbidden, res.Outcome)
	})
	t.Run("no definition", func(t *testing.T) {
		res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "orphan", OperatorID: 7, Role: entity.RoleOperator})
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeNotFound, res.Outcome)
	})

	inst, err := store.InstanceByToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, inst.IsRedeemed)
}

func TestRedeem_InactiveDefinition(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "tok")
	require.NoError(t, store.SetDefinitionActive(context.Background(), def.ID, false, redeemingTime))
	svc := newService(store, redeemingTime)

	res, err := svc.Redeem(context.Background(), coupon.RedeemInput{Token: "tok", OperatorID: 7, Role: entity.RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeNotFound, res.Outcome)

	inst, err := store.InstanceByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, inst.IsRedeemed)
}

func TestRedeem_CheckOnlyInactiveDefinition(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "tok")
	require.NoError(t, store.SetDefinitionActive(context.Background(), def.ID, false, redeemingTime))
	svc := newService(store, redeemingTime)

	res, err := svc.Redeem(context.Background(), coupon.RedeemInput{Token: "tok", OperatorID: 7, Role: entity.RoleOperator, CheckOnly: true})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeChecked, res.Outcome)
	assert.True(t, res.CheckOnly)
	assert.Equal(t, "Coupon is not active", res.Message)
	assert.Equal(t, def.ID, res.CouponID)
	assert.Equal(t, "Welcome drink", res.CouponName)
	assert.Equal(t, "Jane Roe", res.CustomerName)
	assert.Equal(t, "table 4", res.ClaimData)
	assert.False(t, res.IsRedeemed)
}

func TestRedeem_ConcurrentScansRedeemOnce(t *testing.T) {
	store := newStore(t)
	def := addDefinition(t, store, "DRINK", nil)
	addInstance(t, store, def, "tok")
	svc := newService(store, redeemingTime)
	ctx := context.Background()

	const scanners = 16
	outcomes := make([]entity.RedemptionOutcome, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			operator := int64(7)
			if i%2 == 1 {
				operator = 9
			}
			res, err := svc.Redeem(ctx, coupon.RedeemInput{Token: "tok", OperatorID: operator, Role: entity.RoleOperator})
			if err != nil {
				t.Errorf("redeem: %v", err)
				return
			}
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	var redeemed, already int
	for _, o := range outcomes {
		switch o {
		case entity.OutcomeRedeemed:
			redeemed++
		case entity.OutcomeAlreadyRedeemed:
			already++
		}
	}
	assert.Equal(t, 1, redeemed)
	assert.Equal(t, scanners-1, already)
}
