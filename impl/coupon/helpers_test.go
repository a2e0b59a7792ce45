package coupon_test

import (
	"context"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/impl/coupon"
	"evcoupon/internal/storage/memory"
	"evcoupon/lib/clock"

	"github.com/stretchr/testify/require"
)

const testEventID = "6f1c1c2e-3c1d-4f7a-9a57-0f4e2b1d9c11"

var (
	generateFrom  = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	generateUntil = time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	redeemFrom    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	redeemUntil   = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	issuingTime   = time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	redeemingTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
)

type seqTokens struct {
	tokens []string
	next   int
}

func (s *seqTokens) NewToken() (string, error) {
	t := s.tokens[s.next%len(s.tokens)]
	s.next++
	return t, nil
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.SaveEvent(context.Background(), &entity.Event{ID: testEventID, Title: "New year party", StartsAt: redeemFrom}))
	require.NoError(t, store.SaveOperator(&entity.Operator{ID: 7, Name: "Anna", Token: "token-7", Role: entity.RoleOperator}))
	require.NoError(t, store.SaveOperator(&entity.Operator{ID: 9, Name: "Boris", Token: "token-9", Role: entity.RoleOperator}))
	require.NoError(t, store.SaveOperator(&entity.Operator{ID: 11, Name: "Vera", Token: "token-11", Role: entity.RoleAdmin}))
	return store
}

func newService(store *memory.Store, now time.Time, opts ...coupon.Option) *coupon.Service {
	opts = append([]coupon.Option{coupon.WithOperators(store)}, opts...)
	return coupon.New(store, clock.Fixed(now), nil, opts...)
}

func addDefinition(t *testing.T, store *memory.Store, code string, quota *int) *entity.CouponDefinition {
	t.Helper()
	def := &entity.CouponDefinition{
		EventID:            testEventID,
		Name:               "Welcome drink",
		Code:               code,
		Slug:               "slug" + code,
		AllowGenerateFrom:  generateFrom,
		AllowGenerateUntil: generateUntil,
		RedeemFrom:         redeemFrom,
		RedeemUntil:        redeemUntil,
		MaxQuota:           quota,
		IsActive:           true,
		CreatedAt:          generateFrom,
		UpdatedAt:          generateFrom,
	}
	require.NoError(t, store.CreateDefinition(context.Background(), def))
	return def
}

// addInstance binds an unredeemed instance with a known token to a fresh registration.
func addInstance(t *testing.T, store *memory.Store, def *entity.CouponDefinition, token string) *entity.CouponInstance {
	t.Helper()
	ctx := context.Background()
	reg := &entity.Registration{
		ID:           "reg-" + token,
		CustomerID:   "customer-" + token,
		CustomerName: "Jane Roe",
		EventID:      testEventID,
		ClaimData:    "table 4",
		Status:       entity.RegistrationActive,
		CreatedAt:    issuingTime,
		UpdatedAt:    issuingTime,
	}
	require.NoError(t, store.CreateRegistration(ctx, reg))
	inst := &entity.CouponInstance{
		ID:             "inst-" + token,
		RegistrationID: reg.ID,
		Token:          token,
		CreatedAt:      issuingTime,
	}
	if def != nil {
		id := def.ID
		inst.DefinitionID = &id
	}
	require.NoError(t, store.CreateInstance(ctx, inst))
	return inst
}

func intPtr(v int) *int {
	return &v
}
