// Package storetest is the shared contract suite run against every coupon.Store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/impl/coupon"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	coupon.Store
	SaveEvent(ctx context.Context, event *entity.Event) error
}

var (
	base  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later = base.Add(24 * time.Hour)
)

// Run executes the suite; newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("registrations", func(t *testing.T) { testRegistrations(t, newStore(t)) })
	t.Run("definitions", func(t *testing.T) { testDefinitions(t, newStore(t)) })
	t.Run("instances", func(t *testing.T) { testInstances(t, newStore(t)) })
	t.Run("quota", func(t *testing.T) { testQuota(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("concurrent transition", func(t *testing.T) { testConcurrentTransition(t, newStore(t)) })
}

func seedEvent(t *testing.T, s Store) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, s.SaveEvent(context.Background(), &entity.Event{ID: id, Title: "Event", StartsAt: base}))
	return id
}

func seedDefinition(t *testing.T, s Store, eventID, code string, quota *int) *entity.CouponDefinition {
	t.Helper()
	def := &entity.CouponDefinition{
		EventID:            eventID,
		Name:               "Coupon " + code,
		Code:               code,
		Slug:               uuid.NewString()[:8],
		AllowGenerateFrom:  base.Add(-48 * time.Hour),
		AllowGenerateUntil: base.Add(-time.Hour),
		RedeemFrom:         base,
		RedeemUntil:        later,
		MaxQuota:           quota,
		IsActive:           true,
		CreatedAt:          base.Add(-72 * time.Hour),
		UpdatedAt:          base.Add(-72 * time.Hour),
	}
	require.NoError(t, s.CreateDefinition(context.Background(), def))
	require.NotZero(t, def.ID)
	return def
}

func seedRegistration(t *testing.T, s Store, eventID, customerID string) *entity.Registration {
	t.Helper()
	reg := &entity.Registration{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		CustomerName: "Customer " + customerID,
		EventID:      eventID,
		ClaimData:    "claim",
		Status:       entity.RegistrationActive,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.CreateRegistration(context.Background(), reg))
	return reg
}

func testEvents(t *testing.T, s Store) {
	ctx := context.Background()
	id := seedEvent(t, s)

	event, err := s.EventByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "Event", event.Title)

	missing, err := s.EventByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testRegistrations(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	reg := seedRegistration(t, s, eventID, "c-1")

	dup := *reg
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateRegistration(ctx, &dup), entity.ErrConflict)

	answers := []entity.Answer{{QuestionID: 1, Value: "a"}, {QuestionID: 2, Value: "b"}}
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return s.ReplaceAnswers(ctx, reg.ID, answers)
	}))
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context) error {
		return s.ReplaceAnswers(ctx, reg.ID, answers[1:])
	}))

	reg.ClaimData = "updated"
	reg.UpdatedAt = later
	require.NoError(t, s.UpdateRegistration(ctx, reg))

	found, err := s.RegistrationByCustomer(ctx, "c-1", eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reg.ID, found.ID)
	assert.Equal(t, "updated", found.ClaimData)
	assert.Equal(t, []entity.Answer{{QuestionID: 2, Value: "b"}}, found.Answers)

	require.NoError(t, s.SetRegistrationStatus(ctx, reg.ID, entity.RegistrationCompleted, later))
	found, err = s.RegistrationByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RegistrationCompleted, found.Status)

	assert.ErrorIs(t, s.SetRegistrationStatus(ctx, uuid.NewString(), entity.RegistrationActive, later), entity.ErrNotFound)

	none, err := s.RegistrationByCustomer(ctx, "c-2", eventID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func testDefinitions(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	quota := 10
	first := seedDefinition(t, s, eventID, "FIRST", &quota)
	second := seedDefinition(t, s, eventID, "SECOND", nil)

	dup := *first
	dup.ID = 0
	dup.Slug = uuid.NewString()[:8]
	assert.ErrorIs(t, s.CreateDefinition(ctx, &dup), entity.ErrConflict)

	byCode, err := s.DefinitionByCode(ctx, eventID, "SECOND")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, second.ID, byCode.ID)
	assert.Nil(t, byCode.MaxQuota)

	byID, err := s.DefinitionByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.MaxQuota)
	assert.Equal(t, 10, *byID.MaxQuota)
	assert.True(t, byID.RedeemFrom.Equal(base))

	first.Name = "Renamed"
	first.MaxQuota = nil
	first.UpdatedAt = later
	require.NoError(t, s.UpdateDefinition(ctx, first))
	byID, err = s.DefinitionByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", byID.Name)
	assert.Nil(t, byID.MaxQuota)

	require.NoError(t, s.SetDefinitionActive(ctx, second.ID, false, later))
	require.NoError(t, s.SetDefinitionActive(ctx, second.ID, false, later))

	defs, err := s.DefinitionsForEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	redeemable, err := s.DefinitionsRedeemableBetween(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, redeemable, 1)
	assert.Equal(t, first.ID, redeemable[0].ID)

	none, err := s.DefinitionsRedeemableBetween(ctx, later.Add(time.Hour), later.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	missing, err := s.DefinitionByID(ctx, 1<<40)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testInstances(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	def := seedDefinition(t, s, eventID, "INST", nil)
	reg := seedRegistration(t, s, eventID, "c-1")
	other := seedRegistration(t, s, eventID, "c-2")

	defID := def.ID
	inst := &entity.CouponInstance{
		ID:             uuid.NewString(),
		DefinitionID:   &defID,
		RegistrationID: reg.ID,
		Token:          "token-1",
		CreatedAt:      base,
	}
	require.NoError(t, s.CreateInstance(ctx, inst))

	sameToken := &entity.CouponInstance{ID: uuid.NewString(), RegistrationID: other.ID, Token: "token-1", CreatedAt: base}
	assert.ErrorIs(t, s.CreateInstance(ctx, sameToken), entity.ErrConflict)

	sameReg := &entity.CouponInstance{ID: uuid.NewString(), RegistrationID: reg.ID, Token: "token-2", CreatedAt: base}
	assert.ErrorIs(t, s.CreateInstance(ctx, sameReg), entity.ErrConflict)

	found, err := s.InstanceByRegistration(ctx, reg.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "token-1", found.Token)
	require.NotNil(t, found.DefinitionID)
	assert.Equal(t, def.ID, *found.DefinitionID)
	assert.False(t, found.IsRedeemed)

	at := base.Add(time.Hour)
	ok, err := s.TryTransition(ctx, inst.ID, entity.StateUnredeemed, entity.StateRedeemed, 7, at)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryTransition(ctx, inst.ID, entity.StateUnredeemed, entity.StateRedeemed, 9, at)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err = s.InstanceByToken(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, found.IsRedeemed)
	assert.True(t, found.RedeemedAt.Equal(at))
	assert.Equal(t, int64(7), *found.RedeemedBy)

	missing, err := s.InstanceByToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testQuota(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	quota := 2
	limited := seedDefinition(t, s, eventID, "LIMITED", &quota)
	unlimited := seedDefinition(t, s, eventID, "OPEN", nil)

	const attempts = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TryReserve(ctx, limited.ID)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, granted)

	def, err := s.DefinitionByID(ctx, limited.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, def.TotalGenerated)

	for i := 0; i < attempts; i++ {
		ok, err := s.TryReserve(ctx, unlimited.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func testRollback(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	quota := 1
	def := seedDefinition(t, s, eventID, "ROLLBACK", &quota)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.TryReserve(ctx, def.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("expected reservation")
		}
		reg := &entity.Registration{
			ID:         uuid.NewString(),
			CustomerID: "c-rollback",
			EventID:    eventID,
			Status:     entity.RegistrationActive,
			CreatedAt:  base,
			UpdatedAt:  base,
		}
		if err = s.CreateRegistration(ctx, reg); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.DefinitionByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TotalGenerated)

	reg, err := s.RegistrationByCustomer(ctx, "c-rollback", eventID)
	require.NoError(t, err)
	assert.Nil(t, reg)
}

func testConcurrentTransition(t *testing.T, s Store) {
	ctx := context.Background()
	eventID := seedEvent(t, s)
	reg := seedRegistration(t, s, eventID, "c-race")
	inst := &entity.CouponInstance{ID: uuid.NewString(), RegistrationID: reg.ID, Token: "race", CreatedAt: base}
	require.NoError(t, s.CreateInstance(ctx, inst))

	const scanners = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(operator int64) {
			defer wg.Done()
			ok, err := s.TryTransition(ctx, inst.ID, entity.StateUnredeemed, entity.StateRedeemed, operator, base)
			if err != nil {
				t.Errorf("transition: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(int64(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
