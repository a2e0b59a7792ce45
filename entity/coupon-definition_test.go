package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefinition() CouponDefinition {
	return CouponDefinition{
		AllowGenerateFrom:  time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		AllowGenerateUntil: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		RedeemFrom:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RedeemUntil:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestCouponDefinition_Validate(t *testing.T) {
	def := sampleDefinition()
	require.NoError(t, def.Validate())

	bad := def
	bad.AllowGenerateUntil = bad.AllowGenerateFrom
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = def
	bad.RedeemUntil = bad.RedeemFrom.Add(-time.Second)
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = def
	bad.RedeemFrom = bad.AllowGenerateFrom.Add(-time.Hour)
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	zero := 0
	bad = def
	bad.MaxQuota = &zero
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	two := 2
	bad = def
	bad.MaxQuota = &two
	bad.TotalGenerated = 3
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestCouponDefinition_RedeemWindowAt(t *testing.T) {
	def := sampleDefinition()

	assert.Equal(t, WindowNotYetOpen, def.RedeemWindowAt(def.RedeemFrom.Add(-time.Nanosecond)))
	assert.Equal(t, WindowOpen, def.RedeemWindowAt(def.RedeemFrom))
	assert.Equal(t, WindowOpen, def.RedeemWindowAt(def.RedeemUntil))
	assert.Equal(t, WindowClosed, def.RedeemWindowAt(def.RedeemUntil.Add(time.Nanosecond)))
}

func TestCouponDefinition_Locked(t *testing.T) {
	def := sampleDefinition()
	assert.False(t, def.Locked(def.RedeemFrom.Add(-time.Second)))
	assert.True(t, def.Locked(def.RedeemFrom))
}

func TestCouponDefinition_QuotaLeft(t *testing.T) {
	def := sampleDefinition()
	assert.True(t, def.Unlimited())
	assert.Equal(t, -1, def.QuotaLeft())

	q := 5
	def.MaxQuota = &q
	def.TotalGenerated = 3
	assert.False(t, def.Unlimited())
	assert.Equal(t, 2, def.QuotaLeft())
}

func TestWindowError(t *testing.T) {
	boundary := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := error(NewWindowError("redemption has not started yet", boundary))

	assert.True(t, errors.Is(err, ErrWindowViolation))
	assert.Equal(t, "redemption has not started yet: 2026-01-01T00:00:00Z", err.Error())

	var we *WindowError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, boundary, we.Boundary)
}

func TestQuotaExhaustedIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrQuotaExhausted, ErrConflict)
}
