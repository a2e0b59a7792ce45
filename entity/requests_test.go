package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinitionRequest() CouponDefinitionRequest {
	return CouponDefinitionRequest{
		EventID:            "6f1c1c2e-3c1d-4f7a-9a57-0f4e2b1d9c11",
		Name:               "Free lunch",
		Code:               "LUNCH-1",
		AllowGenerateFrom:  time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		AllowGenerateUntil: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		RedeemFrom:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RedeemUntil:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestCouponDefinitionRequest_Validate(t *testing.T) {
	req := validDefinitionRequest()
	require.NoError(t, req.Validate())

	lower := req
	lower.Code = "lunch"
	assert.ErrorIs(t, lower.Validate(), ErrValidation)

	noEvent := req
	noEvent.EventID = "not-a-uuid"
	assert.ErrorIs(t, noEvent.Validate(), ErrValidation)

	quotaMissing := req
	quotaMissing.IsMaxNumber = true
	assert.ErrorIs(t, quotaMissing.Validate(), ErrValidation)
}

func TestCouponDefinitionRequest_Definition(t *testing.T) {
	q := 10
	req := validDefinitionRequest()
	req.MaxQuota = &q

	def := req.Definition()
	assert.Nil(t, def.MaxQuota, "quota ignored unless is_max_number is set")

	req.IsMaxNumber = true
	def = req.Definition()
	require.NotNil(t, def.MaxQuota)
	assert.Equal(t, 10, *def.MaxQuota)

	q = 20
	assert.Equal(t, 10, *def.MaxQuota, "definition keeps its own copy")
}

func TestScanRequest_Bind(t *testing.T) {
	req := ScanRequest{QRData: "  evc:abc  "}
	require.NoError(t, req.Bind(nil))
	assert.Equal(t, "evc:abc", req.QRData)

	empty := ScanRequest{QRData: "   "}
	assert.Error(t, empty.Bind(nil))
}
