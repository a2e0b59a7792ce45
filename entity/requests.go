package entity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"evcoupon/lib/validate"
)

// RegisterRequest is the body of an event registration.
type RegisterRequest struct {
	CustomerName string   `json:"customer_name" validate:"omitempty,max=255"`
	ClaimData    string   `json:"claim_data" validate:"omitempty,max=1024"`
	Answers      []Answer `json:"answers" validate:"omitempty,dive"`
}

func (r *RegisterRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

// ScanRequest is what an operator device posts after decoding a QR code.
type ScanRequest struct {
	QRData    string `json:"qr_data" validate:"required,max=256"`
	CheckOnly bool   `json:"check_only"`
}

func (s *ScanRequest) Bind(_ *http.Request) error {
	s.QRData = strings.TrimSpace(s.QRData)
	return validate.Struct(s)
}

// CouponDefinitionRequest carries the administrative coupon form.
// MaxQuota is only honoured when IsMaxNumber is set.
type CouponDefinitionRequest struct {
	EventID            string    `json:"event_id" validate:"required,uuid"`
	Name               string    `json:"name" validate:"required,min=3,max=255"`
	Code               string    `json:"code" validate:"required,min=3,max=64,couponcode"`
	Description        string    `json:"description" validate:"omitempty,max=2048"`
	AllowGenerateFrom  time.Time `json:"allow_generate_from" validate:"required"`
	AllowGenerateUntil time.Time `json:"allow_generate_until" validate:"required"`
	RedeemFrom         time.Time `json:"redeem_from" validate:"required"`
	RedeemUntil        time.Time `json:"redeem_until" validate:"required"`
	IsMaxNumber        bool      `json:"is_max_number"`
	MaxQuota           *int      `json:"max_quota" validate:"omitempty,min=1"`
}

func (c *CouponDefinitionRequest) Bind(_ *http.Request) error {
	return c.Validate()
}

// Validate runs field rules and the window ordering rules, always wrapping ErrValidation.
func (c *CouponDefinitionRequest) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if c.IsMaxNumber && c.MaxQuota == nil {
		return Invalid("max_quota must be at least 1")
	}
	def := c.Definition()
	return def.Validate()
}

// Definition maps the form onto a definition, dropping MaxQuota when the limit is off.
func (c *CouponDefinitionRequest) Definition() CouponDefinition {
	def := CouponDefinition{
		EventID:            c.EventID,
		Name:               c.Name,
		Code:               c.Code,
		Description:        c.Description,
		AllowGenerateFrom:  c.AllowGenerateFrom.UTC(),
		AllowGenerateUntil: c.AllowGenerateUntil.UTC(),
		RedeemFrom:         c.RedeemFrom.UTC(),
		RedeemUntil:        c.RedeemUntil.UTC(),
	}
	if c.IsMaxNumber && c.MaxQuota != nil {
		q := *c.MaxQuota
		def.MaxQuota = &q
	}
	return def
}

type StatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (s *StatusRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

type RegistrationStatusRequest struct {
	Status RegistrationStatus `json:"status" validate:"required,oneof=pending active completed cancelled"`
}

func (s *RegistrationStatusRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}
