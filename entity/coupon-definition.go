package entity

import "time"

// WindowState is the position of an instant relative to a [from, until] window.
type WindowState int

const (
	WindowNotYetOpen WindowState = iota
	WindowOpen
	WindowClosed
)

// CouponDefinition is the per-event coupon template.
// MaxQuota nil means unlimited; TotalGenerated never exceeds a set MaxQuota.
type CouponDefinition struct {
	ID                 int64     `json:"id" bson:"id"`
	EventID            string    `json:"event_id" bson:"event_id"`
	Name               string    `json:"name" bson:"name"`
	Code               string    `json:"code" bson:"code"`
	Slug               string    `json:"slug" bson:"slug"`
	Description        string    `json:"description" bson:"description"`
	AllowGenerateFrom  time.Time `json:"allow_generate_from" bson:"allow_generate_from"`
	AllowGenerateUntil time.Time `json:"allow_generate_until" bson:"allow_generate_until"`
	RedeemFrom         time.Time `json:"redeem_from" bson:"redeem_from"`
	RedeemUntil        time.Time `json:"redeem_until" bson:"redeem_until"`
	MaxQuota           *int      `json:"max_quota" bson:"max_quota"`
	TotalGenerated     int       `json:"total_generated" bson:"total_generated"`
	IsActive           bool      `json:"is_active" bson:"is_active"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate checks the window ordering and quota invariants.
func (d *CouponDefinition) Validate() error {
	if !d.AllowGenerateUntil.After(d.AllowGenerateFrom) {
		return Invalid("allow_generate_until must be after allow_generate_from")
	}
	if !d.RedeemUntil.After(d.RedeemFrom) {
		return Invalid("redeem_until must be after redeem_from")
	}
	if d.RedeemFrom.Before(d.AllowGenerateFrom) {
		return Invalid("redeem_from must be on or after allow_generate_from")
	}
	if d.MaxQuota != nil {
		if *d.MaxQuota < 1 {
			return Invalid("max_quota must be at least 1")
		}
		if d.TotalGenerated > *d.MaxQuota {
			return Invalid("max_quota %d is below the %d coupons already generated", *d.MaxQuota, d.TotalGenerated)
		}
	}
	return nil
}

// RedeemWindowAt uses inclusive bounds on both ends.
func (d *CouponDefinition) RedeemWindowAt(now time.Time) WindowState {
	return windowAt(now, d.RedeemFrom, d.RedeemUntil)
}

func (d *CouponDefinition) IssuanceWindowAt(now time.Time) WindowState {
	return windowAt(now, d.AllowGenerateFrom, d.AllowGenerateUntil)
}

// Locked reports whether administrative updates are rejected at now.
func (d *CouponDefinition) Locked(now time.Time) bool {
	return !now.Before(d.RedeemFrom)
}

func (d *CouponDefinition) Unlimited() bool {
	return d.MaxQuota == nil
}

// QuotaLeft returns -1 for unlimited definitions.
func (d *CouponDefinition) QuotaLeft() int {
	if d.MaxQuota == nil {
		return -1
	}
	left := *d.MaxQuota - d.TotalGenerated
	if left < 0 {
		return 0
	}
	return left
}

func windowAt(now, from, until time.Time) WindowState {
	if now.Before(from) {
		return WindowNotYetOpen
	}
	if now.After(until) {
		return WindowClosed
	}
	return WindowOpen
}
