package entity

import "time"

type RedemptionOutcome string

const (
	OutcomeRedeemed        RedemptionOutcome = "redeemed"
	OutcomeAlreadyRedeemed RedemptionOutcome = "already_redeemed"
	OutcomeNotYetOpen      RedemptionOutcome = "not_yet_open"
	OutcomeExpired         RedemptionOutcome = "expired"
	OutcomeNotFound        RedemptionOutcome = "not_found"
	OutcomeForbidden       RedemptionOutcome = "forbidden"
	// OutcomeChecked is returned for check-only scans, nothing was mutated.
	OutcomeChecked RedemptionOutcome = "checked"
)

// RedemptionResult is the transient answer to a scan; it is never persisted.
type RedemptionResult struct {
	Outcome        RedemptionOutcome `json:"outcome"`
	CheckOnly      bool              `json:"check_only"`
	IsRedeemed     bool              `json:"is_redeemed"`
	RedeemedAt     *time.Time        `json:"redeemed_at,omitempty"`
	RedeemedByID   *int64            `json:"redeemed_by_id,omitempty"`
	RedeemedByName string            `json:"redeemed_by,omitempty"`
	CouponID       int64             `json:"coupon_id,omitempty"`
	CouponName     string            `json:"coupon_name,omitempty"`
	RedeemFrom     *time.Time        `json:"redeem_from,omitempty"`
	RedeemUntil    *time.Time        `json:"redeem_until,omitempty"`
	CustomerName   string            `json:"customer_name,omitempty"`
	ClaimData      string            `json:"claim_data,omitempty"`
	Message        string            `json:"message,omitempty"`
}
