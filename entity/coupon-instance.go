package entity

import "time"

type RedemptionState string

const (
	StateUnredeemed RedemptionState = "unredeemed"
	StateRedeemed   RedemptionState = "redeemed"
)

// CouponInstance is the single redeemable token bound to one registration.
// IsRedeemed is true iff RedeemedAt and RedeemedBy are set; once true it never changes.
type CouponInstance struct {
	ID             string     `json:"id" bson:"id"`
	DefinitionID   *int64     `json:"definition_id,omitempty" bson:"definition_id"`
	RegistrationID string     `json:"registration_id" bson:"registration_id"`
	Token          string     `json:"token" bson:"token"`
	IsRedeemed     bool       `json:"is_redeemed" bson:"is_redeemed"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty" bson:"redeemed_at"`
	RedeemedBy     *int64     `json:"redeemed_by,omitempty" bson:"redeemed_by"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}

func (c *CouponInstance) State() RedemptionState {
	if c.IsRedeemed {
		return StateRedeemed
	}
	return StateUnredeemed
}
