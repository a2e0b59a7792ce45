package coupon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evcoupon/entity"
	"evcoupon/lib/sl"
)

const anonymous = "Anonymous"

// RedeemInput carries an already authenticated operator; the engine only checks the role.
type RedeemInput struct {
	Token      string
	OperatorID int64
	Role       entity.Role
	CheckOnly  bool
}

// Redeem validates a scanned token and marks its instance redeemed exactly once.
// Business outcomes, including a second scan of the same coupon, are reported in
// the result; the error is reserved for storage failures, after which the caller
// may retry with the same token.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) (*entity.RedemptionResult, error) {
	log := s.log.With(
		sl.Secret("token", in.Token),
		slog.Int64("operator_id", in.OperatorID),
		slog.Bool("check_only", in.CheckOnly),
	)

	inst, err := s.store.InstanceByToken(ctx, in.Token)
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	if inst == nil {
		return &entity.RedemptionResult{Outcome: entity.OutcomeNotFound, CheckOnly: in.CheckOnly, Message: "Coupon not found"}, nil
	}

	if in.OperatorID < 1 || !in.Role.CanRedeem() {
		log.With(slog.String("role", string(in.Role))).Warn("redeem forbidden", sl.Topic(entity.TopicSecurity))
		return &entity.RedemptionResult{Outcome: entity.OutcomeForbidden, CheckOnly: in.CheckOnly, Message: "Forbidden: insufficient permissions"}, nil
	}

	def, err := s.definitionOf(ctx, inst)
	if err != nil {
		return nil, err
	}
	// a deactivated coupon can still be inspected but never redeemed
	if def == nil || (!def.IsActive && !in.CheckOnly) {
		return &entity.RedemptionResult{Outcome: entity.OutcomeNotFound, CheckOnly: in.CheckOnly, Message: "Coupon is not available"}, nil
	}

	result, err := s.describe(ctx, inst, def)
	if err != nil {
		return nil, err
	}
	result.CheckOnly = in.CheckOnly

	if in.CheckOnly {
		result.Outcome = entity.OutcomeChecked
		if !def.IsActive {
			result.Message = "Coupon is not active"
		}
		return result, nil
	}

	if inst.IsRedeemed {
		return s.alreadyRedeemed(log, result), nil
	}

	now := s.clock.Now()
	switch def.RedeemWindowAt(now) {
	case entity.WindowNotYetOpen:
		result.Outcome = entity.OutcomeNotYetOpen
		result.Message = entity.NewWindowError("Coupon redemption has not started yet, it starts on", def.RedeemFrom).Error()
		return result, nil
	case entity.WindowClosed:
		result.Outcome = entity.OutcomeExpired
		result.Message = entity.NewWindowError("Coupon expired, it reached its deadline on", def.RedeemUntil).Error()
		return result, nil
	}

	ok, err := s.store.TryTransition(ctx, inst.ID, entity.StateUnredeemed, entity.StateRedeemed, in.OperatorID, now)
	if err != nil {
		return nil, fmt.Errorf("redeem coupon: %w", err)
	}
	if !ok {
		// lost the race: report whoever committed first
		winner, err := s.store.InstanceByToken(ctx, in.Token)
		if err != nil {
			return nil, fmt.Errorf("re-read coupon: %w", err)
		}
		if winner == nil {
			return nil, fmt.Errorf("coupon %s vanished after redemption: %w", inst.ID, entity.ErrNotFound)
		}
		result, err = s.describe(ctx, winner, def)
		if err != nil {
			return nil, err
		}
		return s.alreadyRedeemed(log, result), nil
	}

	inst.IsRedeemed = true
	inst.RedeemedAt = &now
	operatorID := in.OperatorID
	inst.RedeemedBy = &operatorID

	result, err = s.describe(ctx, inst, def)
	if err != nil {
		return nil, err
	}
	result.Outcome = entity.OutcomeRedeemed
	result.Message = "Coupon redeemed"

	log.With(
		slog.String("coupon", def.Code),
		slog.String("instance_id", inst.ID),
	).Info("coupon redeemed", sl.Topic(entity.TopicRedemption))
	return result, nil
}

func (s *Service) alreadyRedeemed(log *slog.Logger, result *entity.RedemptionResult) *entity.RedemptionResult {
	result.Outcome = entity.OutcomeAlreadyRedeemed
	result.Message = "Warning: Coupon Already Redeemed!"
	log.With(
		slog.String("redeemed_by", result.RedeemedByName),
	).Warn("coupon already redeemed", sl.Topic(entity.TopicRedemption))
	return result
}

// definitionOf returns nil when the instance has no definition or it was deleted.
func (s *Service) definitionOf(ctx context.Context, inst *entity.CouponInstance) (*entity.CouponDefinition, error) {
	if inst.DefinitionID == nil {
		return nil, nil
	}
	def, err := s.store.DefinitionByID(ctx, *inst.DefinitionID)
	if err != nil {
		return nil, fmt.Errorf("find definition: %w", err)
	}
	return def, nil
}

func (s *Service) describe(ctx context.Context, inst *entity.CouponInstance, def *entity.CouponDefinition) (*entity.RedemptionResult, error) {
	redeemFrom, redeemUntil := def.RedeemFrom, def.RedeemUntil
	result := &entity.RedemptionResult{
		IsRedeemed:   inst.IsRedeemed,
		RedeemedAt:   copyTime(inst.RedeemedAt),
		RedeemedByID: copyID(inst.RedeemedBy),
		CouponID:     def.ID,
		CouponName:   def.Name,
		RedeemFrom:   &redeemFrom,
		RedeemUntil:  &redeemUntil,
		CustomerName: anonymous,
	}

	reg, err := s.store.RegistrationByID(ctx, inst.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg != nil {
		if reg.CustomerName != "" {
			result.CustomerName = reg.CustomerName
		}
		result.ClaimData = reg.ClaimData
	}

	if inst.RedeemedBy != nil && s.operators != nil {
		op, err := s.operators.OperatorByID(*inst.RedeemedBy)
		if err != nil {
			s.log.With(slog.Int64("operator_id", *inst.RedeemedBy)).Debug("operator lookup", sl.Err(err))
		} else if op != nil {
			result.RedeemedByName = op.Name
		}
	}
	return result, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
