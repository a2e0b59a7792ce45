package coupon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"evcoupon/entity"
	"evcoupon/lib/clock"
	"evcoupon/lib/sl"

	"github.com/google/uuid"
)

// slugLength fits the VARCHAR(16) slug column.
const slugLength = 16

// newSlug takes 64 bits of a random uuid as hex.
func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:slugLength]
}

func (s *Service) Definition(ctx context.Context, id int64) (*entity.CouponDefinition, error) {
	def, err := s.store.DefinitionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
	}
	return def, nil
}

// CreateDefinition adds a coupon template to an event. Codes are unique per event.
func (s *Service) CreateDefinition(ctx context.Context, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	def := req.Definition()
	def.Slug = newSlug()
	def.IsActive = true
	def.TotalGenerated = 0
	def.CreatedAt = now
	def.UpdatedAt = now

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.store.EventByID(ctx, def.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return entity.Invalid("unknown event %s", def.EventID)
		}
		existing, err := s.store.DefinitionByCode(ctx, def.EventID, def.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateCode(def.Code)
		}
		return s.store.CreateDefinition(ctx, &def)
	})
	if err != nil {
		return nil, err
	}

	s.log.With(
		slog.Int64("id", def.ID),
		slog.String("event_id", def.EventID),
		slog.String("code", def.Code),
	).Info("coupon created", sl.Topic(entity.TopicCoupon))
	return &def, nil
}

// UpdateDefinition is only permitted while the redemption window has not started.
func (s *Service) UpdateDefinition(ctx context.Context, id int64, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var updated entity.CouponDefinition

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.DefinitionByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
		}
		if existing.Locked(now) {
			return entity.NewWindowError("cannot update coupon, redemption period started at", existing.RedeemFrom)
		}
		if req.EventID != existing.EventID {
			return entity.Invalid("coupon belongs to event %s and cannot be moved", existing.EventID)
		}

		dup, err := s.store.DefinitionByCode(ctx, existing.EventID, req.Code)
		if err != nil {
			return err
		}
		if dup != nil && dup.ID != existing.ID {
			return duplicateCode(req.Code)
		}

		updated = req.Definition()
		updated.ID = existing.ID
		updated.Slug = existing.Slug
		updated.TotalGenerated = existing.TotalGenerated
		updated.IsActive = existing.IsActive
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = now
		if err = updated.Validate(); err != nil {
			return err
		}
		return s.store.UpdateDefinition(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.log.With(
		slog.Int64("id", updated.ID),
		slog.String("code", updated.Code),
	).Info("coupon updated", sl.Topic(entity.TopicCoupon))
	return &updated, nil
}

// SetDefinitionActive soft-enables or disables a coupon during its active cycle,
// from the start of generation until redemption ends.
func (s *Service) SetDefinitionActive(ctx context.Context, id int64, active bool) (*entity.CouponDefinition, error) {
	now := s.clock.Now()

	def, err := s.store.DefinitionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
	}
	if now.Before(def.AllowGenerateFrom) {
		return nil, entity.NewWindowError("status changes are available from the start of generation", def.AllowGenerateFrom)
	}
	if !now.Before(def.RedeemUntil) {
		return nil, entity.NewWindowError("status changes are not available after redemption ended", def.RedeemUntil)
	}

	if err = s.store.SetDefinitionActive(ctx, id, active, now); err != nil {
		return nil, err
	}
	def.IsActive = active
	def.UpdatedAt = now

	s.log.With(
		slog.Int64("id", id),
		slog.Bool("active", active),
	).Info("coupon status changed", sl.Topic(entity.TopicCoupon))
	return def, nil
}

// OperatorCoupons lists what a scanner should see today: active coupons whose
// redemption window is running or starts later today.
func (s *Service) OperatorCoupons(ctx context.Context) ([]entity.CouponDefinition, error) {
	start, end := clock.DayBounds(s.clock.Now(), s.loc)
	defs, err := s.store.DefinitionsRedeemableBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []entity.CouponDefinition{}
	}
	return defs, nil
}

func duplicateCode(code string) error {
	return fmt.Errorf("%w: coupon code %s already exists for this event", entity.ErrConflict, code)
}
