package coupon

import (
	"context"
	"fmt"

	"evcoupon/entity"
)

// SetRegistrationStatus changes an admin-managed field; contention is not expected here.
func (s *Service) SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) (*entity.Registration, error) {
	if !status.Valid() {
		return nil, entity.Invalid("unknown registration status %q", status)
	}
	now := s.clock.Now()

	reg, err := s.store.RegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("registration %s: %w", id, entity.ErrNotFound)
	}
	if err = s.store.SetRegistrationStatus(ctx, id, status, now); err != nil {
		return nil, err
	}
	reg.Status = status
	reg.UpdatedAt = now
	return reg, nil
}
