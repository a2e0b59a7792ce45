package coupon

import (
	"context"
	"fmt"
	"log/slog"
)

// TryReserve claims one coupon from a definition's quota. Unlimited definitions
// always succeed. It must run inside the issuing transaction so a rolled back
// registration gives its slot back.
func (s *Service) TryReserve(ctx context.Context, definitionID int64) (bool, error) {
	ok, err := s.store.TryReserve(ctx, definitionID)
	if err != nil {
		return false, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		s.log.With(slog.Int64("definition_id", definitionID)).Debug("quota exhausted")
	}
	return ok, nil
}
