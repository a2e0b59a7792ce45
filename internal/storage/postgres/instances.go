package postgres

import (
	"context"
	"fmt"
	"time"

	"evcoupon/entity"

	"github.com/jackc/pgx/v5"
)

const instanceColumns = `id::text, coupon_id, registration_id::text, token, is_redeemed, redeemed_at, redeemed_by, created_at`

func scanInstance(row pgx.Row) (*entity.CouponInstance, error) {
	var inst entity.CouponInstance
	if err := row.Scan(
		&inst.ID,
		&inst.DefinitionID,
		&inst.RegistrationID,
		&inst.Token,
		&inst.IsRedeemed,
		&inst.RedeemedAt,
		&inst.RedeemedBy,
		&inst.CreatedAt,
	); err != nil {
		return nil, err
	}
	if inst.RedeemedAt != nil {
		at := inst.RedeemedAt.UTC()
		inst.RedeemedAt = &at
	}
	inst.CreatedAt = inst.CreatedAt.UTC()
	return &inst, nil
}

func (s *Store) instanceBy(ctx context.Context, column, value string) (*entity.CouponInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM coupon_instances WHERE ` + column + ` = $1`
	inst, err := scanInstance(s.queryRow(ctx, query, value))
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon instance: %w", err)
	}
	return inst, nil
}

func (s *Store) InstanceByToken(ctx context.Context, token string) (*entity.CouponInstance, error) {
	return s.instanceBy(ctx, "token", token)
}

func (s *Store) InstanceByRegistration(ctx context.Context, registrationID string) (*entity.CouponInstance, error) {
	return s.instanceBy(ctx, "registration_id", registrationID)
}

func (s *Store) CreateInstance(ctx context.Context, inst *entity.CouponInstance) error {
	const query = `
INSERT INTO coupon_instances (id, coupon_id, registration_id, token, is_redeemed, redeemed_at, redeemed_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.exec(ctx, query,
		inst.ID,
		inst.DefinitionID,
		inst.RegistrationID,
		inst.Token,
		inst.IsRedeemed,
		inst.RedeemedAt,
		inst.RedeemedBy,
		inst.CreatedAt,
	)
	return mapErr("insert coupon instance", err)
}

func (s *Store) TryTransition(ctx context.Context, instanceID string, from, to entity.RedemptionState, operatorID int64, at time.Time) (bool, error) {
	if from != entity.StateUnredeemed || to != entity.StateRedeemed {
		return false, fmt.Errorf("unsupported transition %s -> %s", from, to)
	}
	const query = `
UPDATE coupon_instances SET is_redeemed = TRUE, redeemed_at = $1, redeemed_by = $2
WHERE id = $3 AND NOT is_redeemed`
	tag, err := s.exec(ctx, query, at, operatorID, instanceID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, nil
		}
		return false, mapErr("redeem coupon", err)
	}
	return tag.RowsAffected() == 1, nil
}
