package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcoupon/entity"
)

func scanInstance(row scanner) (*entity.CouponInstance, error) {
	var inst entity.CouponInstance
	var couponID, redeemedBy sql.NullInt64
	var redeemedAt sql.NullTime
	if err := row.Scan(
		&inst.ID,
		&couponID,
		&inst.RegistrationID,
		&inst.Token,
		&inst.IsRedeemed,
		&redeemedAt,
		&redeemedBy,
		&inst.CreatedAt,
	); err != nil {
		return nil, err
	}
	if couponID.Valid {
		id := couponID.Int64
		inst.DefinitionID = &id
	}
	if redeemedAt.Valid {
		at := redeemedAt.Time
		inst.RedeemedAt = &at
	}
	if redeemedBy.Valid {
		by := redeemedBy.Int64
		inst.RedeemedBy = &by
	}
	return &inst, nil
}

func (s *MySql) InstanceByToken(ctx context.Context, token string) (*entity.CouponInstance, error) {
	stmt, err := s.stmtSelectInstanceByToken(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := scanInstance(stmt.QueryRowContext(ctx, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select coupon instance: %w", err)
	}
	return inst, nil
}

func (s *MySql) InstanceByRegistration(ctx context.Context, registrationID string) (*entity.CouponInstance, error) {
	stmt, err := s.stmtSelectInstanceByRegistration(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := scanInstance(stmt.QueryRowContext(ctx, registrationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select coupon instance: %w", err)
	}
	return inst, nil
}

func (s *MySql) CreateInstance(ctx context.Context, inst *entity.CouponInstance) error {
	stmt, err := s.stmtInsertInstance(ctx)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		inst.ID,
		nullInt64(inst.DefinitionID),
		inst.RegistrationID,
		inst.Token,
		inst.IsRedeemed,
		nullTime(inst.RedeemedAt),
		nullInt64(inst.RedeemedBy),
		inst.CreatedAt.UTC(),
	)
	return mapErr("insert coupon instance", err)
}

// TryTransition only supports unredeemed -> redeemed; the WHERE clause is the guard.
func (s *MySql) TryTransition(ctx context.Context, instanceID string, from, to entity.RedemptionState, operatorID int64, at time.Time) (bool, error) {
	if from != entity.StateUnredeemed || to != entity.StateRedeemed {
		return false, fmt.Errorf("unsupported transition %s -> %s", from, to)
	}
	stmt, err := s.stmtRedeemInstance(ctx)
	if err != nil {
		return false, err
	}
	res, err := stmt.ExecContext(ctx, at.UTC(), operatorID, instanceID)
	if err != nil {
		return false, mapErr("redeem coupon", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("redeem coupon rows: %w", err)
	}
	return n == 1, nil
}
