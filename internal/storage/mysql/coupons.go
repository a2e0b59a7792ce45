package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcoupon/entity"
)

func scanDefinition(row scanner) (*entity.CouponDefinition, error) {
	var def entity.CouponDefinition
	var maxQuota sql.NullInt64
	if err := row.Scan(
		&def.ID,
		&def.EventID,
		&def.Name,
		&def.Code,
		&def.Slug,
		&def.Description,
		&def.AllowGenerateFrom,
		&def.AllowGenerateUntil,
		&def.RedeemFrom,
		&def.RedeemUntil,
		&maxQuota,
		&def.TotalGenerated,
		&def.IsActive,
		&def.CreatedAt,
		&def.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if maxQuota.Valid {
		q := int(maxQuota.Int64)
		def.MaxQuota = &q
	}
	return &def, nil
}

func (s *MySql) queryDefinitions(ctx context.Context, stmt *sql.Stmt, args ...any) ([]entity.CouponDefinition, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var defs []entity.CouponDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (s *MySql) DefinitionByID(ctx context.Context, id int64) (*entity.CouponDefinition, error) {
	stmt, err := s.stmtSelectDefinition(ctx)
	if err != nil {
		return nil, err
	}
	def, err := scanDefinition(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select coupon: %w", err)
	}
	return def, nil
}

func (s *MySql) DefinitionByCode(ctx context.Context, eventID, code string) (*entity.CouponDefinition, error) {
	stmt, err := s.stmtSelectDefinitionByCode(ctx)
	if err != nil {
		return nil, err
	}
	def, err := scanDefinition(stmt.QueryRowContext(ctx, eventID, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select coupon by code: %w", err)
	}
	return def, nil
}

func (s *MySql) DefinitionsForEvent(ctx context.Context, eventID string) ([]entity.CouponDefinition, error) {
	stmt, err := s.stmtSelectEventDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return s.queryDefinitions(ctx, stmt, eventID)
}

func (s *MySql) DefinitionsRedeemableBetween(ctx context.Context, from, to time.Time) ([]entity.CouponDefinition, error) {
	stmt, err := s.stmtSelectRedeemableDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return s.queryDefinitions(ctx, stmt, from.UTC(), to.UTC())
}

func (s *MySql) CreateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	stmt, err := s.stmtInsertDefinition(ctx)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx,
		def.EventID,
		def.Name,
		def.Code,
		def.Slug,
		def.Description,
		def.AllowGenerateFrom.UTC(),
		def.AllowGenerateUntil.UTC(),
		def.RedeemFrom.UTC(),
		def.RedeemUntil.UTC(),
		nullInt(def.MaxQuota),
		def.TotalGenerated,
		def.IsActive,
		def.CreatedAt.UTC(),
		def.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapErr("insert coupon", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("coupon get last insert id: %w", err)
	}
	def.ID = id
	return nil
}

// UpdateDefinition leaves total_generated alone; only TryReserve moves it.
func (s *MySql) UpdateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	stmt, err := s.stmtUpdateDefinition(ctx)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx,
		def.Name,
		def.Code,
		def.Description,
		def.AllowGenerateFrom.UTC(),
		def.AllowGenerateUntil.UTC(),
		def.RedeemFrom.UTC(),
		def.RedeemUntil.UTC(),
		nullInt(def.MaxQuota),
		def.IsActive,
		def.UpdatedAt.UTC(),
		def.ID,
	)
	if err != nil {
		return mapErr("update coupon", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("coupon %d: %w", def.ID, entity.ErrNotFound)
	}
	return nil
}

func (s *MySql) SetDefinitionActive(ctx context.Context, id int64, active bool, at time.Time) error {
	stmt, err := s.stmtUpdateDefinitionActive(ctx)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, active, at.UTC(), id)
	if err != nil {
		return mapErr("update coupon status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (s *MySql) TryReserve(ctx context.Context, definitionID int64) (bool, error) {
	stmt, err := s.stmtReserveQuota(ctx)
	if err != nil {
		return false, err
	}
	res, err := stmt.ExecContext(ctx, definitionID)
	if err != nil {
		return false, mapErr("reserve quota", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve quota rows: %w", err)
	}
	return n == 1, nil
}
