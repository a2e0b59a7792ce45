package postgres

import (
	"context"
	"fmt"
	"time"

	"evcoupon/entity"

	"github.com/jackc/pgx/v5"
)

const definitionColumns = `id, event_id::text, name, code, slug, description,
	allow_generate_from, allow_generate_until, redeem_from, redeem_until,
	max_quota, total_generated, is_active, created_at, updated_at`

func scanDefinition(row pgx.Row) (*entity.CouponDefinition, error) {
	var def entity.CouponDefinition
	var maxQuota *int32
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
	if maxQuota != nil {
		q := int(*maxQuota)
		def.MaxQuota = &q
	}
	def.AllowGenerateFrom = def.AllowGenerateFrom.UTC()
	def.AllowGenerateUntil = def.AllowGenerateUntil.UTC()
	def.RedeemFrom = def.RedeemFrom.UTC()
	def.RedeemUntil = def.RedeemUntil.UTC()
	def.CreatedAt = def.CreatedAt.UTC()
	def.UpdatedAt = def.UpdatedAt.UTC()
	return &def, nil
}

func (s *Store) listDefinitions(ctx context.Context, query string, args ...any) ([]entity.CouponDefinition, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var defs []entity.CouponDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		defs = append(defs, *def)
	}
	if err = rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return defs, nil
}

func (s *Store) DefinitionByID(ctx context.Context, id int64) (*entity.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupons WHERE id = $1`
	def, err := scanDefinition(s.queryRow(ctx, query, id))
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return def, nil
}

func (s *Store) DefinitionByCode(ctx context.Context, eventID, code string) (*entity.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupons WHERE event_id = $1 AND code = $2`
	def, err := scanDefinition(s.queryRow(ctx, query, eventID, code))
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}
	return def, nil
}

func (s *Store) DefinitionsForEvent(ctx context.Context, eventID string) ([]entity.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupons WHERE event_id = $1 ORDER BY redeem_from, id`
	return s.listDefinitions(ctx, query, eventID)
}

func (s *Store) DefinitionsRedeemableBetween(ctx context.Context, from, to time.Time) ([]entity.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupons
WHERE is_active AND redeem_until >= $1 AND redeem_from <= $2
ORDER BY redeem_from, id`
	return s.listDefinitions(ctx, query, from, to)
}

func (s *Store) CreateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	const query = `
INSERT INTO coupons (event_id, name, code, slug, description,
	allow_generate_from, allow_generate_until, redeem_from, redeem_until,
	max_quota, total_generated, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`
	err := s.queryRow(ctx, query,
		def.EventID,
		def.Name,
		def.Code,
		def.Slug,
		def.Description,
		def.AllowGenerateFrom,
		def.AllowGenerateUntil,
		def.RedeemFrom,
		def.RedeemUntil,
		def.MaxQuota,
		def.TotalGenerated,
		def.IsActive,
		def.CreatedAt,
		def.UpdatedAt,
	).Scan(&def.ID)
	return mapErr("insert coupon", err)
}

// UpdateDefinition leaves total_generated alone; only TryReserve moves it.
func (s *Store) UpdateDefinition(ctx context.Context, def *entity.CouponDefinition) error {
	const query = `
UPDATE coupons SET
	name = $1,
	code = $2,
	description = $3,
	allow_generate_from = $4,
	allow_generate_until = $5,
	redeem_from = $6,
	redeem_until = $7,
	max_quota = $8,
	is_active = $9,
	updated_at = $10
WHERE id = $11`
	tag, err := s.exec(ctx, query,
		def.Name,
		def.Code,
		def.Description,
		def.AllowGenerateFrom,
		def.AllowGenerateUntil,
		def.RedeemFrom,
		def.RedeemUntil,
		def.MaxQuota,
		def.IsActive,
		def.UpdatedAt,
		def.ID,
	)
	if err != nil {
		return mapErr("update coupon", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %d: %w", def.ID, entity.ErrNotFound)
	}
	return nil
}

func (s *Store) SetDefinitionActive(ctx context.Context, id int64, active bool, at time.Time) error {
	tag, err := s.exec(ctx, `UPDATE coupons SET is_active = $1, updated_at = $2 WHERE id = $3`, active, at, id)
	if err != nil {
		return mapErr("update coupon status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (s *Store) TryReserve(ctx context.Context, definitionID int64) (bool, error) {
	const query = `
UPDATE coupons SET total_generated = total_generated + 1
WHERE id = $1 AND (max_quota IS NULL OR total_generated < max_quota)`
	tag, err := s.exec(ctx, query, definitionID)
	if err != nil {
		return false, mapErr("reserve quota", err)
	}
	return tag.RowsAffected() == 1, nil
}
