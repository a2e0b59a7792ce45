package postgres

import (
	"context"
	"fmt"
	"time"

	"evcoupon/entity"

	"github.com/jackc/pgx/v5"
)

const registrationColumns = `id::text, customer_id, customer_name, event_id::text, claim_data, status, created_at, updated_at`

func scanRegistration(row pgx.Row) (*entity.Registration, error) {
	var reg entity.Registration
	var status string
	if err := row.Scan(
		&reg.ID,
		&reg.CustomerID,
		&reg.CustomerName,
		&reg.EventID,
		&reg.ClaimData,
		&status,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reg.Status = entity.RegistrationStatus(status)
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()
	return &reg, nil
}

func (s *Store) RegistrationByID(ctx context.Context, id string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(s.queryRow(ctx, query, id))
	return s.withAnswers(ctx, reg, err)
}

func (s *Store) RegistrationByCustomer(ctx context.Context, customerID, eventID string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE customer_id = $1 AND event_id = $2`
	reg, err := scanRegistration(s.queryRow(ctx, query, customerID, eventID))
	return s.withAnswers(ctx, reg, err)
}

func (s *Store) withAnswers(ctx context.Context, reg *entity.Registration, err error) (*entity.Registration, error) {
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}

	const query = `SELECT question_id, answer_value FROM registration_answers WHERE registration_id = $1 ORDER BY question_id`
	rows, err := s.query(ctx, query, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a entity.Answer
		if err = rows.Scan(&a.QuestionID, &a.Value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		reg.Answers = append(reg.Answers, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return reg, nil
}

func (s *Store) CreateRegistration(ctx context.Context, reg *entity.Registration) error {
	const query = `
INSERT INTO registrations (id, customer_id, customer_name, event_id, claim_data, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.exec(ctx, query,
		reg.ID,
		reg.CustomerID,
		reg.CustomerName,
		reg.EventID,
		reg.ClaimData,
		string(reg.Status),
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	return mapErr("insert registration", err)
}

func (s *Store) UpdateRegistration(ctx context.Context, reg *entity.Registration) error {
	const query = `
UPDATE registrations
SET customer_name = $1, claim_data = $2, status = $3, updated_at = $4
WHERE id = $5`
	_, err := s.exec(ctx, query, reg.CustomerName, reg.ClaimData, string(reg.Status), reg.UpdatedAt, reg.ID)
	return mapErr("update registration", err)
}

func (s *Store) SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus, at time.Time) error {
	const query = `UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := s.exec(ctx, query, string(status), at, id)
	if err != nil && !isInvalidUUID(err) {
		return mapErr("update registration status", err)
	}
	if err != nil || tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// ReplaceAnswers deletes and re-inserts in one transaction, joining the caller's if any.
func (s *Store) ReplaceAnswers(ctx context.Context, registrationID string, answers []entity.Answer) error {
	if txFromContext(ctx) == nil {
		return s.WithTx(ctx, func(ctx context.Context) error {
			return s.ReplaceAnswers(ctx, registrationID, answers)
		})
	}
	if _, err := s.exec(ctx, `DELETE FROM registration_answers WHERE registration_id = $1`, registrationID); err != nil {
		return mapErr("delete answers", err)
	}
	if len(answers) == 0 {
		return nil
	}
	questions := make([]int64, 0, len(answers))
	values := make([]string, 0, len(answers))
	for _, a := range answers {
		questions = append(questions, a.QuestionID)
		values = append(values, a.Value)
	}
	const query = `
INSERT INTO registration_answers (registration_id, question_id, answer_value)
SELECT $1::uuid, q, v FROM unnest($2::bigint[], $3::text[]) AS a(q, v)`
	_, err := s.exec(ctx, query, registrationID, questions, values)
	return mapErr("insert answers", err)
}
