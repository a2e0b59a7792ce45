package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcoupon/entity"
)

type scanner interface {
	Scan(dest ...any) error
}

func (s *MySql) EventByID(ctx context.Context, id string) (*entity.Event, error) {
	stmt, err := s.stmtSelectEvent(ctx)
	if err != nil {
		return nil, err
	}
	var event entity.Event
	var startsAt sql.NullTime
	err = stmt.QueryRowContext(ctx, id).Scan(&event.ID, &event.Title, &startsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select event: %w", err)
	}
	event.StartsAt = startsAt.Time
	return &event, nil
}

// SaveEvent mirrors an event from the external event manager.
func (s *MySql) SaveEvent(ctx context.Context, event *entity.Event) error {
	stmt, err := s.stmtInsertEvent(ctx)
	if err != nil {
		return err
	}
	var startsAt *time.Time
	if !event.StartsAt.IsZero() {
		startsAt = &event.StartsAt
	}
	_, err = stmt.ExecContext(ctx, event.ID, event.Title, nullTime(startsAt))
	return mapErr("save event", err)
}

func scanRegistration(row scanner) (*entity.Registration, error) {
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
	return &reg, nil
}

func (s *MySql) RegistrationByID(ctx context.Context, id string) (*entity.Registration, error) {
	stmt, err := s.stmtSelectRegistration(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := scanRegistration(stmt.QueryRowContext(ctx, id))
	return s.withAnswers(ctx, reg, err)
}

func (s *MySql) RegistrationByCustomer(ctx context.Context, customerID, eventID string) (*entity.Registration, error) {
	stmt, err := s.stmtSelectRegistrationByCustomer(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := scanRegistration(stmt.QueryRowContext(ctx, customerID, eventID))
	return s.withAnswers(ctx, reg, err)
}

func (s *MySql) withAnswers(ctx context.Context, reg *entity.Registration, err error) (*entity.Registration, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select registration: %w", err)
	}
	reg.Answers, err = s.answers(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *MySql) answers(ctx context.Context, registrationID string) ([]entity.Answer, error) {
	stmt, err := s.stmtSelectAnswers(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	defer rows.Close()

	var answers []entity.Answer
	for rows.Next() {
		var a entity.Answer
		if err = rows.Scan(&a.QuestionID, &a.Value); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *MySql) CreateRegistration(ctx context.Context, reg *entity.Registration) error {
	stmt, err := s.stmtInsertRegistration(ctx)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		reg.ID,
		reg.CustomerID,
		reg.CustomerName,
		reg.EventID,
		reg.ClaimData,
		string(reg.Status),
		reg.CreatedAt.UTC(),
		reg.UpdatedAt.UTC(),
	)
	return mapErr("insert registration", err)
}

func (s *MySql) UpdateRegistration(ctx context.Context, reg *entity.Registration) error {
	stmt, err := s.stmtUpdateRegistration(ctx)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, reg.CustomerName, reg.ClaimData, string(reg.Status), reg.UpdatedAt.UTC(), reg.ID)
	return mapErr("update registration", err)
}

func (s *MySql) SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus, at time.Time) error {
	stmt, err := s.stmtUpdateRegistrationStatus(ctx)
	if err != nil {
		return err
	}
	res, err := stmt.ExecContext(ctx, string(status), at.UTC(), id)
	if err != nil {
		return mapErr("update registration status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("registration %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

// ReplaceAnswers must run inside WithTx so the delete and inserts commit together.
func (s *MySql) ReplaceAnswers(ctx context.Context, registrationID string, answers []entity.Answer) error {
	del, err := s.stmtDeleteAnswers(ctx)
	if err != nil {
		return err
	}
	if _, err = del.ExecContext(ctx, registrationID); err != nil {
		return mapErr("delete answers", err)
	}
	if len(answers) == 0 {
		return nil
	}
	ins, err := s.stmtInsertAnswer(ctx)
	if err != nil {
		return err
	}
	for _, a := range answers {
		if _, err = ins.ExecContext(ctx, registrationID, a.QuestionID, a.Value); err != nil {
			return mapErr("insert answer", err)
		}
	}
	return nil
}
