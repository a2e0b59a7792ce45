package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	definitionColumns = `id, event_id, name, code, slug, description,
		allow_generate_from, allow_generate_until, redeem_from, redeem_until,
		max_quota, total_generated, is_active, created_at, updated_at`
	registrationColumns = `id, customer_id, customer_name, event_id, claim_data, status, created_at, updated_at`
	instanceColumns     = `id, coupon_id, registration_id, token, is_redeemed, redeemed_at, redeemed_by, created_at`
)

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

// stmt returns the cached statement, bound to the transaction carried by ctx if any.
func (s *MySql) stmt(ctx context.Context, name, query string) (*sql.Stmt, error) {
	stmt, err := s.prepareStmt(name, query)
	if err != nil {
		return nil, err
	}
	if tx := txFromContext(ctx); tx != nil {
		return tx.StmtContext(ctx, stmt), nil
	}
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtSelectEvent(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT id, title, starts_at FROM %sevent WHERE id = ?`, s.prefix)
	return s.stmt(ctx, "selectEvent", query)
}

func (s *MySql) stmtInsertEvent(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %sevent (id, title, starts_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE title = VALUES(title), starts_at = VALUES(starts_at)`,
		s.prefix,
	)
	return s.stmt(ctx, "insertEvent", query)
}

func (s *MySql) stmtSelectRegistration(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %sregistration WHERE id = ?`, registrationColumns, s.prefix)
	return s.stmt(ctx, "selectRegistration", query)
}

func (s *MySql) stmtSelectRegistrationByCustomer(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %sregistration WHERE customer_id = ? AND event_id = ?`, registrationColumns, s.prefix)
	return s.stmt(ctx, "selectRegistrationByCustomer", query)
}

func (s *MySql) stmtInsertRegistration(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %sregistration (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.prefix, registrationColumns,
	)
	return s.stmt(ctx, "insertRegistration", query)
}

func (s *MySql) stmtUpdateRegistration(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %sregistration SET
                   customer_name = ?,
                   claim_data = ?,
                   status = ?,
                   updated_at = ?
                   WHERE id = ?`,
		s.prefix,
	)
	return s.stmt(ctx, "updateRegistration", query)
}

func (s *MySql) stmtUpdateRegistrationStatus(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`UPDATE %sregistration SET status = ?, updated_at = ? WHERE id = ?`, s.prefix)
	return s.stmt(ctx, "updateRegistrationStatus", query)
}

func (s *MySql) stmtSelectAnswers(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT question_id, answer_value FROM %sregistration_answer WHERE registration_id = ? ORDER BY question_id`,
		s.prefix,
	)
	return s.stmt(ctx, "selectAnswers", query)
}

func (s *MySql) stmtDeleteAnswers(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`DELETE FROM %sregistration_answer WHERE registration_id = ?`, s.prefix)
	return s.stmt(ctx, "deleteAnswers", query)
}

func (s *MySql) stmtInsertAnswer(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %sregistration_answer (registration_id, question_id, answer_value) VALUES (?, ?, ?)`,
		s.prefix,
	)
	return s.stmt(ctx, "insertAnswer", query)
}

func (s *MySql) stmtSelectInstanceByToken(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %scoupon_instance WHERE token = ?`, instanceColumns, s.prefix)
	return s.stmt(ctx, "selectInstanceByToken", query)
}

func (s *MySql) stmtSelectInstanceByRegistration(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %scoupon_instance WHERE registration_id = ?`, instanceColumns, s.prefix)
	return s.stmt(ctx, "selectInstanceByRegistration", query)
}

func (s *MySql) stmtInsertInstance(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %scoupon_instance (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.prefix, instanceColumns,
	)
	return s.stmt(ctx, "insertInstance", query)
}

func (s *MySql) stmtRedeemInstance(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %scoupon_instance SET
                   is_redeemed = 1,
                   redeemed_at = ?,
                   redeemed_by = ?
                   WHERE id = ? AND is_redeemed = 0`,
		s.prefix,
	)
	return s.stmt(ctx, "redeemInstance", query)
}

func (s *MySql) stmtSelectDefinition(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %scoupon WHERE id = ?`, definitionColumns, s.prefix)
	return s.stmt(ctx, "selectDefinition", query)
}

func (s *MySql) stmtSelectDefinitionByCode(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM %scoupon WHERE event_id = ? AND code = ?`, definitionColumns, s.prefix)
	return s.stmt(ctx, "selectDefinitionByCode", query)
}

func (s *MySql) stmtSelectEventDefinitions(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %scoupon WHERE event_id = ? ORDER BY redeem_from, id`,
		definitionColumns, s.prefix,
	)
	return s.stmt(ctx, "selectEventDefinitions", query)
}

func (s *MySql) stmtSelectRedeemableDefinitions(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %scoupon
		 WHERE is_active = 1 AND redeem_until >= ? AND redeem_from <= ?
		 ORDER BY redeem_from, id`,
		definitionColumns, s.prefix,
	)
	return s.stmt(ctx, "selectRedeemableDefinitions", query)
}

func (s *MySql) stmtInsertDefinition(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %scoupon (event_id, name, code, slug, description,
                   allow_generate_from, allow_generate_until, redeem_from, redeem_until,
                   max_quota, total_generated, is_active, created_at, updated_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.prefix,
	)
	return s.stmt(ctx, "insertDefinition", query)
}

func (s *MySql) stmtUpdateDefinition(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %scoupon SET
                   name = ?,
                   code = ?,
                   description = ?,
                   allow_generate_from = ?,
                   allow_generate_until = ?,
                   redeem_from = ?,
                   redeem_until = ?,
                   max_quota = ?,
                   is_active = ?,
                   updated_at = ?
                   WHERE id = ?`,
		s.prefix,
	)
	return s.stmt(ctx, "updateDefinition", query)
}

func (s *MySql) stmtUpdateDefinitionActive(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(`UPDATE %scoupon SET is_active = ?, updated_at = ? WHERE id = ?`, s.prefix)
	return s.stmt(ctx, "updateDefinitionActive", query)
}

func (s *MySql) stmtReserveQuota(ctx context.Context) (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %scoupon SET total_generated = total_generated + 1
		 WHERE id = ? AND (max_quota IS NULL OR total_generated < max_quota)`,
		s.prefix,
	)
	return s.stmt(ctx, "reserveQuota", query)
}
