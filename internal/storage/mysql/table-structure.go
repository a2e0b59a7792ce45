package mysql

import (
	"database/sql"
	"errors"
	"fmt"
)

var tables = []struct {
	name string
	ddl  string
}{
	{"event", `(
		id CHAR(36) NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL DEFAULT '',
		starts_at DATETIME(6) NULL
	)`},
	{"registration", `(
		id CHAR(36) NOT NULL PRIMARY KEY,
		customer_id VARCHAR(64) NOT NULL,
		event_id CHAR(36) NOT NULL,
		claim_data TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_registration_customer_event (customer_id, event_id)
	)`},
	{"registration_answer", `(
		registration_id CHAR(36) NOT NULL,
		question_id BIGINT NOT NULL,
		answer_value TEXT NOT NULL,
		PRIMARY KEY (registration_id, question_id)
	)`},
	{"coupon", `(
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		event_id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		code VARCHAR(64) NOT NULL,
		slug VARCHAR(16) NOT NULL,
		description TEXT NOT NULL,
		allow_generate_from DATETIME(6) NOT NULL,
		allow_generate_until DATETIME(6) NOT NULL,
		redeem_from DATETIME(6) NOT NULL,
		redeem_until DATETIME(6) NOT NULL,
		max_quota INT NULL,
		total_generated INT NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_coupon_event_code (event_id, code),
		UNIQUE KEY uq_coupon_slug (slug),
		KEY ix_coupon_redeem (is_active, redeem_from, redeem_until),
		CONSTRAINT ck_coupon_quota CHECK (max_quota IS NULL OR total_generated <= max_quota)
	)`},
	{"coupon_instance", `(
		id CHAR(36) NOT NULL PRIMARY KEY,
		coupon_id BIGINT NULL,
		registration_id CHAR(36) NOT NULL,
		token VARCHAR(128) NOT NULL,
		is_redeemed TINYINT(1) NOT NULL DEFAULT 0,
		redeemed_at DATETIME(6) NULL,
		redeemed_by BIGINT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_instance_registration (registration_id),
		UNIQUE KEY uq_instance_token (token)
	)`},
}

func (s *MySql) createTables() error {
	for _, t := range tables {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s %s`, s.prefix, t.name, t.ddl)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

func (s *MySql) addColumnIfNotExists(tableName, columnName, columnType string) error {
	query := `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`
	var column string
	err := s.db.QueryRow(query, s.prefix+tableName, columnName).Scan(&column)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			alterQuery := fmt.Sprintf(`ALTER TABLE %s%s ADD COLUMN %s %s`, s.prefix, tableName, columnName, columnType)
			if _, err = s.db.Exec(alterQuery); err != nil {
				return fmt.Errorf("add column %s to table %s: %w", columnName, tableName, err)
			}
		} else {
			return fmt.Errorf("checking column %s existence in %s: %w", columnName, tableName, err)
		}
	}
	return nil
}
