package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"evcoupon/entity"
	"evcoupon/internal/config"

	"github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry = 1062
	errCheckViolated  = 3819
)

type txKey struct{}

type MySql struct {
	db         *sql.DB
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	c := conf.MySQL
	dsn := mysql.NewConfig()
	dsn.User = c.UserName
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = c.HostName + ":" + c.Port
	dsn.DBName = c.Database
	dsn.ParseTime = true
	// RowsAffected counts matched rows, not changed ones
	dsn.ClientFoundRows = true
	dsn.Loc = time.UTC

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	return newClient(db, c.Prefix)
}

func newClient(db *sql.DB, prefix string) (*MySql, error) {
	sdb := &MySql{
		db:         db,
		prefix:     prefix,
		statements: make(map[string]*sql.Stmt),
	}
	if err := sdb.createTables(); err != nil {
		return nil, err
	}
	if err := sdb.addColumnIfNotExists("registration", "customer_name", "VARCHAR(255) NOT NULL DEFAULT ''"); err != nil {
		return nil, err
	}
	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

// WithTx runs fn in one transaction; nested calls join the outer one.
func (s *MySql) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapErr("commit", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

func isCheckViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errCheckViolated
}

// mapErr turns duplicate keys into entity.ErrConflict and failed CHECK
// constraints into entity.ErrValidation.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w: %s", op, entity.ErrConflict, err.Error())
	}
	if isCheckViolation(err) {
		return fmt.Errorf("%s: %w: %s", op, entity.ErrValidation, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
