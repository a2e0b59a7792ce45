package mysql

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"evcoupon/entity"
	"evcoupon/internal/storage/storetest"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMapErr(t *testing.T) {
	dup := &mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry 'x' for key 'uq_instance_token'"}
	assert.ErrorIs(t, mapErr("insert", dup), entity.ErrConflict)
	assert.ErrorIs(t, mapErr("insert", fmt.Errorf("wrapped: %w", dup)), entity.ErrConflict)

	check := &mysql.MySQLError{Number: errCheckViolated, Message: "Check constraint 'ck_coupon_quota' is violated."}
	err := mapErr("update coupon", check)
	assert.ErrorIs(t, err, entity.ErrValidation)
	assert.NotErrorIs(t, err, entity.ErrConflict)

	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	err = mapErr("insert", other)
	assert.NotErrorIs(t, err, entity.ErrConflict)
	assert.NotErrorIs(t, err, entity.ErrValidation)
	assert.ErrorIs(t, err, other)

	assert.NoError(t, mapErr("insert", nil))
}

// TestStoreContract runs against a live server when TEST_MYSQL_DSN is set,
// e.g. "root:root@tcp(localhost:3306)/evcoupon_test?parseTime=true&loc=UTC&clientFoundRows=true".
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN is not set")
	}

	storetest.Run(t, func(t *testing.T) storetest.Store {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err = db.Ping(); err != nil {
			_ = db.Close()
			t.Skipf("skipping MySQL integration tests: %v", err)
		}
		db.SetConnMaxLifetime(time.Minute)

		prefix := "t" + strings.ReplaceAll(uuid.NewString()[:8], "-", "") + "_"
		client, err := newClient(db, prefix)
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		t.Cleanup(func() {
			for _, table := range tables {
				_, _ = db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s%s", prefix, table.name))
			}
			client.Close()
		})
		return client
	})
}
