package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type pantryItem struct {
	ID   int
	Name string
}

func openSQLite(t *testing.T, name string, cfg *gorm.Config) *gorm.DB {
	t.Helper()
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	cfg.SkipDefaultTransaction = true
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&pantryItem{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func countItems(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&pantryItem{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	conn := openSQLite(t, "tx_commit", nil)
	client := FromConn(conn)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&pantryItem{Name: "cardamom"}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&pantryItem{Name: "pepper"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error back, got %v", err)
	}
	if n := countItems(t, conn); n != 1 {
		t.Fatalf("expected rollback to leave 1 row, got %d", n)
	}
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	conn := openSQLite(t, "tx_panic", nil)
	client := FromConn(conn)

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Fatalf("expected panic to propagate, got %v", r)
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&pantryItem{Name: "clove"})
			panic("kaboom")
		})
	}()

	if n := countItems(t, conn); n != 0 {
		t.Fatalf("expected panic to roll back, got %d rows", n)
	}
}

func TestPing(t *testing.T) {
	client := FromConn(openSQLite(t, "ping", nil))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func newBufferedLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(logger.Options{ServiceName: "db-test", Output: buf}), buf
}

func TestQueryLoggerReportsSlowAndFailedQueries(t *testing.T) {
	logg, buf := newBufferedLogger()
	conn := openSQLite(t, "querylog_slow", &gorm.Config{Logger: newQueryLogger(logg, time.Nanosecond)})

	conn.Create(&pantryItem{Name: "turmeric"})
	if !strings.Contains(buf.String(), "db.query.slow") {
		t.Fatalf("expected slow query log, got %s", buf.String())
	}

	buf.Reset()
	conn.Exec("SELECT * FROM missing_table")
	if !strings.Contains(buf.String(), "db.query.failed") {
		t.Fatalf("expected failed query log, got %s", buf.String())
	}
}

func TestQueryLoggerIgnoresRecordNotFound(t *testing.T) {
	logg, buf := newBufferedLogger()
	conn := openSQLite(t, "querylog_miss", &gorm.Config{Logger: newQueryLogger(logg, 0)})
	buf.Reset()

	var item pantryItem
	err := conn.First(&item, "name = ?", "saffron").Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("lookup misses should not be logged, got %s", buf.String())
	}
}

type uniqueModel struct {
	ID   int
	Slug string `gorm:"uniqueIndex:uq_unique_models_slug"`
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openSQLite(t, "unique", nil)
	if err := conn.AutoMigrate(&uniqueModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := conn.Create(&uniqueModel{Slug: "assam"}).Error; err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	dupErr := conn.Create(&uniqueModel{Slug: "assam"}).Error
	if !IsUniqueViolation(dupErr, "") {
		t.Fatalf("expected unique violation, got %v", dupErr)
	}
	if !IsUniqueViolation(dupErr, "slug") {
		t.Fatalf("expected column match in sqlite message, got %v", dupErr)
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("plain errors are not unique violations")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a unique violation")
	}
}
