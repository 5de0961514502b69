package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/HerbHall/fleetgate/pkg/extension"
)

func testDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func widgetMigrations() []extension.Migration {
	return []extension.Migration{
		{
			Version:     1,
			Description: "create widgets table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "add color column",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`ALTER TABLE widgets ADD COLUMN color TEXT DEFAULT ''`)
				return err
			},
		},
	}
}

func TestMigrate_AppliesAndTracks(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "widgets", widgetMigrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if _, err := s.DB().Exec(`INSERT INTO widgets (name, color) VALUES ('a', 'red')`); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM _migrations WHERE module_name = 'widgets'`).Scan(&count)
	if err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("tracked migrations = %d, want 2", count)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "widgets", widgetMigrations()); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "widgets", widgetMigrations()); err != nil {
		t.Fatalf("second Migrate should be a no-op: %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	bad := []extension.Migration{
		{
			Version:     1,
			Description: "broken migration",
			Up: func(tx *sql.Tx) error {
				return errors.New("boom")
			},
		},
	}
	if err := s.Migrate(ctx, "broken", bad); err == nil {
		t.Fatal("expected migration failure")
	}

	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM _migrations WHERE module_name = 'broken'`).Scan(&count)
	if err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("failed migration was recorded (%d rows)", count)
	}
}

func TestTx_RollbackOnError(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if _, err := s.DB().Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (id) VALUES (1)`); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error from Tx")
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after rollback = %d, want 0", count)
	}
}

func TestCheckVersion_FirstRun(t *testing.T) {
	s := testDB(t)

	if err := s.CheckVersion(context.Background(), "1.2.0"); err != nil {
		t.Fatalf("CheckVersion first run: %v", err)
	}
}

func TestCheckVersion_OlderBinaryRefused(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "2.0.0"); err != nil {
		t.Fatalf("CheckVersion 2.0.0: %v", err)
	}

	err := s.CheckVersion(ctx, "1.0.0")
	if !errors.Is(err, ErrNewerSchema) {
		t.Errorf("CheckVersion error = %v, want ErrNewerSchema", err)
	}
}

func TestCheckVersion_UpgradeAllowed(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "1.0.0"); err != nil {
		t.Fatalf("CheckVersion 1.0.0: %v", err)
	}
	if err := s.CheckVersion(ctx, "1.1.0"); err != nil {
		t.Errorf("CheckVersion upgrade: %v", err)
	}
}

func TestCheckVersion_DevAlwaysPasses(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "9.9.9"); err != nil {
		t.Fatalf("CheckVersion 9.9.9: %v", err)
	}
	if err := s.CheckVersion(ctx, "dev"); err != nil {
		t.Errorf("CheckVersion dev should pass against any stored version: %v", err)
	}
}
