package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"madamis/backend/internal/logging"
)

func TestEmbeddedMigrationsApplyOnce(t *testing.T) {
	logging.Discard()
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "timer.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer database.Close()

	if err := RunMigrations(database, ""); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var tables int
	if err := database.QueryRow(
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'sessions', 'timer_documents')`,
	).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 3 {
		t.Fatalf("expected 3 tables, got %d", tables)
	}

	applied, err := Migrate(context.Background(), database, fstest.MapFS{})
	if err != nil || len(applied) != 0 {
		t.Fatalf("expected nothing to apply, got %v %v", applied, err)
	}
}

func TestMigrateSkipsAppliedAndRollsBackFailures(t *testing.T) {
	logging.Discard()
	database, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer database.Close()

	source := fstest.MapFS{
		"0001_a.sql": {Data: []byte(`CREATE TABLE a (id TEXT PRIMARY KEY);`)},
		"0002_b.sql": {Data: []byte(`CREATE TABLE b (id TEXT PRIMARY KEY);`)},
		"README.md":  {Data: []byte(`ignored`)},
		"sub/x.sql":  {Data: []byte(`not sql at all`)},
	}
	applied, err := Migrate(context.Background(), database, source)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 2 || applied[0] != "0001_a.sql" || applied[1] != "0002_b.sql" {
		t.Fatalf("unexpected applied list %v", applied)
	}

	source["0003_broken.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE c (id TEXT); THIS IS NOT SQL;`)}
	applied, err = Migrate(context.Background(), database, source)
	if err == nil || len(applied) != 0 {
		t.Fatalf("expected failure with nothing applied, got %v %v", applied, err)
	}
	var count int
	if err := database.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE name = 'c'`).Scan(&count); err != nil {
		t.Fatalf("check rollback: %v", err)
	}
	if count != 0 {
		t.Fatal("failed migration left table c behind")
	}
}
