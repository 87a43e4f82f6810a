package sqlite

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/testhelpers"
)

func newMemoryDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := connect(":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return db
}

func TestDatabase_migrateTo(t *testing.T) {
	t.Parallel()
	const (
		exercises     = "CREATE TABLE exercises (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"
		exercisesKind = "CREATE TABLE exercises (id INTEGER PRIMARY KEY, name TEXT NOT NULL, kind TEXT)"
		byName        = "CREATE INDEX exercises_name ON exercises (name)"
		byNameAndID   = "CREATE INDEX exercises_name ON exercises (name, id)"
		rejectInsert  = `CREATE TRIGGER exercises_guard AFTER INSERT ON exercises BEGIN SELECT RAISE(FAIL, 'no'); END`
		allowInsert   = `CREATE TRIGGER exercises_guard AFTER INSERT ON exercises BEGIN SELECT 1; END`
	)
	tests := []struct {
		name    string
		schemas []string
		query   string
		wantErr bool
	}{
		{"empty schema", []string{""}, "SELECT * FROM sqlite_schema", false},
		{"create table", []string{exercises}, "INSERT INTO exercises (name) VALUES ('Squat')", false},
		{"drop table", []string{exercises, ""}, "INSERT INTO exercises (name) VALUES ('Squat')", true},
		{"add column", []string{exercises, exercisesKind},
			"INSERT INTO exercises (name, kind) VALUES ('Squat', 'strength')", false},
		{"remove column", []string{exercises, exercisesKind, exercises},
			"INSERT INTO exercises (name, kind) VALUES ('Squat', 'strength')", true},
		{"create index", []string{exercises + ";" + byName}, "DROP INDEX exercises_name", false},
		{"drop index", []string{exercises + ";" + byName, exercises}, "DROP INDEX exercises_name", true},
		{"change index", []string{exercises + ";" + byName, exercises + ";" + byNameAndID},
			"DROP INDEX exercises_name", false},
		{"create trigger", []string{exercises + ";" + rejectInsert},
			"INSERT INTO exercises (name) VALUES ('Squat')", true},
		{"drop trigger", []string{exercises + ";" + rejectInsert, exercises},
			"INSERT INTO exercises (name) VALUES ('Squat')", false},
		{"change trigger", []string{exercises + ";" + rejectInsert, exercises + ";" + allowInsert},
			"INSERT INTO exercises (name) VALUES ('Squat')", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := newMemoryDatabase(t)
			for _, schema := range tt.schemas {
				if err := db.migrateTo(t.Context(), schema); err != nil {
					t.Fatalf("migrate to %q: %v", schema, err)
				}
			}
			_, err := db.ReadWrite.ExecContext(t.Context(), tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("exec %q: err = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestDatabase_migrateTo_keepsRowsWhenRebuilding(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db := newMemoryDatabase(t)

	if err := db.migrateTo(ctx, "CREATE TABLE exercises (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"); err != nil {
		t.Fatalf("initial migrate: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO exercises (name) VALUES ('Squat'), ('Rowing')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := db.migrateTo(ctx, `CREATE TABLE exercises (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'strength'
)`)
	if err != nil {
		t.Fatalf("rebuild migrate: %v", err)
	}

	rows, err := db.ReadOnly.QueryContext(ctx, "SELECT name || ':' || kind FROM exercises ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, s)
	}
	if err = rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if diff := cmp.Diff([]string{"Squat:strength", "Rowing:strength"}, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabase_migrateTo_rejectsDanglingReferences(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db := newMemoryDatabase(t)

	const users = "CREATE TABLE users (id INTEGER PRIMARY KEY);"
	const trainings = "CREATE TABLE trainings (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL);"
	if err := db.migrateTo(ctx, users+trainings); err != nil {
		t.Fatalf("initial migrate: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO trainings (user_id) VALUES (42)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	const referenced = "CREATE TABLE trainings (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users (id));"
	if err := db.migrateTo(ctx, users+referenced); err == nil {
		t.Fatal("expected the migration to fail on a dangling user reference")
	}

	// The failed migration must leave the previous schema in place.
	var sql string
	if err := db.ReadOnly.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_schema WHERE name = 'trainings'").Scan(&sql); err != nil {
		t.Fatalf("query schema: %v", err)
	}
	if diff := cmp.Diff(trainings[:len(trainings)-1], sql); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDatabase_appliesSchemaAndFixtures(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var kinds []string
	rows, err := db.ReadOnly.QueryContext(ctx, "SELECT DISTINCT kind FROM exercises ORDER BY kind")
	if err != nil {
		t.Fatalf("query exercises: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err = rows.Scan(&k); err != nil {
			t.Fatalf("scan: %v", err)
		}
		kinds = append(kinds, k)
	}
	if diff := cmp.Diff([]string{"cardio", "crossfit", "strength"}, kinds); diff != "" {
		t.Errorf("exercise kinds mismatch (-want +got):\n%s", diff)
	}

	// Fixtures are idempotent so applying them again must not fail.
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		t.Errorf("reapply fixtures: %v", err)
	}
}

func TestDatabase_SeedDemo(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for range 2 {
		if err = db.SeedDemo(ctx); err != nil {
			t.Fatalf("SeedDemo: %v", err)
		}
	}
	var entries int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_exercises").Scan(&entries); err != nil {
		t.Fatalf("count: %v", err)
	}
	if entries != 11 {
		t.Errorf("training exercises = %d, want 11", entries)
	}
}
