package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

// objectKind is a sqlite_schema entry type.
type objectKind string

const (
	kindTable   objectKind = "table"
	kindIndex   objectKind = "index"
	kindTrigger objectKind = "trigger"
)

// schemaChange is an object whose definition differs between the live and the target schema.
type schemaChange struct {
	name      string
	liveSQL   string
	targetSQL string
}

// migrator diffs the live schema against a target schema attached as "target" and applies the difference inside a
// single transaction.
type migrator struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// migrateTo makes the live schema match schemaDefinition.
//
// The migration is declarative: the target schema is created in a scratch in-memory database that is attached next
// to the live one and the two sqlite_schema tables are compared. Removed tables are dropped, new tables created,
// and changed tables rebuilt following https://www.sqlite.org/lang_altertable.html#otheralter while copying the
// columns both definitions share. Indexes and triggers are synchronised afterwards.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	// Rebuilding tables temporarily breaks references, so foreign keys are checked once at the end instead.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, enableErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); enableErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", enableErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer db.rollback(ctx, tx)

	m := migrator{tx: tx, logger: db.logger.With(slog.String("component", "migrate"))}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"drop removed tables", func(ctx context.Context) error { return m.dropRemoved(ctx, kindTable) }},
		{"create added tables", func(ctx context.Context) error { return m.createAdded(ctx, kindTable) }},
		{"rebuild changed tables", m.rebuildChangedTables},
		{"sync triggers", func(ctx context.Context) error { return m.syncObjects(ctx, kindTrigger) }},
		{"sync indexes", func(ctx context.Context) error { return m.syncObjects(ctx, kindIndex) }},
		{"check foreign keys", m.checkForeignKeys},
	}
	for _, step := range steps {
		if err = step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates the target schema in a scratch database and attaches it to the read-write connection.
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	scratch, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	// The shared cache keeps the in-memory database alive while the live connection has it attached.
	defer func() {
		if closeErr := scratch.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close scratch database", errors.SlogError(closeErr))
		}
	}()
	if _, err = scratch.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS target", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE target"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target schema", errors.SlogError(detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back", errors.SlogError(err))
	}
}

// Objects managed internally by SQLite or by replication tooling are never touched.
const unmanaged = `%[1]s.name NOT LIKE 'sqlite_%%' AND %[1]s.name NOT LIKE '_litestream_%%'`

func (m migrator) dropRemoved(ctx context.Context, kind objectKind) error {
	names, err := m.queryStrings(ctx, fmt.Sprintf(`SELECT live.name
FROM main.sqlite_schema AS live
LEFT JOIN target.sqlite_schema AS t ON t.name = live.name AND t.type = live.type
WHERE live.type = ? AND t.name IS NULL AND %s`, fmt.Sprintf(unmanaged, "live")), kind)
	if err != nil {
		return fmt.Errorf("query removed: %w", err)
	}
	for _, name := range names {
		if err = m.exec(ctx, fmt.Sprintf("DROP %s %q", strings.ToUpper(string(kind)), name)); err != nil {
			return err
		}
	}
	return nil
}

func (m migrator) createAdded(ctx context.Context, kind objectKind) error {
	statements, err := m.queryStrings(ctx, fmt.Sprintf(`SELECT t.sql
FROM target.sqlite_schema AS t
LEFT JOIN main.sqlite_schema AS live ON live.name = t.name AND live.type = t.type
WHERE t.type = ? AND live.name IS NULL AND t.sql IS NOT NULL AND %s`, fmt.Sprintf(unmanaged, "t")), kind)
	if err != nil {
		return fmt.Errorf("query added: %w", err)
	}
	for _, stmt := range statements {
		if err = m.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m migrator) changed(ctx context.Context, kind objectKind) ([]schemaChange, error) {
	// Renaming a table quotes its name in sqlite_schema so quotes are ignored in the comparison.
	rows, err := m.tx.QueryContext(ctx, fmt.Sprintf(`SELECT live.name, live.sql, t.sql
FROM main.sqlite_schema AS live
JOIN target.sqlite_schema AS t ON t.name = live.name AND t.type = live.type
WHERE live.type = ? AND REPLACE(live.sql, '"', '') <> REPLACE(t.sql, '"', '') AND %s`,
		fmt.Sprintf(unmanaged, "live")), kind)
	if err != nil {
		return nil, fmt.Errorf("query changed: %w", err)
	}
	defer rows.Close()
	var changes []schemaChange
	for rows.Next() {
		var c schemaChange
		if err = rows.Scan(&c.name, &c.liveSQL, &c.targetSQL); err != nil {
			return nil, fmt.Errorf("scan changed: %w", err)
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changed: %w", err)
	}
	return changes, nil
}

func (m migrator) rebuildChangedTables(ctx context.Context) error {
	changes, err := m.changed(ctx, kindTable)
	if err != nil {
		return err
	}
	for _, c := range changes {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table", slog.String("table", c.name),
			slog.String("liveSQL", c.liveSQL), slog.String("targetSQL", c.targetSQL))
		var columns []string
		// Columns are quoted since some of them may be keywords.
		if columns, err = m.queryStrings(ctx, `SELECT '"' || t.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
JOIN PRAGMA_TABLE_INFO(:table, 'target') AS t ON t.name = live.name`, sql.Named("table", c.name)); err != nil {
			return fmt.Errorf("query shared columns of %s: %w", c.name, err)
		}
		rebuilt := c.name + "_rebuild"
		shared := strings.Join(columns, ", ")
		statements := []string{
			strings.Replace(c.targetSQL, c.name, rebuilt, 1),
			fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", rebuilt, shared, shared, c.name),
			fmt.Sprintf("DROP TABLE %s", c.name),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", rebuilt, c.name),
		}
		for _, stmt := range statements {
			if err = m.exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncObjects drops, creates and replaces indexes or triggers to match the target.
func (m migrator) syncObjects(ctx context.Context, kind objectKind) error {
	if err := m.dropRemoved(ctx, kind); err != nil {
		return err
	}
	if err := m.createAdded(ctx, kind); err != nil {
		return err
	}
	changes, err := m.changed(ctx, kind)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if err = m.exec(ctx, fmt.Sprintf("DROP %s %q", strings.ToUpper(string(kind)), c.name)); err != nil {
			return err
		}
		if err = m.exec(ctx, c.targetSQL); err != nil {
			return err
		}
	}
	return nil
}

func (m migrator) checkForeignKeys(ctx context.Context) error {
	violations, err := m.queryStrings(ctx, `SELECT "table" FROM pragma_foreign_key_check`)
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations in %s", strings.Join(violations, ", "))
	}
	return nil
}

func (m migrator) exec(ctx context.Context, stmt string) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, "migration statement", slog.String("query", stmt))
	if _, err := m.tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("exec %q: %w", stmt, err)
	}
	return nil
}

func (m migrator) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := m.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return results, nil
}
