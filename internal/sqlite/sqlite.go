// Package sqlite opens the report database, keeps its schema in sync with schema.sql, and loads the fixtures.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/coachreports/internal/errors"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

//go:embed demo.sql
var demoData string

// Database holds separate pools for writes and reads. SQLite allows a single writer, so the read-write pool has
// one connection while reads run concurrently.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to url, migrates the schema, applies the fixtures and starts the background optimizer,
// which stops with ctx.
//
// url is a file path or ":memory:" for a private in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Join(fmt.Errorf("apply fixtures: %w", err), db.Close())
	}
	go db.optimize(ctx)
	return db, nil
}

// SeedDemo inserts the demo accounts and their training history. Existing rows are left untouched.
func (db *Database) SeedDemo(ctx context.Context) error {
	if _, err := db.ReadWrite.ExecContext(ctx, demoData); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "seeded demo data")
	return nil
}

//nolint:gochecknoglobals // the driver can only be registered once per process.
var registerDriver sync.Once

const driverName = "sqlite3_reports"

func newDriver() *sqlite3.SQLiteDriver {
	return &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// Temporary tables in memory and memory-mapped pages avoid syscalls on the hot paths.
			if _, err := conn.Exec("PRAGMA temp_store = memory; PRAGMA mmap_size = 268435456;", nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	}
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	// Both pools must see the same in-memory database, and parallel tests must not, hence a random shared name.
	memoryParams := ""
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		memoryParams = "&mode=memory&cache=shared"
	}
	// Parameters with a leading underscore are go-sqlite3 options, the rest are SQLite URI parameters.
	params := strings.Join([]string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")
	readWriteDSN := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, params, memoryParams)
	readOnlyDSN := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s", url, params, memoryParams)

	registerDriver.Do(func() { sql.Register(driverName, newDriver()) })

	readWrite, err := sql.Open(driverName, readWriteDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-write pool: %w", err)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))
	readWrite.SetMaxOpenConns(1)
	readWrite.SetMaxIdleConns(1)
	readWrite.SetConnMaxLifetime(time.Hour)
	readWrite.SetConnMaxIdleTime(time.Hour)
	// sql.Open is lazy. Pinging creates the database file or the shared in-memory database.
	if err = readWrite.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write pool: %w", err), readWrite.Close())
	}

	readOnly, err := sql.Open(driverName, readOnlyDSN)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read-only pool: %w", err), readWrite.Close())
	}
	const maxReaders = 10
	readOnly.SetMaxOpenConns(maxReaders)
	readOnly.SetMaxIdleConns(maxReaders)
	readOnly.SetConnMaxLifetime(time.Hour)
	readOnly.SetConnMaxIdleTime(time.Hour)

	return &Database{ReadWrite: readWrite, ReadOnly: readOnly, logger: logger}, nil
}

// Close closes both pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
