// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code. No C compiler needed, works everywhere Go works.
//
// STORAGE HANDLE LIFECYCLE:
// main (or the CLI) calls New once at startup and Close once at shutdown.
// Nothing in this package keeps a package-level connection.
//
// REPOSITORIES:
// Each collection has its own small type (UserDB, NoteDB, TrashDB, ArchiveDB)
// bound to a dbx.DBTX. Bound to the pool they run every statement on its own;
// bound to a *sql.Tx (see WithinTx) they share one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"

	"github.com/sakif/notekeeper/internal/dbx"
	"github.com/sakif/notekeeper/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection pool and hands out repositories bound to it.
type DB struct {
	conn *sql.DB
}

var _ repository.TxRunner = (*DB)(nil)

// New opens the SQLite database at dbPath and runs the embedded migrations.
//
// dbPath examples:
//   - "data/notekeeper.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new empty database, so the
	// pool must never grow past one connection.
	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate applies the embedded goose migrations. goose records applied
// versions in its own goose_db_version table, so this is safe on every start.
func (db *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("locating migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (db *DB) Users() *UserDB       { return &UserDB{q: db.conn} }
func (db *DB) Notes() *NoteDB       { return &NoteDB{q: db.conn} }
func (db *DB) Trash() *TrashDB      { return &TrashDB{q: db.conn} }
func (db *DB) Archives() *ArchiveDB { return &ArchiveDB{q: db.conn} }

// Stores returns all four repositories bound to the connection pool.
func (db *DB) Stores() repository.Stores {
	return storesFor(db.conn)
}

// WithinTx runs fn against repositories bound to a single transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	return dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, storesFor(tx))
	})
}

func storesFor(q dbx.DBTX) repository.Stores {
	return repository.Stores{
		Users:    &UserDB{q: q},
		Notes:    &NoteDB{q: q},
		Trash:    &TrashDB{q: q},
		Archives: &ArchiveDB{q: q},
	}
}

// now returns the current time in UTC without a monotonic clock reading, so
// values round-trip through SQLite text columns unchanged and sort correctly.
func now() time.Time {
	return time.Now().UTC()
}
