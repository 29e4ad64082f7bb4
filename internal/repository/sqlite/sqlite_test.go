package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test a fresh, isolated database that disappears when
// the connection closes. New pins the pool to one connection for this path,
// so every statement in a test sees the same data.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	// Running the provider a second time must be a no-op.
	if err := db.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}

	for _, table := range []string{"users", "notes", "trashed_notes", "archives", "archive_notes"} {
		var name string
		err := db.conn.QueryRowContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context, s repository.Stores) error {
		return s.Notes.Create(ctx, &model.Note{OwnerID: "owner-1", Text: "inside tx"})
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}

	notes, err := db.Notes().ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context, s repository.Stores) error {
		if err := s.Notes.Create(ctx, &model.Note{OwnerID: "owner-1", Text: "rolled back"}); err != nil {
			return err
		}
		if err := s.Archives.Create(ctx, &model.ArchiveRecord{Name: "x", Email: "x@example.com"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	notes, err := db.Notes().ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("len(notes) = %d after rollback, want 0", len(notes))
	}

	records, err := db.Archives().List(ctx, "", repository.MatchNameOrEmail)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d after rollback, want 0", len(records))
	}
}
