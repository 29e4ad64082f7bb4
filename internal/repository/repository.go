// Package repository declares the storage contracts the services depend on.
//
// Four logical collections back the application: users, notes, trashed notes
// and archive records. There are no foreign keys between them; the services
// (in particular the account orchestrator) keep them consistent.
package repository

import (
	"context"

	"github.com/sakif/notekeeper/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByLogin matches the identifier against email OR name.
	GetByLogin(ctx context.Context, identifier string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	// InsertMany writes notes that already carry their CreatedAt (restore).
	InsertMany(ctx context.Context, notes []model.Note) error
	GetByID(ctx context.Context, id string) (*model.Note, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error)
}

type TrashRepository interface {
	Create(ctx context.Context, trashed *model.TrashedNote) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.TrashedNote, error)
	PurgeByOwner(ctx context.Context, ownerID string) (int64, error)
}

// ArchiveMatch selects which record fields a lookup query is matched against.
type ArchiveMatch int

const (
	// MatchNameOrEmail is a case-insensitive substring match on name or email.
	MatchNameOrEmail ArchiveMatch = iota
	// MatchEmail is a case-insensitive substring match on email only.
	MatchEmail
	// MatchEmailExact is a case-insensitive equality match on email.
	MatchEmailExact
)

type ArchiveRepository interface {
	Create(ctx context.Context, record *model.ArchiveRecord) error
	// FindMostRecent returns the newest record matching query, or
	// apperror.ErrNotFound.
	FindMostRecent(ctx context.Context, query string, match ArchiveMatch) (*model.ArchiveRecord, error)
	// List returns every matching record, newest first. An empty query
	// matches everything.
	List(ctx context.Context, query string, match ArchiveMatch) ([]model.ArchiveRecord, error)
}

// Stores bundles the four repositories bound to one storage handle (either
// the connection pool or a single transaction).
type Stores struct {
	Users    UserRepository
	Notes    NoteRepository
	Trash    TrashRepository
	Archives ArchiveRepository
}

// TxRunner runs fn with Stores bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
