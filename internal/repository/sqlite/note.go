package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/dbx"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// NoteDB stores active notes.
type NoteDB struct {
	q dbx.DBTX
}

var _ repository.NoteRepository = (*NoteDB)(nil)

const noteColumns = `id, owner_id, text, completed, is_important, pos_x, pos_y,
	color, font_size, font_style, created_at, updated_at`

// Create inserts a new note, generating its ID and timestamps.
func (n *NoteDB) Create(ctx context.Context, note *model.Note) error {
	note.ID = xid.New().String()
	ts := now()
	note.CreatedAt = ts
	note.UpdatedAt = ts

	if err := n.insert(ctx, note); err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}
	return nil
}

// InsertMany writes notes restored from an archive. Each note gets a new ID
// but keeps the CreatedAt it carries (zero falls back to now). Insertion
// stops at the first failure.
func (n *NoteDB) InsertMany(ctx context.Context, notes []model.Note) error {
	for i := range notes {
		note := &notes[i]
		note.ID = xid.New().String()
		ts := now()
		if note.CreatedAt.IsZero() {
			note.CreatedAt = ts
		}
		note.CreatedAt = note.CreatedAt.UTC()
		note.UpdatedAt = ts

		if err := n.insert(ctx, note); err != nil {
			return fmt.Errorf("sqlite: inserting note %d of %d: %w", i+1, len(notes), err)
		}
	}
	return nil
}

func (n *NoteDB) insert(ctx context.Context, note *model.Note) error {
	_, err := n.q.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.OwnerID,
		note.Text,
		note.Completed,
		note.IsImportant,
		note.Position.X,
		note.Position.Y,
		note.Color,
		note.FontSize,
		note.FontStyle,
		note.CreatedAt,
		note.UpdatedAt,
	)
	return err
}

// GetByID retrieves a single note. Ownership is not checked here; that is the
// service's job.
func (n *NoteDB) GetByID(ctx context.Context, id string) (*model.Note, error) {
	row := n.q.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)

	var note model.Note
	if err := scanNote(row, &note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", id, err)
	}
	return &note, nil
}

// ListByOwner returns an owner's notes, oldest first.
func (n *NoteDB) ListByOwner(ctx context.Context, ownerID string) ([]model.Note, error) {
	rows, err := n.q.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE owner_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes for %s: %w", ownerID, err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var note model.Note
		if err := scanNote(rows, &note); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}
	return notes, nil
}

// Update writes every mutable field of the note.
func (n *NoteDB) Update(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = now()

	result, err := n.q.ExecContext(ctx,
		`UPDATE notes
		 SET text = ?, completed = ?, is_important = ?, pos_x = ?, pos_y = ?,
		     color = ?, font_size = ?, font_style = ?, updated_at = ?
		 WHERE id = ?`,
		note.Text,
		note.Completed,
		note.IsImportant,
		note.Position.X,
		note.Position.Y,
		note.Color,
		note.FontSize,
		note.FontStyle,
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}
	return requireOneRow(result, "note", note.ID)
}

func (n *NoteDB) Delete(ctx context.Context, id string) error {
	result, err := n.q.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}
	return requireOneRow(result, "note", id)
}

// DeleteAllByOwner removes every note of an owner and reports how many rows
// went away.
func (n *NoteDB) DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := n.q.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting notes for %s: %w", ownerID, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner, note *model.Note) error {
	return s.Scan(
		&note.ID,
		&note.OwnerID,
		&note.Text,
		&note.Completed,
		&note.IsImportant,
		&note.Position.X,
		&note.Position.Y,
		&note.Color,
		&note.FontSize,
		&note.FontStyle,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
}
