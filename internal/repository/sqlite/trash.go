package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/notekeeper/internal/dbx"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// TrashDB holds audit copies of individually deleted notes.
type TrashDB struct {
	q dbx.DBTX
}

var _ repository.TrashRepository = (*TrashDB)(nil)

const trashColumns = `id, original_note_id, owner_id, text, original_created_at,
	was_completed, deleted_at`

// Create appends a trash entry. DeletedAt defaults to now.
func (t *TrashDB) Create(ctx context.Context, trashed *model.TrashedNote) error {
	trashed.ID = xid.New().String()
	if trashed.DeletedAt.IsZero() {
		trashed.DeletedAt = now()
	}

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO trashed_notes (`+trashColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trashed.ID,
		trashed.OriginalNoteID,
		trashed.OwnerID,
		trashed.Text,
		trashed.OriginalCreatedAt.UTC(),
		trashed.WasCompleted,
		trashed.DeletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: trashing note %s: %w", trashed.OriginalNoteID, err)
	}
	return nil
}

// ListByOwner returns an owner's trash entries in deletion order.
func (t *TrashDB) ListByOwner(ctx context.Context, ownerID string) ([]model.TrashedNote, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+trashColumns+` FROM trashed_notes
		 WHERE owner_id = ?
		 ORDER BY deleted_at ASC, rowid ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing trash for %s: %w", ownerID, err)
	}
	defer rows.Close()

	trashed := make([]model.TrashedNote, 0)
	for rows.Next() {
		var tn model.TrashedNote
		if err := rows.Scan(
			&tn.ID,
			&tn.OriginalNoteID,
			&tn.OwnerID,
			&tn.Text,
			&tn.OriginalCreatedAt,
			&tn.WasCompleted,
			&tn.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning trash row: %w", err)
		}
		trashed = append(trashed, tn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating trash: %w", err)
	}
	return trashed, nil
}

// PurgeByOwner hard-deletes an owner's trash and reports the count removed.
func (t *TrashDB) PurgeByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := t.q.ExecContext(ctx, `DELETE FROM trashed_notes WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging trash for %s: %w", ownerID, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return count, nil
}
