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

// ArchiveDB is the append-only store of account snapshots.
type ArchiveDB struct {
	q dbx.DBTX
}

var _ repository.ArchiveRepository = (*ArchiveDB)(nil)

const archiveColumns = `id, original_user_id, name, email, reason, archived_at`

// Create writes the record header and its saved notes. The whole record is
// written in one transaction; when the ArchiveDB is already bound to a
// transaction it joins that one instead.
func (a *ArchiveDB) Create(ctx context.Context, record *model.ArchiveRecord) error {
	record.ID = xid.New().String()
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = now()
	}
	record.ArchivedAt = record.ArchivedAt.UTC()
	if record.Reason == "" {
		record.Reason = model.DefaultArchiveReason
	}
	if record.SavedNotes == nil {
		record.SavedNotes = []model.SavedNote{}
	}

	err := a.atomically(ctx, func(ctx context.Context, q dbx.DBTX) error {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO archives (`+archiveColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.OriginalUserID,
			record.Name,
			record.Email,
			record.Reason,
			record.ArchivedAt,
		); err != nil {
			return err
		}

		for i, sn := range record.SavedNotes {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO archive_notes (archive_id, position, text, created_at, completed)
				 VALUES (?, ?, ?, ?, ?)`,
				record.ID, i, sn.Text, sn.CreatedAt.UTC(), sn.Completed,
			); err != nil {
				return fmt.Errorf("saved note %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: creating archive for %s: %w", record.Email, err)
	}
	return nil
}

// FindMostRecent returns the newest record matching query. Ties on
// archived_at go to the record inserted last.
func (a *ArchiveDB) FindMostRecent(ctx context.Context, query string, match repository.ArchiveMatch) (*model.ArchiveRecord, error) {
	where, args := archiveFilter(query, match)
	row := a.q.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archives`+where+`
		 ORDER BY archived_at DESC, rowid DESC
		 LIMIT 1`,
		args...,
	)

	var record model.ArchiveRecord
	if err := scanArchive(row, &record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage(fmt.Sprintf("no archive matches %q", query))
		}
		return nil, fmt.Errorf("sqlite: finding archive for %q: %w", query, err)
	}

	notes, err := a.savedNotes(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.SavedNotes = notes
	return &record, nil
}

// List returns all matching records, newest first, each with its notes.
func (a *ArchiveDB) List(ctx context.Context, query string, match repository.ArchiveMatch) ([]model.ArchiveRecord, error) {
	where, args := archiveFilter(query, match)
	rows, err := a.q.QueryContext(ctx,
		`SELECT `+archiveColumns+` FROM archives`+where+`
		 ORDER BY archived_at DESC, rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing archives: %w", err)
	}

	records := make([]model.ArchiveRecord, 0)
	for rows.Next() {
		var record model.ArchiveRecord
		if err := scanArchive(rows, &record); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning archive row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating archives: %w", err)
	}
	// Close before the per-record queries: an in-memory database has a single
	// connection and the open cursor would hold it.
	rows.Close()

	for i := range records {
		notes, err := a.savedNotes(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].SavedNotes = notes
	}
	return records, nil
}

func (a *ArchiveDB) savedNotes(ctx context.Context, archiveID string) ([]model.SavedNote, error) {
	rows, err := a.q.QueryContext(ctx,
		`SELECT text, created_at, completed FROM archive_notes
		 WHERE archive_id = ?
		 ORDER BY position ASC`,
		archiveID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading saved notes of %s: %w", archiveID, err)
	}
	defer rows.Close()

	notes := make([]model.SavedNote, 0)
	for rows.Next() {
		var sn model.SavedNote
		if err := rows.Scan(&sn.Text, &sn.CreatedAt, &sn.Completed); err != nil {
			return nil, fmt.Errorf("sqlite: scanning saved note: %w", err)
		}
		notes = append(notes, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating saved notes: %w", err)
	}
	return notes, nil
}

// atomically runs fn in a fresh transaction when bound to the pool, or
// directly on the transaction it is already bound to.
func (a *ArchiveDB) atomically(ctx context.Context, fn func(ctx context.Context, q dbx.DBTX) error) error {
	if pool, ok := a.q.(*sql.DB); ok {
		return dbx.WithTx(ctx, pool, nil, fn)
	}
	return fn(ctx, a.q)
}

// archiveFilter builds the WHERE clause for a lookup. Matching is
// case-insensitive; an empty query matches every record.
func archiveFilter(query string, match repository.ArchiveMatch) (string, []any) {
	if query == "" {
		return "", nil
	}
	switch match {
	case repository.MatchEmailExact:
		return ` WHERE lower(email) = lower(?)`, []any{query}
	case repository.MatchEmail:
		return ` WHERE instr(lower(email), lower(?)) > 0`, []any{query}
	default:
		return ` WHERE instr(lower(name), lower(?)) > 0 OR instr(lower(email), lower(?)) > 0`,
			[]any{query, query}
	}
}

func scanArchive(s scanner, record *model.ArchiveRecord) error {
	return s.Scan(
		&record.ID,
		&record.OriginalUserID,
		&record.Name,
		&record.Email,
		&record.Reason,
		&record.ArchivedAt,
	)
}
