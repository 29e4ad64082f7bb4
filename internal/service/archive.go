package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// ArchiveStore builds and looks up account snapshots.
//
// Lookups are case-insensitive substring matches so an operator who only
// remembers part of a name or address can still find the record. When more
// than one record matches, the most recently archived one wins.
type ArchiveStore struct {
	repo       repository.ArchiveRepository
	exactEmail bool
	logger     *slog.Logger
}

// NewArchiveStore creates an ArchiveStore. With exactEmail set,
// FindMostRecentByEmail requires the whole address (still ignoring case).
func NewArchiveStore(repo repository.ArchiveRepository, exactEmail bool, logger *slog.Logger) *ArchiveStore {
	return &ArchiveStore{repo: repo, exactEmail: exactEmail, logger: logger}
}

// CreateArchive snapshots user together with their active notes (verbatim)
// and trashed notes (marked with model.DeletedMarker).
func (a *ArchiveStore) CreateArchive(ctx context.Context, user *model.User, active []model.Note, trashed []model.TrashedNote) (*model.ArchiveRecord, error) {
	record := &model.ArchiveRecord{
		OriginalUserID: user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Reason:         model.DefaultArchiveReason,
		SavedNotes:     model.BuildSavedNotes(active, trashed),
	}

	if err := a.repo.Create(ctx, record); err != nil {
		a.logger.Error("failed to create archive",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AsStorage("creating archive record", err)
	}

	a.logger.Info("archive created",
		slog.String("archiveID", record.ID),
		slog.String("userID", user.ID),
		slog.Int("savedNotes", len(record.SavedNotes)),
	)
	return record, nil
}

// FindMostRecentByFuzzyMatch matches query against name or email. It
// returns (nil, nil) when nothing matches.
func (a *ArchiveStore) FindMostRecentByFuzzyMatch(ctx context.Context, query string) (*model.ArchiveRecord, error) {
	return a.findMostRecent(ctx, query, repository.MatchNameOrEmail)
}

// FindMostRecentByEmail matches email against the archived email only. It
// returns (nil, nil) when nothing matches.
func (a *ArchiveStore) FindMostRecentByEmail(ctx context.Context, email string) (*model.ArchiveRecord, error) {
	match := repository.MatchEmail
	if a.exactEmail {
		match = repository.MatchEmailExact
	}
	return a.findMostRecent(ctx, email, match)
}

// List returns every record matching query on name or email, newest first.
// An empty query lists everything.
func (a *ArchiveStore) List(ctx context.Context, query string) ([]model.ArchiveRecord, error) {
	records, err := a.repo.List(ctx, strings.TrimSpace(query), repository.MatchNameOrEmail)
	if err != nil {
		return nil, apperror.AsStorage("listing archive records", err)
	}
	return records, nil
}

func (a *ArchiveStore) findMostRecent(ctx context.Context, query string, match repository.ArchiveMatch) (*model.ArchiveRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	record, err := a.repo.FindMostRecent(ctx, query, match)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperror.AsStorage("searching archive records", err)
	}
	return record, nil
}
