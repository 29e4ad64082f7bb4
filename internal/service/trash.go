package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// TrashBin keeps an audit copy of every individually deleted note. Entries
// are never restored on their own; they are folded into the owner's archive
// when the account is deleted, and purged right after.
type TrashBin struct {
	repo   repository.TrashRepository
	logger *slog.Logger
}

func NewTrashBin(repo repository.TrashRepository, logger *slog.Logger) *TrashBin {
	return &TrashBin{repo: repo, logger: logger}
}

// ArchiveDeletedNote writes the trash entry for note. It is a field copy;
// the only way it fails is the store being unreachable.
func (t *TrashBin) ArchiveDeletedNote(ctx context.Context, note *model.Note) (*model.TrashedNote, error) {
	trashed := model.NewTrashedNote(note, time.Now().UTC())
	if err := t.repo.Create(ctx, trashed); err != nil {
		t.logger.Error("failed to trash note",
			slog.String("noteID", note.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AsStorage("archiving deleted note", err)
	}
	return trashed, nil
}

func (t *TrashBin) ListByOwner(ctx context.Context, ownerID string) ([]model.TrashedNote, error) {
	trashed, err := t.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.AsStorage("listing trashed notes", err)
	}
	return trashed, nil
}

// PurgeByOwner hard-deletes the owner's trash. Only the account orchestrator
// calls it, after the entries are safely inside an archive record.
func (t *TrashBin) PurgeByOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := t.repo.PurgeByOwner(ctx, ownerID)
	if err != nil {
		return 0, apperror.AsStorage("purging trashed notes", err)
	}
	return count, nil
}
