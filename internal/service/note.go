package service

import (
	"context"
	"log/slog"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// NoteInput is what a client may set when creating a note. Empty
// presentation fields fall back to the owner's settings, then to the
// global defaults.
type NoteInput struct {
	Text        string         `json:"text"`
	Completed   bool           `json:"completed"`
	IsImportant bool           `json:"isImportant"`
	Position    model.Position `json:"position"`
	Color       string         `json:"color"`
	FontSize    string         `json:"fontSize"`
	FontStyle   string         `json:"fontStyle"`
}

// NoteService handles business logic for a user's notes.
//
// OWNERSHIP:
// Every mutating call takes the caller's ID and re-checks it against the
// stored owner. Nothing is cached between calls.
type NoteService struct {
	notes  repository.NoteRepository
	users  repository.UserRepository
	trash  *TrashBin
	logger *slog.Logger
}

func NewNoteService(notes repository.NoteRepository, users repository.UserRepository, trash *TrashBin, logger *slog.Logger) *NoteService {
	return &NoteService{
		notes:  notes,
		users:  users,
		trash:  trash,
		logger: logger,
	}
}

// Create validates and saves a new note for ownerID.
func (s *NoteService) Create(ctx context.Context, ownerID string, in NoteInput) (*model.Note, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("User not found")
	}

	text := cleanText(in.Text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "Please add a text field")
	}

	// The owner must still exist; notes never reference a deleted account.
	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, apperror.AsStorage("loading note owner", err)
	}

	note := &model.Note{
		OwnerID:     ownerID,
		Text:        text,
		Completed:   in.Completed,
		IsImportant: in.IsImportant,
		Position:    in.Position,
		Color:       firstNonEmpty(in.Color, owner.Settings.DefaultColor),
		FontSize:    firstNonEmpty(in.FontSize, owner.Settings.DefaultFontSize),
		FontStyle:   firstNonEmpty(in.FontStyle, owner.Settings.DefaultFontStyle),
	}
	note.ApplyDefaults()

	if err := s.notes.Create(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AsStorage("creating note", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("ownerID", ownerID),
	)
	return note, nil
}

// ListByOwner returns the owner's notes, oldest first.
func (s *NoteService) ListByOwner(ctx context.Context, ownerID string) ([]model.Note, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("User not found")
	}
	notes, err := s.notes.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list notes", slog.String("error", err.Error()))
		return nil, apperror.AsStorage("listing notes", err)
	}
	return notes, nil
}

// Update applies a partial patch to a note owned by ownerID.
//
// STRATEGY: "fetch, authorize, then update"
// The fetch gives the NotFound error and the owner to compare against; the
// update then writes the merged copy and returns it.
func (s *NoteService) Update(ctx context.Context, noteID, ownerID string, patch model.NotePatch) (*model.Note, error) {
	note, err := s.owned(ctx, noteID, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.Text != nil {
		text := cleanText(*patch.Text)
		if text == "" {
			return nil, apperror.ValidationFailed("text", "Please add a text field")
		}
		patch.Text = &text
	}
	patch.Apply(note)
	note.ApplyDefaults()

	if err := s.notes.Update(ctx, note); err != nil {
		s.logger.Error("failed to update note",
			slog.String("id", noteID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AsStorage("updating note", err)
	}

	s.logger.Info("note updated", slog.String("id", noteID))
	return note, nil
}

// ToggleCompleted flips the completed flag.
func (s *NoteService) ToggleCompleted(ctx context.Context, noteID, ownerID string) (*model.Note, error) {
	note, err := s.owned(ctx, noteID, ownerID)
	if err != nil {
		return nil, err
	}
	completed := !note.Completed
	return s.Update(ctx, noteID, ownerID, model.NotePatch{Completed: &completed})
}

// ToggleImportant flips the important flag.
func (s *NoteService) ToggleImportant(ctx context.Context, noteID, ownerID string) (*model.Note, error) {
	note, err := s.owned(ctx, noteID, ownerID)
	if err != nil {
		return nil, err
	}
	important := !note.IsImportant
	return s.Update(ctx, noteID, ownerID, model.NotePatch{IsImportant: &important})
}

// DeleteOne removes one note after copying it into the trash bin.
//
// ORDER MATTERS: archive first, delete second. If the trash write fails the
// note stays where it is; a crash between the two steps leaves a duplicate
// audit copy, never a lost note.
func (s *NoteService) DeleteOne(ctx context.Context, noteID, ownerID string) (string, error) {
	note, err := s.owned(ctx, noteID, ownerID)
	if err != nil {
		return "", err
	}

	if _, err := s.trash.ArchiveDeletedNote(ctx, note); err != nil {
		return "", err
	}

	if err := s.notes.Delete(ctx, noteID); err != nil {
		s.logger.Error("failed to delete note",
			slog.String("id", noteID),
			slog.String("error", err.Error()),
		)
		return "", apperror.AsStorage("deleting note", err)
	}

	s.logger.Info("note deleted", slog.String("id", noteID), slog.String("ownerID", ownerID))
	return noteID, nil
}

// DeleteAllByOwner purges every note of ownerID without touching the trash
// bin. The account orchestrator calls it after the notes are archived.
func (s *NoteService) DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := s.notes.DeleteAllByOwner(ctx, ownerID)
	if err != nil {
		return 0, apperror.AsStorage("deleting notes", err)
	}
	return count, nil
}

// owned loads a note and checks that ownerID owns it.
func (s *NoteService) owned(ctx context.Context, noteID, ownerID string) (*model.Note, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("User not found")
	}
	if noteID == "" {
		return nil, apperror.ValidationFailed("id", "note ID is required")
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFoundMessage("Todo not found")
		}
		return nil, apperror.AsStorage("loading note", err)
	}

	if note.OwnerID != ownerID {
		s.logger.Warn("note ownership mismatch",
			slog.String("id", noteID),
			slog.String("callerID", ownerID),
		)
		return nil, apperror.Forbidden("User not authorized")
	}
	return note, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
