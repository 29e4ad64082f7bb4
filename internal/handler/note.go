package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/service"
)

// NoteService is the part of service.NoteService the HTTP layer uses.
type NoteService interface {
	ListByOwner(ctx context.Context, ownerID string) ([]model.Note, error)
	Create(ctx context.Context, ownerID string, in service.NoteInput) (*model.Note, error)
	Update(ctx context.Context, noteID, ownerID string, patch model.NotePatch) (*model.Note, error)
	ToggleCompleted(ctx context.Context, noteID, ownerID string) (*model.Note, error)
	ToggleImportant(ctx context.Context, noteID, ownerID string) (*model.Note, error)
	DeleteOne(ctx context.Context, noteID, ownerID string) (string, error)
}

// NoteHandler serves /api/todos. Every route sits behind auth.RequireAuth;
// ownership of the note is checked by the service on each call.
type NoteHandler struct {
	notes  NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// HandleList returns the caller's notes, oldest first.
//
// HTTP: GET /api/todos
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	notes, err := h.notes.ListByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleCreate adds a note.
//
// HTTP: POST /api/todos
// REQUEST BODY: {"text": "Buy milk", "color": "#fff59d"}
//
// Responds 200 rather than 201; the web client checks for 200.
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/todos/{id}
// REQUEST BODY: any subset of text, completed, isImportant, position,
// color, fontSize, fontStyle.
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var patch model.NotePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Update(r.Context(), chi.URLParam(r, "id"), userID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleToggleCompleted flips the completed flag.
//
// HTTP: PATCH /api/todos/{id}/complete
func (h *NoteHandler) HandleToggleCompleted(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.notes.ToggleCompleted)
}

// HandleToggleImportant flips the important flag.
//
// HTTP: PATCH /api/todos/{id}/important
func (h *NoteHandler) HandleToggleImportant(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.notes.ToggleImportant)
}

func (h *NoteHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, noteID, ownerID string) (*model.Note, error)) {
	userID, _ := auth.UserIDFromContext(r.Context())

	note, err := fn(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete moves one note to the trash and removes it.
//
// HTTP: DELETE /api/todos/{id}
// RESPONSE: {"id": "<deleted note id>"}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := h.notes.DeleteOne(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("note deleted", slog.String("noteID", id), slog.String("userID", userID))
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}
