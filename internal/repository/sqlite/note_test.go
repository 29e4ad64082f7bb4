package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
)

func createTestNote(t *testing.T, n *NoteDB, ownerID, text string) *model.Note {
	t.Helper()
	note := &model.Note{OwnerID: ownerID, Text: text}
	note.ApplyDefaults()
	if err := n.Create(context.Background(), note); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	return note
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestNoteCreate(t *testing.T) {
	n := newTestDB(t).Notes()

	note := &model.Note{
		OwnerID:     "owner-1",
		Text:        "Buy milk",
		IsImportant: true,
		Position:    model.Position{X: 12.5, Y: 40},
		Color:       "#ffeb3b",
	}
	note.ApplyDefaults()
	if err := n.Create(context.Background(), note); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if note.ID == "" {
		t.Error("Create() did not set note.ID")
	}

	found, err := n.GetByID(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Text != "Buy milk" || !found.IsImportant || found.Completed {
		t.Errorf("round trip mismatch: %+v", found)
	}
	if found.Position != (model.Position{X: 12.5, Y: 40}) {
		t.Errorf("Position = %+v, want {12.5 40}", found.Position)
	}
	if found.FontSize != model.DefaultFontSize || found.FontStyle != model.DefaultFontStyle {
		t.Errorf("font = %q/%q, want defaults", found.FontSize, found.FontStyle)
	}
}

func TestNoteGetByID_NotFound(t *testing.T) {
	n := newTestDB(t).Notes()

	_, err := n.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestNoteListByOwner_ScopedAndOrdered(t *testing.T) {
	n := newTestDB(t).Notes()
	first := createTestNote(t, n, "owner-1", "first")
	second := createTestNote(t, n, "owner-1", "second")
	createTestNote(t, n, "owner-2", "someone else's")

	notes, err := n.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len(notes) = %d, want 2", len(notes))
	}
	if notes[0].ID != first.ID || notes[1].ID != second.ID {
		t.Errorf("order = [%s %s], want [%s %s]", notes[0].ID, notes[1].ID, first.ID, second.ID)
	}
}

func TestNoteListByOwner_EmptyIsNotNil(t *testing.T) {
	n := newTestDB(t).Notes()

	notes, err := n.ListByOwner(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if notes == nil {
		t.Error("ListByOwner() returned nil, want empty slice")
	}
}

// =========================================================================
// INSERT MANY TESTS
// =========================================================================

func TestNoteInsertMany_PreservesCreatedAt(t *testing.T) {
	n := newTestDB(t).Notes()
	older := time.Date(2023, 4, 1, 9, 30, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

	notes := []model.Note{
		{OwnerID: "owner-1", Text: "from 2024", CreatedAt: newer, Completed: true},
		{OwnerID: "owner-1", Text: "from 2023", CreatedAt: older},
	}
	for i := range notes {
		notes[i].ApplyDefaults()
	}
	if err := n.InsertMany(context.Background(), notes); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}
	if notes[0].ID == "" || notes[0].ID == notes[1].ID {
		t.Fatalf("InsertMany() ids = %q, %q", notes[0].ID, notes[1].ID)
	}

	listed, err := n.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("len(listed) = %d, want 2", len(listed))
	}
	// Ordered by the preserved creation time, not by insertion.
	if listed[0].Text != "from 2023" || !listed[0].CreatedAt.Equal(older) {
		t.Errorf("listed[0] = %q @ %v, want from 2023 @ %v", listed[0].Text, listed[0].CreatedAt, older)
	}
	if !listed[1].Completed {
		t.Error("listed[1].Completed = false, want true")
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestNoteUpdate(t *testing.T) {
	n := newTestDB(t).Notes()
	note := createTestNote(t, n, "owner-1", "draft")

	note.Text = "final"
	note.Completed = true
	if err := n.Update(context.Background(), note); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := n.GetByID(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Text != "final" || !found.Completed {
		t.Errorf("after update = %+v", found)
	}
	if !found.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("Update() changed CreatedAt")
	}
}

func TestNoteUpdate_NotFound(t *testing.T) {
	n := newTestDB(t).Notes()

	err := n.Update(context.Background(), &model.Note{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestNoteDelete(t *testing.T) {
	n := newTestDB(t).Notes()
	note := createTestNote(t, n, "owner-1", "bye")

	if err := n.Delete(context.Background(), note.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := n.Delete(context.Background(), note.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestNoteDeleteAllByOwner(t *testing.T) {
	n := newTestDB(t).Notes()
	createTestNote(t, n, "owner-1", "a")
	createTestNote(t, n, "owner-1", "b")
	keep := createTestNote(t, n, "owner-2", "c")

	count, err := n.DeleteAllByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("DeleteAllByOwner() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if _, err := n.GetByID(context.Background(), keep.ID); err != nil {
		t.Errorf("other owner's note was removed: %v", err)
	}
}
