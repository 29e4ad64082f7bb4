package model

import "time"

// DeletedMarker is appended to the text of notes that were already in the
// trash when their owner's account was archived.
const DeletedMarker = " [Deleted]"

// DefaultArchiveReason is recorded when the caller gives no reason.
const DefaultArchiveReason = "User requested deletion"

// TrashedNote is the immutable audit copy written when a single note is
// deleted. It is never restored on its own; it only survives by being folded
// into an ArchiveRecord when the owner deletes their account.
type TrashedNote struct {
	ID                string    `json:"_id"`
	OriginalNoteID    string    `json:"originalTodoId"`
	OwnerID           string    `json:"user"`
	Text              string    `json:"text"`
	OriginalCreatedAt time.Time `json:"originalCreatedAt"`
	WasCompleted      bool      `json:"wasCompleted"`
	DeletedAt         time.Time `json:"deletedAt"`
}

// NewTrashedNote maps a live note onto its trash entry. No business logic
// beyond field mapping.
func NewTrashedNote(n *Note, deletedAt time.Time) *TrashedNote {
	return &TrashedNote{
		OriginalNoteID:    n.ID,
		OwnerID:           n.OwnerID,
		Text:              n.Text,
		OriginalCreatedAt: n.CreatedAt,
		WasCompleted:      n.Completed,
		DeletedAt:         deletedAt,
	}
}

// SavedNote is one note inside an archive snapshot.
type SavedNote struct {
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Completed bool      `json:"completed" yaml:"completed"`
}

// ArchiveRecord is a self-contained snapshot of a deleted account. Several
// records can share an email (re-registration followed by re-deletion);
// restore always picks the newest. Records are append-only.
type ArchiveRecord struct {
	ID             string      `json:"_id" yaml:"id"`
	OriginalUserID string      `json:"originalId" yaml:"originalId"`
	Name           string      `json:"name" yaml:"name"`
	Email          string      `json:"email" yaml:"email"`
	ArchivedAt     time.Time   `json:"deletedAt" yaml:"archivedAt"`
	Reason         string      `json:"reasons" yaml:"reason"`
	SavedNotes     []SavedNote `json:"savedTodos" yaml:"savedNotes"`
}

// BuildSavedNotes concatenates the active notes (verbatim) and the trashed
// notes (text marked, original timestamps) in that order.
func BuildSavedNotes(active []Note, trashed []TrashedNote) []SavedNote {
	saved := make([]SavedNote, 0, len(active)+len(trashed))
	for _, n := range active {
		saved = append(saved, SavedNote{
			Text:      n.Text,
			CreatedAt: n.CreatedAt,
			Completed: n.Completed,
		})
	}
	for _, t := range trashed {
		saved = append(saved, SavedNote{
			Text:      t.Text + DeletedMarker,
			CreatedAt: t.OriginalCreatedAt,
			Completed: t.WasCompleted,
		})
	}
	return saved
}

// AccountState is the lifecycle of an account through the archive workflow.
type AccountState string

const (
	StateActive    AccountState = "ACTIVE"
	StateDeleting  AccountState = "DELETING"
	StateArchived  AccountState = "ARCHIVED"
	StateRestoring AccountState = "RESTORING"
)
