package model

import "time"

// Position is where a note sits on the dashboard board.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Note is an active to-do note, owned by exactly one User (by ID, not by
// embedding). The owner reference is not enforced by the database; the
// services keep it consistent.
//
// The JSON names match what the web client already sends and reads
// ("user" for the owner, "_id" for the identifier).
type Note struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"user"`
	Text        string    `json:"text"`
	Completed   bool      `json:"completed"`
	IsImportant bool      `json:"isImportant"`
	Position    Position  `json:"position"`
	Color       string    `json:"color"`
	FontSize    string    `json:"fontSize"`
	FontStyle   string    `json:"fontStyle"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ApplyDefaults fills empty presentation fields with the documented defaults.
func (n *Note) ApplyDefaults() {
	if n.FontSize == "" {
		n.FontSize = DefaultFontSize
	}
	if n.FontStyle == "" {
		n.FontStyle = DefaultFontStyle
	}
}

// NotePatch is a partial update. Nil fields are left unchanged.
type NotePatch struct {
	Text        *string   `json:"text"`
	Completed   *bool     `json:"completed"`
	IsImportant *bool     `json:"isImportant"`
	Position    *Position `json:"position"`
	Color       *string   `json:"color"`
	FontSize    *string   `json:"fontSize"`
	FontStyle   *string   `json:"fontStyle"`
}

// Apply copies every non-nil field of the patch onto n.
func (p NotePatch) Apply(n *Note) {
	if p.Text != nil {
		n.Text = *p.Text
	}
	if p.Completed != nil {
		n.Completed = *p.Completed
	}
	if p.IsImportant != nil {
		n.IsImportant = *p.IsImportant
	}
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.FontSize != nil {
		n.FontSize = *p.FontSize
	}
	if p.FontStyle != nil {
		n.FontStyle = *p.FontStyle
	}
}
