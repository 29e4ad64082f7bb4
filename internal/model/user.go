// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Default presentation settings for a fresh account. Notes created without
// explicit styling inherit these through the owner's Settings.
const (
	DefaultFontSize  = "18px"
	DefaultFontStyle = "sans-serif"
)

// Settings holds a user's note-styling preferences.
type Settings struct {
	DefaultColor     string `json:"defaultColor"`
	DefaultFontSize  string `json:"defaultFontSize"`
	DefaultFontStyle string `json:"defaultFontStyle"`
	DashboardColor   string `json:"dashboardColor"`
}

// DefaultSettings returns the settings every new account starts with.
func DefaultSettings() Settings {
	return Settings{
		DefaultFontSize:  DefaultFontSize,
		DefaultFontStyle: DefaultFontStyle,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	DefaultColor     *string `json:"defaultColor"`
	DefaultFontSize  *string `json:"defaultFontSize"`
	DefaultFontStyle *string `json:"defaultFontStyle"`
	DashboardColor   *string `json:"dashboardColor"`
}

// Apply copies every non-nil field onto s.
func (p SettingsPatch) Apply(s *Settings) {
	if p.DefaultColor != nil {
		s.DefaultColor = *p.DefaultColor
	}
	if p.DefaultFontSize != nil {
		s.DefaultFontSize = *p.DefaultFontSize
	}
	if p.DefaultFontStyle != nil {
		s.DefaultFontStyle = *p.DefaultFontStyle
	}
	if p.DashboardColor != nil {
		s.DashboardColor = *p.DashboardColor
	}
}

// User represents a registered user account.
//
// WHY PasswordHash `json:"-"`?
// The hash never leaves the server. The "-" tag tells encoding/json to skip
// the field entirely, so a handler that accidentally writes a *User to the
// response can't leak it.
//
// WHY GitHubID int64?
// GitHub login is optional. Zero means the account was created with
// email/password (or restored from an archive) and has no linked GitHub
// identity.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePic   string    `json:"profilePic"`
	Settings     Settings  `json:"settings"`
	GitHubID     int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
