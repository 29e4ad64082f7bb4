// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// The services here take repository interfaces, never *sqlite.DB, so the
// tests run against in-memory fakes and the CLI reuses the exact same rules
// as the HTTP handlers.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  DB → Repositories → Services → Handlers
//	At runtime:       Handler calls Service calls Repository calls DB
//
// The account orchestrator (account.go) is the only service that touches
// more than one collection in a single operation.
package service

import (
	"errors"
	"strings"

	"github.com/sakif/notekeeper/internal/apperror"
)

// cleanText trims surrounding whitespace from user-supplied text. Everything
// else is stored exactly as sent; escaping is the renderer's job.
func cleanText(s string) string {
	return strings.TrimSpace(s)
}

// normalizeEmail is the canonical stored form of an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
