package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/config"
	"github.com/sakif/notekeeper/internal/model"
	sqliteRepo "github.com/sakif/notekeeper/internal/repository/sqlite"
	"github.com/sakif/notekeeper/internal/service"
)

// seedArchivedAccount creates Ann with one note, deletes her account and
// returns the database path.
func seedArchivedAccount(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.db")

	db, err := sqliteRepo.New(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := db.Stores()

	ann := &model.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "x", Settings: model.DefaultSettings()}
	require.NoError(t, stores.Users.Create(ctx, ann))
	note := &model.Note{OwnerID: ann.ID, Text: "Buy milk"}
	note.ApplyDefaults()
	require.NoError(t, stores.Notes.Create(ctx, note))

	o, err := service.NewOrchestrator(stores, db, auth.NewPasswordServiceForTest(bcrypt.MinCost), service.AccountOptions{}, logger)
	require.NoError(t, err)
	_, err = o.DeleteAccount(ctx, ann.ID)
	require.NoError(t, err)

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestArchivesList(t *testing.T) {
	path := seedArchivedAccount(t)

	out, err := run(t, "--db", path, "archives", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ARCHIVED AT")
	assert.Contains(t, out, "ann@x.com")

	out, err = run(t, "--db", path, "archives", "list", "nobody")
	require.NoError(t, err)
	assert.NotContains(t, out, "ann@x.com")
}

func TestArchivesShow(t *testing.T) {
	path := seedArchivedAccount(t)

	out, err := run(t, "--db", path, "archives", "show", "ANN")
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, "ann@x.com", fromYAML["email"])

	out, err = run(t, "--db", path, "archives", "show", "ann", "--output", "json")
	require.NoError(t, err)
	var record model.ArchiveRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	require.Len(t, record.SavedNotes, 1)
	assert.Equal(t, "Buy milk", record.SavedNotes[0].Text)

	_, err = run(t, "--db", path, "archives", "show", "ann", "--output", "xml")
	assert.Error(t, err)

	_, err = run(t, "--db", path, "archives", "show", "zed")
	assert.Error(t, err)
}

func TestRestoreCommand(t *testing.T) {
	path := seedArchivedAccount(t)

	// Name matching is available to operators.
	out, err := run(t, "--db", path, "restore", "Ann")
	require.NoError(t, err)
	assert.Contains(t, out, "Account restored")
	assert.Contains(t, out, "Restored 1 notes")

	out, err = run(t, "--db", path, "restore", "ann", "--policy", "skip_existing")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.Contains(t, out, "Skipped 1 notes")

	_, err = run(t, "--db", path, "restore", "zed")
	require.Error(t, err)
	assert.Equal(t, "No archived user found with that email", err.Error())

	_, err = run(t, "--db", path, "restore", "ann", "--policy", "merge")
	assert.Error(t, err)
}

func TestAccountOptions(t *testing.T) {
	archive := config.ArchiveConfig{
		RestorePolicy:     "duplicate",
		ExactEmailMatch:   true,
		Transactional:     true,
		TemporaryPassword: "changeme",
	}

	opts := accountOptions(archive, "")
	assert.Equal(t, service.AccountOptions{
		RestorePolicy:     service.RestoreDuplicate,
		TemporaryPassword: "changeme",
		ExactEmailMatch:   true,
		Transactional:     true,
	}, opts)

	opts = accountOptions(archive, "skip_existing")
	assert.Equal(t, service.RestoreSkipExisting, opts.RestorePolicy)
}

func TestRestoreCommand_ExactEmailConfigKeepsNameMatch(t *testing.T) {
	path := seedArchivedAccount(t)
	cfgPath := filepath.Join(t.TempDir(), "notekeeper.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[archive]\nexact_email_match = true\n"), 0o600))

	out, err := run(t, "--config", cfgPath, "--db", path, "restore", "Ann")
	require.NoError(t, err)
	assert.Contains(t, out, "Account restored")
}
