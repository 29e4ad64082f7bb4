package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// RestorePolicy decides what happens to saved notes that the restore target
// already has.
type RestorePolicy string

const (
	// RestoreDuplicate re-inserts every saved note on every restore.
	RestoreDuplicate RestorePolicy = "duplicate"
	// RestoreSkipExisting skips saved notes whose text and creation time
	// already exist for the target account.
	RestoreSkipExisting RestorePolicy = "skip_existing"
)

// DefaultTemporaryPassword is given to accounts recreated by a restore.
const DefaultTemporaryPassword = "password123"

// PasswordHasher turns a plaintext password into its stored form.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// AccountOptions tunes the delete and restore workflow.
type AccountOptions struct {
	RestorePolicy     RestorePolicy
	TemporaryPassword string
	// ExactEmailMatch makes the public restore path require the full email.
	ExactEmailMatch bool
	// Transactional runs delete steps 1-5 and restore steps 1-3 in one
	// database transaction.
	Transactional bool
}

// DeleteResult reports an account deletion. Complete is false when the
// archive was written but the cleanup after it failed part way.
type DeleteResult struct {
	UserID        string
	ArchiveID     string
	ArchivedNotes int
	Complete      bool
	Message       string
}

// RestoreResult reports a restore.
type RestoreResult struct {
	UserID        string
	Email         string
	RestoredNotes int
	SkippedNotes  int
	NewAccount    bool
	Message       string
}

// Orchestrator moves an account between the live collections and the
// archive store.
//
// STATE MACHINE (per account):
//
//	ACTIVE → DELETING → ARCHIVED → RESTORING → ACTIVE'
//
// ACTIVE' is either a recreated account or an existing one with the same
// email that receives the archived notes.
//
// The central rule is archive before delete: nothing is removed until the
// archive record is stored.
type Orchestrator struct {
	stores repository.Stores
	tx     repository.TxRunner
	hasher PasswordHasher
	opts   AccountOptions
	logger *slog.Logger
}

// NewOrchestrator wires the workflow. tx may be nil unless
// opts.Transactional is set.
func NewOrchestrator(stores repository.Stores, tx repository.TxRunner, hasher PasswordHasher, opts AccountOptions, logger *slog.Logger) (*Orchestrator, error) {
	if opts.RestorePolicy == "" {
		opts.RestorePolicy = RestoreDuplicate
	}
	if opts.RestorePolicy != RestoreDuplicate && opts.RestorePolicy != RestoreSkipExisting {
		return nil, fmt.Errorf("service/account: unknown restore policy %q", opts.RestorePolicy)
	}
	if opts.TemporaryPassword == "" {
		opts.TemporaryPassword = DefaultTemporaryPassword
	}
	if opts.Transactional && tx == nil {
		return nil, errors.New("service/account: transactional mode needs a transaction runner")
	}
	if hasher == nil {
		return nil, errors.New("service/account: password hasher must not be nil")
	}

	return &Orchestrator{
		stores: stores,
		tx:     tx,
		hasher: hasher,
		opts:   opts,
		logger: logger,
	}, nil
}

// workflow is the set of components one run of the orchestrator uses, all
// bound to the same storage handle.
type workflow struct {
	users    repository.UserRepository
	notes    *NoteService
	trash    *TrashBin
	archives *ArchiveStore
	rawNotes repository.NoteRepository
}

func (o *Orchestrator) bind(s repository.Stores) workflow {
	trash := NewTrashBin(s.Trash, o.logger)
	return workflow{
		users:    s.Users,
		notes:    NewNoteService(s.Notes, s.Users, trash, o.logger),
		trash:    trash,
		archives: NewArchiveStore(s.Archives, o.opts.ExactEmailMatch, o.logger),
		rawNotes: s.Notes,
	}
}

// run executes fn either directly against the pool-bound stores or inside
// a single transaction.
func (o *Orchestrator) run(ctx context.Context, fn func(ctx context.Context, w workflow) error) error {
	if !o.opts.Transactional {
		return fn(ctx, o.bind(o.stores))
	}
	return o.tx.WithinTx(ctx, func(ctx context.Context, s repository.Stores) error {
		return fn(ctx, o.bind(s))
	})
}

func (o *Orchestrator) transition(userID string, from, to model.AccountState) {
	o.logger.Info("account state",
		slog.String("userID", userID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

// =========================================================================
// DELETE
// =========================================================================

// DeleteAccount archives the caller's account and then removes it.
//
//  1. load active notes
//  2. load trashed notes
//  3. write one archive record with both sets
//  4. purge notes and trash
//  5. remove the user row
//
// A failure up to step 3 aborts with nothing deleted. Failures in steps 4-5
// are logged and reported through DeleteResult.Complete; the account (and
// the archive) simply stay, and a later delete archives again. In
// transactional mode every failure rolls the whole run back instead.
func (o *Orchestrator) DeleteAccount(ctx context.Context, userID string) (*DeleteResult, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Not authorized")
	}

	var result *DeleteResult
	err := o.run(ctx, func(ctx context.Context, w workflow) error {
		var err error
		result, err = o.deleteAccount(ctx, w, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) deleteAccount(ctx context.Context, w workflow, userID string) (*DeleteResult, error) {
	user, err := w.users.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, apperror.AsStorage("loading user", err)
	}

	o.transition(userID, model.StateActive, model.StateDeleting)

	active, err := w.notes.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	trashed, err := w.trash.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	record, err := w.archives.CreateArchive(ctx, user, active, trashed)
	if err != nil {
		o.logger.Error("account deletion aborted before any data was removed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		o.transition(userID, model.StateDeleting, model.StateActive)
		return nil, err
	}

	result := &DeleteResult{
		UserID:        userID,
		ArchiveID:     record.ID,
		ArchivedNotes: len(record.SavedNotes),
	}

	if err := o.cleanup(ctx, w, userID); err != nil {
		if o.opts.Transactional {
			return nil, err
		}
		o.logger.Error("account archived but cleanup failed",
			slog.String("userID", userID),
			slog.String("archiveID", record.ID),
			slog.String("error", err.Error()),
		)
		result.Message = "User archived but account cleanup is incomplete"
		return result, nil
	}

	o.transition(userID, model.StateDeleting, model.StateArchived)
	result.Complete = true
	result.Message = "User archived and deleted"
	return result, nil
}

// cleanup runs steps 4-5 and stops at the first failure, so the user row is
// only removed once everything it owns is gone.
func (o *Orchestrator) cleanup(ctx context.Context, w workflow, userID string) error {
	notes, err := w.notes.DeleteAllByOwner(ctx, userID)
	if err != nil {
		return err
	}
	trashed, err := w.trash.PurgeByOwner(ctx, userID)
	if err != nil {
		return err
	}
	if err := w.users.Delete(ctx, userID); err != nil {
		return apperror.AsStorage("deleting user", err)
	}

	o.logger.Info("account data purged",
		slog.String("userID", userID),
		slog.Int64("notes", notes),
		slog.Int64("trashed", trashed),
	)
	return nil
}

// =========================================================================
// RESTORE
// =========================================================================

// Restore recovers the newest archive whose email contains email. This is
// the public path, so only the email is matched.
func (o *Orchestrator) Restore(ctx context.Context, email string) (*RestoreResult, error) {
	if normalizeEmail(email) == "" {
		return nil, apperror.ValidationFailed("email", "Please provide email to restore")
	}
	return o.restore(ctx, func(ctx context.Context, a *ArchiveStore) (*model.ArchiveRecord, error) {
		return a.FindMostRecentByEmail(ctx, email)
	})
}

// RestoreByQuery recovers the newest archive whose name or email contains
// query. Operator tooling uses it.
func (o *Orchestrator) RestoreByQuery(ctx context.Context, query string) (*RestoreResult, error) {
	if normalizeEmail(query) == "" {
		return nil, apperror.ValidationFailed("query", "Please provide a name or email to restore")
	}
	return o.restore(ctx, func(ctx context.Context, a *ArchiveStore) (*model.ArchiveRecord, error) {
		return a.FindMostRecentByFuzzyMatch(ctx, query)
	})
}

type archiveLookup func(ctx context.Context, a *ArchiveStore) (*model.ArchiveRecord, error)

func (o *Orchestrator) restore(ctx context.Context, lookup archiveLookup) (*RestoreResult, error) {
	var result *RestoreResult
	err := o.run(ctx, func(ctx context.Context, w workflow) error {
		record, err := lookup(ctx, w.archives)
		if err != nil {
			return err
		}
		if record == nil {
			return apperror.NotFoundMessage("No archived user found with that email")
		}

		result, err = o.restoreRecord(ctx, w, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// restoreRecord finds or recreates the target account and re-inserts the
// saved notes. The archive record itself is never modified.
func (o *Orchestrator) restoreRecord(ctx context.Context, w workflow, record *model.ArchiveRecord) (*RestoreResult, error) {
	o.transition(record.OriginalUserID, model.StateArchived, model.StateRestoring)

	target, isNew, err := o.restoreTarget(ctx, w, record)
	if err != nil {
		return nil, err
	}

	toInsert, skipped, err := o.notesToRestore(ctx, w, target.ID, record.SavedNotes)
	if err != nil {
		return nil, err
	}

	if len(toInsert) > 0 {
		if err := w.rawNotes.InsertMany(ctx, toInsert); err != nil {
			o.logger.Error("failed to restore notes",
				slog.String("userID", target.ID),
				slog.String("archiveID", record.ID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.AsStorage("restoring notes", err)
		}
	}

	o.transition(target.ID, model.StateRestoring, model.StateActive)

	result := &RestoreResult{
		UserID:        target.ID,
		Email:         record.Email,
		RestoredNotes: len(toInsert),
		SkippedNotes:  skipped,
		NewAccount:    isNew,
	}
	result.Message = o.restoreMessage(result)

	o.logger.Info("account restored",
		slog.String("userID", target.ID),
		slog.String("archiveID", record.ID),
		slog.Bool("newAccount", isNew),
		slog.Int("restored", result.RestoredNotes),
		slog.Int("skipped", skipped),
	)
	return result, nil
}

// restoreTarget merges by email: an existing account with the archived email
// receives the notes as is. Otherwise a new account is created, reusing the
// archived ID when it is still free.
func (o *Orchestrator) restoreTarget(ctx context.Context, w workflow, record *model.ArchiveRecord) (*model.User, bool, error) {
	email := normalizeEmail(record.Email)

	existing, err := w.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !isNotFound(err) {
		return nil, false, apperror.AsStorage("looking up existing account", err)
	}

	hash, err := o.hasher.Hash(o.opts.TemporaryPassword)
	if err != nil {
		return nil, false, fmt.Errorf("service/account: hashing temporary password: %w", err)
	}

	user := &model.User{
		Name:         record.Name,
		Email:        email,
		PasswordHash: hash,
		Settings:     model.DefaultSettings(),
	}

	if record.OriginalUserID != "" {
		_, err := w.users.GetUserByID(ctx, record.OriginalUserID)
		switch {
		case isNotFound(err):
			user.ID = record.OriginalUserID
		case err != nil:
			return nil, false, apperror.AsStorage("checking archived user id", err)
		}
	}

	if err := w.users.Create(ctx, user); err != nil {
		o.logger.Error("failed to recreate account",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, false, apperror.AsStorage("recreating account", err)
	}
	return user, true, nil
}

// notesToRestore turns saved notes into fresh notes owned by targetID,
// keeping text, completion and creation time.
func (o *Orchestrator) notesToRestore(ctx context.Context, w workflow, targetID string, saved []model.SavedNote) ([]model.Note, int, error) {
	var existing map[string]bool
	if o.opts.RestorePolicy == RestoreSkipExisting {
		current, err := w.rawNotes.ListByOwner(ctx, targetID)
		if err != nil {
			return nil, 0, apperror.AsStorage("listing notes of restore target", err)
		}
		existing = make(map[string]bool, len(current))
		for _, n := range current {
			existing[noteKey(n.Text, n.CreatedAt)] = true
		}
	}

	notes := make([]model.Note, 0, len(saved))
	skipped := 0
	for _, sn := range saved {
		if existing[noteKey(sn.Text, sn.CreatedAt)] {
			skipped++
			continue
		}

		note := model.Note{
			OwnerID:   targetID,
			Text:      sn.Text,
			Completed: sn.Completed,
			CreatedAt: sn.CreatedAt,
		}
		note.ApplyDefaults()
		notes = append(notes, note)
	}
	return notes, skipped, nil
}

func noteKey(text string, createdAt time.Time) string {
	return text + "\x00" + createdAt.UTC().Format(time.RFC3339Nano)
}

func (o *Orchestrator) restoreMessage(r *RestoreResult) string {
	var msg string
	if r.NewAccount {
		msg = fmt.Sprintf("Success! Account restored. Temporary password: '%s'. Restored %d notes.",
			o.opts.TemporaryPassword, r.RestoredNotes)
	} else {
		msg = fmt.Sprintf("Success! User account already exists. Restored data to it. Restored %d notes.",
			r.RestoredNotes)
	}
	if r.SkippedNotes > 0 {
		msg += fmt.Sprintf(" Skipped %d notes already present.", r.SkippedNotes)
	}
	return msg
}
