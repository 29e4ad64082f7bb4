package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// One in-memory "database" backs all four fake repositories, the same way
// one SQLite file backs the real ones. Each repository has an error field per
// operation so tests can inject a failure at a precise step of a workflow.

type fakeDB struct {
	users    map[string]*model.User
	notes    map[string]*model.Note
	trash    []model.TrashedNote
	archives []model.ArchiveRecord
	nextID   int
	clock    time.Time
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users: make(map[string]*model.User),
		notes: make(map[string]*model.Note),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (db *fakeDB) id(prefix string) string {
	db.nextID++
	return fmt.Sprintf("%s-%d", prefix, db.nextID)
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (db *fakeDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

type fakeUserRepo struct {
	db        *fakeDB
	createErr error
	deleteErr error
	getErr    error
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.db.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = f.db.id("user")
	}
	if _, taken := f.db.users[user.ID]; taken {
		return apperror.Conflict("user", user.ID)
	}
	user.CreatedAt = f.db.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.db.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.db.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.db.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByLogin(ctx context.Context, identifier string) (*model.User, error) {
	if u, err := f.GetByEmail(ctx, identifier); err == nil {
		return u, nil
	}
	for _, u := range f.db.users {
		if u.Name == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", identifier)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.db.users {
		if githubID != 0 && u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.db.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range f.db.users {
		if id != user.ID && u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.UpdatedAt = f.db.tick()
	stored := *user
	f.db.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.db.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.db.users, id)
	return nil
}

type fakeNoteRepo struct {
	db            *fakeDB
	createErr     error
	insertManyErr error
	deleteErr     error
	deleteAllErr  error
	listErr       error
}

func (f *fakeNoteRepo) Create(_ context.Context, note *model.Note) error {
	if f.createErr != nil {
		return f.createErr
	}
	note.ID = f.db.id("note")
	note.CreatedAt = f.db.tick()
	note.UpdatedAt = note.CreatedAt
	stored := *note
	f.db.notes[note.ID] = &stored
	return nil
}

func (f *fakeNoteRepo) InsertMany(_ context.Context, notes []model.Note) error {
	if f.insertManyErr != nil {
		return f.insertManyErr
	}
	for i := range notes {
		notes[i].ID = f.db.id("note")
		if notes[i].CreatedAt.IsZero() {
			notes[i].CreatedAt = f.db.tick()
		}
		stored := notes[i]
		f.db.notes[stored.ID] = &stored
	}
	return nil
}

func (f *fakeNoteRepo) GetByID(_ context.Context, id string) (*model.Note, error) {
	n, ok := f.db.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNoteRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Note, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Note, 0)
	for _, n := range f.db.notes {
		if n.OwnerID == ownerID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeNoteRepo) Update(_ context.Context, note *model.Note) error {
	if _, ok := f.db.notes[note.ID]; !ok {
		return apperror.NotFound("note", note.ID)
	}
	stored := *note
	f.db.notes[note.ID] = &stored
	return nil
}

func (f *fakeNoteRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.db.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(f.db.notes, id)
	return nil
}

func (f *fakeNoteRepo) DeleteAllByOwner(_ context.Context, ownerID string) (int64, error) {
	if f.deleteAllErr != nil {
		return 0, f.deleteAllErr
	}
	var count int64
	for id, n := range f.db.notes {
		if n.OwnerID == ownerID {
			delete(f.db.notes, id)
			count++
		}
	}
	return count, nil
}

type fakeTrashRepo struct {
	db        *fakeDB
	createErr error
	purgeErr  error
}

func (f *fakeTrashRepo) Create(_ context.Context, trashed *model.TrashedNote) error {
	if f.createErr != nil {
		return f.createErr
	}
	trashed.ID = f.db.id("trash")
	f.db.trash = append(f.db.trash, *trashed)
	return nil
}

func (f *fakeTrashRepo) ListByOwner(_ context.Context, ownerID string) ([]model.TrashedNote, error) {
	out := make([]model.TrashedNote, 0)
	for _, t := range f.db.trash {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTrashRepo) PurgeByOwner(_ context.Context, ownerID string) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	kept := f.db.trash[:0]
	var count int64
	for _, t := range f.db.trash {
		if t.OwnerID == ownerID {
			count++
			continue
		}
		kept = append(kept, t)
	}
	f.db.trash = kept
	return count, nil
}

type fakeArchiveRepo struct {
	db        *fakeDB
	createErr error
}

func (f *fakeArchiveRepo) Create(_ context.Context, record *model.ArchiveRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	record.ID = f.db.id("archive")
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = f.db.tick()
	}
	stored := *record
	stored.SavedNotes = append([]model.SavedNote(nil), record.SavedNotes...)
	f.db.archives = append(f.db.archives, stored)
	return nil
}

func (f *fakeArchiveRepo) FindMostRecent(ctx context.Context, query string, match repository.ArchiveMatch) (*model.ArchiveRecord, error) {
	all, _ := f.List(ctx, query, match)
	if len(all) == 0 {
		return nil, apperror.NotFoundMessage("no archive matches " + query)
	}
	return &all[0], nil
}

func (f *fakeArchiveRepo) List(_ context.Context, query string, match repository.ArchiveMatch) ([]model.ArchiveRecord, error) {
	q := strings.ToLower(query)
	out := make([]model.ArchiveRecord, 0)
	for _, r := range f.db.archives {
		name, email := strings.ToLower(r.Name), strings.ToLower(r.Email)
		var ok bool
		switch match {
		case repository.MatchEmailExact:
			ok = q == "" || email == q
		case repository.MatchEmail:
			ok = strings.Contains(email, q)
		default:
			ok = strings.Contains(name, q) || strings.Contains(email, q)
		}
		if ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

// fakeTx records that a transaction was requested and, on error, restores
// the fake database to its state before fn ran.
type fakeTx struct {
	db     *fakeDB
	stores repository.Stores
	calls  int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	f.calls++
	snapshot := f.db.clone()
	if err := fn(ctx, f.stores); err != nil {
		*f.db = *snapshot
		return err
	}
	return nil
}

func (db *fakeDB) clone() *fakeDB {
	c := *db
	c.users = make(map[string]*model.User, len(db.users))
	for k, v := range db.users {
		u := *v
		c.users[k] = &u
	}
	c.notes = make(map[string]*model.Note, len(db.notes))
	for k, v := range db.notes {
		n := *v
		c.notes[k] = &n
	}
	c.trash = append([]model.TrashedNote(nil), db.trash...)
	c.archives = append([]model.ArchiveRecord(nil), db.archives...)
	return &c
}

// fakeHasher is a PasswordHasher with a visible, deterministic output.
type fakeHasher struct{ err error }

func (h fakeHasher) Hash(plaintext string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plaintext, nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

type fixture struct {
	db       *fakeDB
	users    *fakeUserRepo
	notes    *fakeNoteRepo
	trash    *fakeTrashRepo
	archives *fakeArchiveRepo
}

func newFixture() *fixture {
	db := newFakeDB()
	return &fixture{
		db:       db,
		users:    &fakeUserRepo{db: db},
		notes:    &fakeNoteRepo{db: db},
		trash:    &fakeTrashRepo{db: db},
		archives: &fakeArchiveRepo{db: db},
	}
}

func (f *fixture) stores() repository.Stores {
	return repository.Stores{Users: f.users, Notes: f.notes, Trash: f.trash, Archives: f.archives}
}

func (f *fixture) noteService() *NoteService {
	return NewNoteService(f.notes, f.users, NewTrashBin(f.trash, discardLogger()), discardLogger())
}

func (f *fixture) orchestrator(t *testing.T, opts AccountOptions) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(f.stores(), &fakeTx{db: f.db, stores: f.stores()}, fakeHasher{}, opts, discardLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func (f *fixture) addUser(t *testing.T, name, email string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, PasswordHash: "hashed:secret", Settings: model.DefaultSettings()}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("addUser: %v", err)
	}
	return u
}

func (f *fixture) addNote(t *testing.T, ownerID, text string) *model.Note {
	t.Helper()
	n := &model.Note{OwnerID: ownerID, Text: text}
	n.ApplyDefaults()
	if err := f.notes.Create(context.Background(), n); err != nil {
		t.Fatalf("addNote: %v", err)
	}
	return n
}

func (f *fixture) notesOf(ownerID string) []model.Note {
	notes, _ := f.notes.ListByOwner(context.Background(), ownerID)
	return notes
}

func (f *fixture) trashOf(ownerID string) []model.TrashedNote {
	trashed, _ := f.trash.ListByOwner(context.Background(), ownerID)
	return trashed
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
