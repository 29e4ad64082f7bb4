package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/dbx"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// UserDB is the live user directory.
type UserDB struct {
	q dbx.DBTX
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, name, email, password_hash, profile_pic,
	default_color, default_font_size, default_font_style, dashboard_color,
	github_id, created_at, updated_at`

// Create inserts a new user.
//
// A caller-supplied ID is kept (restore reuses the archived original ID);
// otherwise a fresh xid is generated. A duplicate email surfaces as
// apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	_, err := u.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfilePic,
		user.Settings.DefaultColor,
		user.Settings.DefaultFontSize,
		user.Settings.DefaultFontStyle,
		user.Settings.DashboardColor,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail is an exact match on the stored email.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return user, nil
}

// GetByLogin finds a user whose email or name equals identifier. Email wins
// if both would match different rows.
func (u *UserDB) GetByLogin(ctx context.Context, identifier string) (*model.User, error) {
	row := u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = ? OR name = ?
		 ORDER BY CASE WHEN email = ? THEN 0 ELSE 1 END, created_at
		 LIMIT 1`,
		identifier, identifier, identifier)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identifier)
		}
		return nil, fmt.Errorf("sqlite: getting user by login %s: %w", identifier, err)
	}
	return user, nil
}

func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := u.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ? AND github_id <> 0`, githubID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return user, nil
}

// Update writes every mutable profile field. ID and CreatedAt never change.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = now()

	result, err := u.q.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, profile_pic = ?,
			default_color = ?, default_font_size = ?, default_font_style = ?,
			dashboard_color = ?, github_id = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfilePic,
		user.Settings.DefaultColor,
		user.Settings.DefaultFontSize,
		user.Settings.DefaultFontStyle,
		user.Settings.DashboardColor,
		user.GitHubID,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return requireOneRow(result, "user", user.ID)
}

func (u *UserDB) Delete(ctx context.Context, id string) error {
	result, err := u.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePic,
		&user.Settings.DefaultColor,
		&user.Settings.DefaultFontSize,
		&user.Settings.DefaultFontStyle,
		&user.Settings.DashboardColor,
		&user.GitHubID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// requireOneRow turns "0 rows affected" into a NotFound error.
func requireOneRow(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// ("UNIQUE constraint failed: users.email").
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
