// Package service: account authentication logic.
//
//	AccountHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                      ↘ TokenService (JWT), PasswordService (bcrypt)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// AuthService handles registration, login and profile changes.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and a freshly issued JWT so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name       *string              `json:"name"`
	Email      *string              `json:"email"`
	ProfilePic *string              `json:"profilePic"`
	Password   *string              `json:"password"`
	Settings   *model.SettingsPatch `json:"settings"`
}

// Register creates an email/password account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = cleanText(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Please add all fields")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, conflictUserExists(email)
	} else if !isNotFound(err) {
		return nil, apperror.AsStorage("checking existing user", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Settings:     model.DefaultSettings(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, conflictUserExists(email)
		}
		return nil, apperror.AsStorage("creating user", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login authenticates by email or name.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Please add all fields")
	}

	// Emails are stored lowercase; names are matched as typed.
	user, err := s.users.GetByLogin(ctx, identifier)
	if isNotFound(err) && strings.Contains(identifier, "@") {
		user, err = s.users.GetByLogin(ctx, normalizeEmail(identifier))
	}
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.ValidationFailed("", "User does not exist. Please Sign Up first.")
		}
		return nil, apperror.AsStorage("loading user", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("unusable password hash", slog.String("userID", user.ID), slog.String("error", err.Error()))
		}
		return nil, apperror.ValidationFailed("", "Invalid credentials")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// Me returns the caller's own record.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Not authorized")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, apperror.AsStorage("loading user", err)
	}
	return user, nil
}

// UpdateProfile applies patch to the caller's account and issues a new token.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*AuthResult, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := cleanText(*patch.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "email must not be empty")
		}
		user.Email = email
	}
	if patch.ProfilePic != nil {
		user.ProfilePic = strings.TrimSpace(*patch.ProfilePic)
	}
	if patch.Settings != nil {
		patch.Settings.Apply(&user.Settings)
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := s.passwords.Hash(*patch.Password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, conflictUserExists(user.Email)
		}
		return nil, apperror.AsStorage("updating user", err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
//  1. An account already linked to this GitHub ID logs in.
//  2. Otherwise an account with the same email gets linked and logs in.
//  3. Otherwise a new account is created with a random password; the user
//     can set a real one through the profile endpoint.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	if err == nil {
		return s.issue(user)
	}
	if !isNotFound(err) {
		return nil, apperror.AsStorage("loading GitHub user", err)
	}

	email := normalizeEmail(ghUser.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.GitHubID = ghUser.ID
		if user.ProfilePic == "" {
			user.ProfilePic = ghUser.AvatarURL
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperror.AsStorage("linking GitHub account", err)
		}
		s.logger.Info("GitHub account linked", slog.String("userID", user.ID))

	case isNotFound(err):
		random, err := auth.RandomPassword()
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		hash, err := s.passwords.Hash(random)
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		user = &model.User{
			Name:         cleanText(ghUser.DisplayName()),
			Email:        email,
			PasswordHash: hash,
			ProfilePic:   ghUser.AvatarURL,
			Settings:     model.DefaultSettings(),
			GitHubID:     ghUser.ID,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperror.AsStorage("creating GitHub user", err)
		}
		s.logger.Info("user registered via GitHub", slog.String("userID", user.ID))

	default:
		return nil, apperror.AsStorage("loading user by email", err)
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func conflictUserExists(email string) *apperror.AppError {
	err := apperror.Conflict("user", email)
	err.Message = "User already exists"
	return err
}
