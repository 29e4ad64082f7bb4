package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/service"
)

// AuthService is the part of service.AuthService the account routes use.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, patch service.ProfilePatch) (*service.AuthResult, error)
}

// AccountLifecycle deletes and restores whole accounts.
type AccountLifecycle interface {
	DeleteAccount(ctx context.Context, userID string) (*service.DeleteResult, error)
	Restore(ctx context.Context, email string) (*service.RestoreResult, error)
}

// Session controls the token cookie set next to every issued JWT.
type Session struct {
	TTL    time.Duration
	Secure bool
}

func (s Session) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s Session) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// userResponse is the login/register shape the web client stores:
// the public user fields plus the token.
type userResponse struct {
	ID         string         `json:"_id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	ProfilePic string         `json:"profilePic"`
	Settings   model.Settings `json:"settings"`
	Token      string         `json:"token,omitempty"`
}

func newUserResponse(u *model.User, token string) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Settings:   u.Settings,
		Token:      token,
	}
}

// AccountHandler serves /api/users.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → issue a JWT (body + cookie)
//   - HandleMe / HandleUpdateProfile → the caller's own record
//   - HandleDeleteMe → archive-then-delete the caller's account
//   - HandleRestore → public restore by email (rate limited by the router)
//   - HandleLogout → clear the cookie
type AccountHandler struct {
	auth     AuthService
	accounts AccountLifecycle
	session  Session
	logger   *slog.Logger
}

func NewAccountHandler(authSvc AuthService, accounts AccountLifecycle, session Session, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		auth:     authSvc,
		accounts: accounts,
		session:  session,
		logger:   logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/users
// REQUEST BODY: {"name": "Ann", "email": "ann@x.com", "password": "..."}
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusCreated, newUserResponse(result.User, result.Token))
}

type loginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleLogin authenticates by email or name.
//
// HTTP: POST /api/users/login
// REQUEST BODY: {"email": "ann@x.com", "password": "..."}; the "email"
// field also accepts a user name, and "name" is read when email is empty.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Name
	}

	result, err := h.auth.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusOK, newUserResponse(result.User, result.Token))
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/users/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user, ""))
}

// HandleUpdateProfile applies a partial profile update and re-issues the
// token.
//
// HTTP: PUT /api/users/profile
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var patch service.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusOK, newUserResponse(result.User, result.Token))
}

// HandleDeleteMe archives and deletes the caller's account.
//
// HTTP: DELETE /api/users/me
// RESPONSE: {"id": "...", "message": "User archived and deleted", "archivedNotes": 2}
//
// A cleanup failure after the archive was written still answers 200;
// "complete" is false and the message says so.
func (h *AccountHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.accounts.DeleteAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Complete {
		h.session.clear(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            result.UserID,
		"message":       result.Message,
		"archivedNotes": result.ArchivedNotes,
		"complete":      result.Complete,
	})
}

type restoreRequest struct {
	Email string `json:"email"`
}

// HandleRestore recovers the newest archived account matching email.
//
// HTTP: POST /api/users/restore
// REQUEST BODY: {"email": "ann@x.com"}
// RESPONSE: {"message": "...", "email": "ann@x.com", "restoredNotes": 2}
//
// Public, so the router wraps it in the rate limiter.
func (h *AccountHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Restore(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       result.Message,
		"email":         result.Email,
		"restoredNotes": result.RestoredNotes,
	})
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /api/users/logout
//
// Tokens are stateless, so the JWT stays valid until it expires; without
// the cookie the browser just stops sending it.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.session.clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
