// Package account handles signup, login, logout and the current-user probe.
//
// Endpoints (mounted at /api/auth):
//   - POST /signup  {username, email, password}
//   - POST /login   {email, password}
//   - POST /logout
//   - GET  /me      (authenticated)
//   - GET  /csrf    token for cookie-authenticated unsafe requests
//
// Signup and login set the credential cookie and also return the token so
// non-browser clients can send it as a Bearer credential.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/authutil"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// UserStore is the account persistence the handlers need.
type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Throttle limits repeated login failures per email.
type Throttle interface {
	CheckAllowed(ctx context.Context, email string) (allowed bool, remaining int, lockedUntil *time.Time)
	RecordFailure(ctx context.Context, email string) (lockedOut bool, lockedUntil *time.Time)
	ClearOnSuccess(ctx context.Context, email string) error
}

// Handler provides account handlers.
type Handler struct {
	users    UserStore
	throttle Throttle // nil if rate limiting disabled
	gw       *auth.Gateway
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a new account Handler. throttle may be nil.
func NewHandler(users UserStore, throttle Throttle, gw *auth.Gateway, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:    users,
		throttle: throttle,
		gw:       gw,
		errLog:   errLog,
		logger:   logger,
	}
}

// Routes returns a chi.Router with account routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(h.gw.RequireAuth).Get("/me", h.me)
	r.Get("/csrf", h.csrfToken)
	return r
}

type signupRequest struct {
	Username string `json:"username" validate:"required,max=100" label:"Username"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Username = normalize.Name(in.Username)
	in.Email = normalize.Email(in.Email)

	if err := inputval.Validate(in).Err(); err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		jsonutil.WriteError(w, apperr.Invalid("password", err.Error()))
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.errLog.Respond(w, r, "failed to hash password", err)
		return
	}

	user, err := h.users.Create(r.Context(), models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		h.errLog.Respond(w, r, "failed to create user", err)
		return
	}

	h.logger.Info("account created", zap.String("user_id", user.ID.Hex()))
	h.issue(w, r, &user, http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	in.Email = normalize.Email(in.Email)

	if err := inputval.Validate(in).Err(); err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	if h.throttle != nil {
		if allowed, _, lockedUntil := h.throttle.CheckAllowed(r.Context(), in.Email); !allowed {
			h.logger.Info("login rate limited", zap.String("email", in.Email))
			jsonutil.TooManyRequests(w, lockoutMessage(lockedUntil))
			return
		}
	}

	user, err := h.users.GetByEmail(r.Context(), in.Email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		authutil.BurnCompare(in.Password)
		h.loginFailed(w, r, in.Email)
		return
	case err != nil:
		h.errLog.Respond(w, r, "database error during login lookup", err)
		return
	}

	if !authutil.CheckPassword(in.Password, user.PasswordHash) {
		h.loginFailed(w, r, in.Email)
		return
	}

	if h.throttle != nil {
		if err := h.throttle.ClearOnSuccess(r.Context(), in.Email); err != nil {
			h.logger.Warn("failed to clear login attempts", zap.Error(err))
		}
	}

	h.logger.Info("login succeeded", zap.String("user_id", user.ID.Hex()))
	h.issue(w, r, user, http.StatusOK)
}

// loginFailed records the failure and answers with the same 401 for an
// unknown email and a wrong password.
func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, email string) {
	if h.throttle != nil {
		if lockedOut, lockedUntil := h.throttle.RecordFailure(r.Context(), email); lockedOut {
			h.logger.Info("login locked out", zap.String("email", email))
			jsonutil.TooManyRequests(w, lockoutMessage(lockedUntil))
			return
		}
	}
	jsonutil.Unauthorized(w, "invalid email or password")
}

func lockoutMessage(lockedUntil *time.Time) string {
	if lockedUntil == nil {
		return "Too many failed login attempts. Please try again later."
	}
	remaining := time.Until(*lockedUntil)
	if remaining > time.Minute {
		return fmt.Sprintf("Too many failed login attempts. Please try again in %d minute(s).", int(remaining.Minutes())+1)
	}
	return fmt.Sprintf("Too many failed login attempts. Please try again in %d second(s).", int(remaining.Seconds())+1)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, expires, err := h.gw.Issuer().Issue(user.ID.Hex(), user.Email)
	if err != nil {
		h.errLog.Respond(w, r, "failed to issue credential", err)
		return
	}
	h.gw.SetCredential(w, token, expires)

	jsonutil.JSON(w, status, map[string]any{
		"user": userView{
			ID:       user.ID.Hex(),
			Username: user.Username,
			Email:    user.Email,
		},
		"token":     token,
		"expiresAt": expires.UTC(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.gw.ClearCredential(w)
	jsonutil.OK(w, map[string]any{"message": "logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	jsonutil.OK(w, map[string]any{
		"user": userView{
			ID:       user.UserID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// csrfToken returns the token browser clients echo in X-CSRF-Token.
// Empty when CSRF protection is not installed.
func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]any{"csrfToken": csrf.Token(r)})
}
