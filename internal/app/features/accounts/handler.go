// internal/app/features/accounts/handler.go
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	userstore "github.com/trelloai/trelloai/internal/app/store/users"
	"github.com/trelloai/trelloai/internal/app/system/auth"
	"github.com/trelloai/trelloai/internal/app/system/inputval"
	"github.com/trelloai/trelloai/internal/app/system/ratelimit"
	"github.com/trelloai/trelloai/internal/app/system/timeouts"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// loginAttempts caps password guesses per client IP.
const (
	loginAttemptLimit  = 10
	loginAttemptWindow = time.Minute
)

// Handler serves registration, login, logout, and the current-user lookup.
type Handler struct {
	Users    *userstore.Store
	Projects *projectstore.Store
	Auth     *auth.Manager
	ErrLog   *webjson.ErrorLogger
	Log      *zap.Logger

	loginLimiter *ratelimit.Limiter
}

// NewHandler constructs an accounts handler bound to its stores and the
// session manager.
func NewHandler(users *userstore.Store, projects *projectstore.Store, am *auth.Manager, errLog *webjson.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        users,
		Projects:     projects,
		Auth:         am,
		ErrLog:       errLog,
		Log:          logger,
		loginLimiter: ratelimit.New(loginAttemptLimit, loginAttemptWindow),
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func publicUser(u *models.User) models.PublicUser {
	return models.PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "register: decode body", err, "Invalid request body")
		return
	}
	if in.Email == "" || in.Password == "" || in.Name == "" {
		webjson.BadRequest(w, "Email, password, and name are required")
		return
	}
	if !inputval.IsValidEmail(in.Email) {
		webjson.BadRequest(w, "Invalid email address")
		return
	}
	if !inputval.IsValidPassword(in.Password) {
		webjson.BadRequest(w, "Password must be at least 6 characters")
		return
	}

	user, err := h.Users.Create(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			webjson.BadRequest(w, "An account with this email already exists")
			return
		}
		h.ErrLog.LogServerError(w, r, "register: create user", err, "Registration failed")
		return
	}

	// Projects may already hold invitations for this email.
	linked, err := h.Projects.LinkPendingMemberships(ctx, user.ID, user.Email)
	if err != nil {
		h.Log.Error("register: linking pending memberships", zap.Error(err))
	} else if linked > 0 {
		h.Log.Info("register: linked pending memberships",
			zap.String("user_id", user.ID.Hex()),
			zap.Int64("count", linked))
	}

	webjson.Write(w, http.StatusCreated, map[string]any{"user": publicUser(&user)})
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: decode body", err, "Invalid request body")
		return
	}
	if in.Email == "" || in.Password == "" {
		webjson.BadRequest(w, "Email and password are required")
		return
	}

	ip := ratelimit.ClientIP(r)
	if !h.loginLimiter.Allow(ip) {
		h.Log.Warn("login: rate limited", zap.String("ip", ip))
		w.Header().Set("X-RateLimit-Remaining", "0")
		webjson.Write(w, http.StatusTooManyRequests, map[string]any{
			"error": "Too many login attempts, try again later",
		})
		return
	}

	user, err := h.Users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrInvalidCredentials) {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.loginLimiter.Remaining(ip)))
			webjson.Unauthorized(w, "Invalid email or password")
			return
		}
		h.ErrLog.LogServerError(w, r, "login: authenticate", err, "Login failed")
		return
	}
	h.loginLimiter.Reset(ip)

	token, err := h.Auth.Issue(user.ID, user.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: issue token", err, "Login failed")
		return
	}
	h.Auth.SetCookie(w, token)

	webjson.Write(w, http.StatusOK, map[string]any{"user": publicUser(user)})
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Auth.ClearCookie(w)
	webjson.Write(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

// HandleMe handles GET /api/auth/me. The user document is loaded fresh so a
// deleted account stops resolving even while its token is still valid.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	user, err := h.Users.GetByID(ctx, su.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			webjson.NotFound(w, "User not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "me: load user", err, "Lookup failed")
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{"user": publicUser(user)})
}
