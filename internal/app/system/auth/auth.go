// Package auth issues and verifies the session token cookie and exposes the
// current caller through the request context.
//
// The session is a stateless HS256 JWT carrying {userId, email} with a
// seven-day expiry, stored in an HTTP-only cookie named "token". Token
// verification happens in middleware before any handler touches data, so an
// Unauthenticated failure always precedes Forbidden/NotFound checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CookieName is the session cookie.
const CookieName = "token"

// TokenTTL is the session lifetime.
const TokenTTL = 7 * 24 * time.Hour

// SessionUser is the verified caller identity injected into r.Context().
type SessionUser struct {
	ID    primitive.ObjectID
	Email string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

var errInvalidToken = errors.New("invalid or expired token")

// Manager signs and verifies session tokens and sets/clears the cookie.
type Manager struct {
	secret []byte
	domain string
	secure bool
	log    *zap.Logger
}

// NewManager constructs a Manager. The secret must be non-empty; short
// secrets are accepted with a warning so local dev keeps working.
func NewManager(secret, domain string, secure bool, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide >=32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	return &Manager{secret: []byte(secret), domain: domain, secure: secure, log: logger}, nil
}

// Issue signs a token with {userId, email} claims and TokenTTL expiry.
func (m *Manager) Issue(userID primitive.ObjectID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID.Hex(),
		"email":  email,
		"iat":    now.Unix(),
		"exp":    now.Add(TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token string and returns the caller it names.
func (m *Manager) Verify(tokenString string) (*SessionUser, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	hexID, _ := claims["userId"].(string)
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, errInvalidToken
	}
	email, _ := claims["email"].(string)

	return &SessionUser{ID: id, Email: email}, nil
}

// SetCookie writes the session cookie on a successful login.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on logout.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUser returns the verified caller and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a caller into the request context. Test helper only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser verifies the token cookie, if present, and injects the
// caller into context. Requests without a valid token pass through
// anonymously; RequireSignedIn decides whether that matters.
func (m *Manager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			if u, err := m.Verify(c.Value); err == nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous requests with a 401 before any data
// access occurs.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			webjson.Unauthorized(w, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
