package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/trelloai/trelloai/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID    primitive.ObjectID
	Email string
}

// SomeUser returns a TestUser with a fresh ID and a throwaway email.
func SomeUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID(),
		Email: "user@test.com",
	}
}

// UserFor builds a TestUser matching a fixture user, so handler tests can
// authenticate as accounts that exist in the test database.
func UserFor(id primitive.ObjectID, email string) TestUser {
	return TestUser{ID: id, Email: email}
}

// WithUser adds a user to the request context for testing authenticated
// handlers. This bypasses the cookie middleware and injects the session
// directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    user.ID,
		Email: user.Email,
	})
}

// NewJSONRequest creates an HTTP request carrying a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
