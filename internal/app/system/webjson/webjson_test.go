package webjson_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"go.uber.org/zap"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return body
}

func TestWrite_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	webjson.Write(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
}

func TestBadRequest_WithCode(t *testing.T) {
	rec := httptest.NewRecorder()
	webjson.BadRequest(rec, "Project ID is required for task operations.", "missing_project_id")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, rec)
	if body["error"] != "missing_project_id" {
		t.Errorf("error code: got %v", body["error"])
	}
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		name  string
		write func(http.ResponseWriter)
		want  int
	}{
		{"unauthorized", func(w http.ResponseWriter) { webjson.Unauthorized(w, "Unauthorized") }, http.StatusUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { webjson.Forbidden(w, "Insufficient permissions") }, http.StatusForbidden},
		{"not found", func(w http.ResponseWriter) { webjson.NotFound(w, "Project not found") }, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogServerError_HidesDetailInProd(t *testing.T) {
	errLog := webjson.NewErrorLogger(zap.NewNop(), true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/projects", nil)

	errLog.LogServerError(rec, req, "find projects failed", errors.New("boom"), "Internal server error")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["error"]; ok {
		t.Error("expected no error detail in production")
	}
}

func TestLogServerError_ShowsDetailInDev(t *testing.T) {
	errLog := webjson.NewErrorLogger(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/projects", nil)

	errLog.LogServerError(rec, req, "find projects failed", errors.New("boom"), "Internal server error")

	body := decodeBody(t, rec)
	if body["error"] != "boom" {
		t.Errorf("expected error detail, got %v", body["error"])
	}
}
