package vector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Host: srv.URL, APIKey: "test-key"}, zap.NewNop())
}

func TestIndex_Upsert(t *testing.T) {
	var gotPath, gotKey string
	var gotBody struct {
		Vectors []Vector `json:"vectors"`
	}
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Api-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"upsertedCount":1}`))
	})

	err := ix.Upsert(context.Background(), Vector{
		ID:       "task1",
		Values:   []float32{0.1, 0.2},
		Metadata: map[string]string{"projectId": "p1", "title": "Ship"},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if gotPath != "/vectors/upsert" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Api-Key header: got %q", gotKey)
	}
	if len(gotBody.Vectors) != 1 || gotBody.Vectors[0].ID != "task1" {
		t.Errorf("request vectors: got %+v", gotBody.Vectors)
	}
}

func TestIndex_Query(t *testing.T) {
	var gotBody map[string]any
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"matches":[{"id":"task1","score":0.91,"metadata":{"title":"Ship"}},{"id":"task2","score":0.42}]}`))
	})

	matches, err := ix.Query(context.Background(), []float32{0.5}, 10, "p1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "task1" || matches[0].Score != 0.91 {
		t.Errorf("first match: got %+v", matches[0])
	}

	filter, ok := gotBody["filter"].(map[string]any)
	if !ok || filter["projectId"] != "p1" {
		t.Errorf("filter: got %v", gotBody["filter"])
	}
	if gotBody["includeMetadata"] != true {
		t.Errorf("includeMetadata should be requested")
	}
}

func TestIndex_Delete(t *testing.T) {
	var gotBody struct {
		IDs []string `json:"ids"`
	}
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{}`))
	})

	if err := ix.Delete(context.Background(), "task1", "task2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(gotBody.IDs) != 2 {
		t.Errorf("ids: got %v", gotBody.IDs)
	}
}

func TestIndex_ErrorStatus(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	})

	err := ix.Upsert(context.Background(), Vector{ID: "x"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestIndex_NotConfigured(t *testing.T) {
	ix := New(Config{}, zap.NewNop())
	if ix.Configured() {
		t.Error("empty config should not be configured")
	}
	if err := ix.Upsert(context.Background(), Vector{ID: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Upsert: expected ErrNotConfigured, got %v", err)
	}
	if _, err := ix.Query(context.Background(), nil, 10, "p"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Query: expected ErrNotConfigured, got %v", err)
	}
}
