package search_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trelloai/trelloai/internal/app/ai"
	"github.com/trelloai/trelloai/internal/app/features/search"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/app/vector"
	"github.com/trelloai/trelloai/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeEmbedder serves an OpenAI-compatible embeddings endpoint.
func fakeEmbedder(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3],"index":0}],"model":"text-embedding-3-small"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeIndex(t *testing.T, matchJSON string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, matchJSON)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, matchJSON string) (*search.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	aiClient := ai.New(ai.Config{APIKey: "test", BaseURL: fakeEmbedder(t).URL}, logger)
	index := vector.New(vector.Config{Host: fakeIndex(t, matchJSON).URL, APIKey: "test"}, logger)
	svc := search.NewService(aiClient, index, taskstore.New(db), logger)

	errLog := webjson.NewErrorLogger(logger, false)
	return search.NewHandler(svc, projectstore.New(db), errLog, logger), db
}

func TestHandleSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	task := fixtures.CreateTask(ctx, "Deploy staging", p.ID, owner.ID)

	matchJSON := fmt.Sprintf(
		`{"matches":[{"id":%q,"score":0.92,"metadata":{"title":"Deploy staging"}},{"id":%q,"score":0.31}]}`,
		task.ID.Hex(), task.ID.Hex())

	logger := zap.NewNop()
	aiClient := ai.New(ai.Config{APIKey: "test", BaseURL: fakeEmbedder(t).URL}, logger)
	index := vector.New(vector.Config{Host: fakeIndex(t, matchJSON).URL, APIKey: "test"}, logger)
	svc := search.NewService(aiClient, index, taskstore.New(db), logger)
	h := search.NewHandler(svc, projectstore.New(db), webjson.NewErrorLogger(logger, false), logger)

	req := testutil.NewAuthenticatedRequest("GET",
		"/api/tasks/search/"+p.ID.Hex()+"?query=deploy", testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "projectId", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSearch(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Results []search.Result `json:"results"`
		Count   int             `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count: got %d, want 1 (low-score match filtered)", out.Count)
	}
	if out.Results[0].Task == nil || out.Results[0].Task.Title != "Deploy staging" {
		t.Errorf("task should be hydrated from the database, got %+v", out.Results[0])
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	h, db := newTestHandler(t, `{"matches":[]}`)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.NewAuthenticatedRequest("GET",
		"/api/tasks/search/"+p.ID.Hex(), testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "projectId", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSearch(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleSearch_EmptyResultIsOK(t *testing.T) {
	h, db := newTestHandler(t, `{"matches":[]}`)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.NewAuthenticatedRequest("GET",
		"/api/tasks/search/"+p.ID.Hex()+"?query=nothing", testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "projectId", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSearch(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"count":0`)
}

func TestHandleSearch_StrangerGets404(t *testing.T) {
	h, db := newTestHandler(t, `{"matches":[]}`)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.NewAuthenticatedRequest("GET",
		"/api/tasks/search/"+p.ID.Hex()+"?query=deploy", testutil.SomeUser())
	req = testutil.WithChiURLParam(req, "projectId", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSearch(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleSearch_UnconfiguredProviderIs503(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	logger := zap.NewNop()
	aiClient := ai.New(ai.Config{}, logger)
	index := vector.New(vector.Config{}, logger)
	svc := search.NewService(aiClient, index, taskstore.New(db), logger)
	h := search.NewHandler(svc, projectstore.New(db), webjson.NewErrorLogger(logger, false), logger)

	req := testutil.NewAuthenticatedRequest("GET",
		"/api/tasks/search/"+p.ID.Hex()+"?query=x", testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "projectId", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSearch(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusServiceUnavailable)
}
