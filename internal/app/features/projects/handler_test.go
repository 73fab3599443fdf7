package projects_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trelloai/trelloai/internal/app/features/projects"
	outboxstore "github.com/trelloai/trelloai/internal/app/store/outbox"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/domain/models"
	"github.com/trelloai/trelloai/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*projects.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	errLog := webjson.NewErrorLogger(logger, false)
	h := projects.NewHandler(projectstore.New(db), taskstore.New(db), outboxstore.New(db), errLog, logger)
	return h, db
}

func TestHandleCreate(t *testing.T) {
	h, _ := newTestHandler(t)
	user := testutil.SomeUser()

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/projects",
		`{"name":"Roadmap","description":"Q4 work"}`), user)
	rec := testutil.NewRecorder()
	h.HandleCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusCreated)
	var out struct {
		Project models.Project `json:"project"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Project.Name != "Roadmap" {
		t.Errorf("Name: got %q", out.Project.Name)
	}
	if len(out.Project.Members) != 1 || out.Project.Members[0].Role != models.RoleOwner {
		t.Errorf("creator should be the sole owner member, got %+v", out.Project.Members)
	}
}

func TestHandleCreate_MissingName(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/projects", `{}`), testutil.SomeUser())
	rec := testutil.NewRecorder()
	h.HandleCreate(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Project name is required")
}

func TestHandleList_PopulatesMembers(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	fixtures.CreateProject(ctx, "Mine", owner)

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects",
		testutil.UserFor(owner.ID, owner.Email))
	rec := testutil.NewRecorder()
	h.HandleList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"userInfo"`)
	rec.AssertContains(t, "Owner")
}

func TestHandleGet_RoleMatrix(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	viewer := fixtures.CreateUser(ctx, "viewer@example.com", "Viewer")
	stranger := fixtures.CreateUser(ctx, "stranger@example.com", "Stranger")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &viewer.ID, viewer.Email, models.RoleViewer)

	tests := []struct {
		name string
		user testutil.TestUser
		want int
	}{
		{"owner", testutil.UserFor(owner.ID, owner.Email), http.StatusOK},
		{"viewer", testutil.UserFor(viewer.ID, viewer.Email), http.StatusOK},
		{"stranger", testutil.UserFor(stranger.ID, stranger.Email), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest("GET", "/api/projects/"+p.ID.Hex(), tt.user)
			req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
			rec := testutil.NewRecorder()
			h.HandleGet(rec.ResponseRecorder, req)
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestHandleGet_BadID(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects/not-hex", testutil.SomeUser())
	req = testutil.WithChiURLParam(req, "id", "not-hex")
	rec := testutil.NewRecorder()
	h.HandleGet(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_ViewerForbidden(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	viewer := fixtures.CreateUser(ctx, "viewer@example.com", "Viewer")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &viewer.ID, viewer.Email, models.RoleViewer)

	req := testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/projects/"+p.ID.Hex(),
		`{"name":"Hijacked"}`), testutil.UserFor(viewer.ID, viewer.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleUpdate_Editor(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	editor := fixtures.CreateUser(ctx, "editor@example.com", "Editor")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &editor.ID, editor.Email, models.RoleEditor)

	req := testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/projects/"+p.ID.Hex(),
		`{"description":"updated"}`), testutil.UserFor(editor.ID, editor.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "updated")
}

func TestHandleDelete_CascadesTasksAndQueuesVectorDeletes(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Doomed", owner)
	fixtures.CreateTask(ctx, "a", p.ID, owner.ID)
	fixtures.CreateTask(ctx, "b", p.ID, owner.ID)

	req := testutil.NewAuthenticatedRequest("DELETE", "/api/projects/"+p.ID.Hex(),
		testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleDelete(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	if _, err := projectstore.New(db).GetByID(ctx, p.ID); err == nil {
		t.Errorf("project should be deleted")
	}
	ops, err := outboxstore.New(db).NextPending(ctx, 10)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if len(ops) != 2 {
		t.Errorf("expected 2 queued vector deletes, got %d", len(ops))
	}
	for _, op := range ops {
		if op.Kind != models.SyncDelete {
			t.Errorf("op kind: got %q, want %q", op.Kind, models.SyncDelete)
		}
	}
}

func TestHandleDelete_EditorForbidden(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	editor := fixtures.CreateUser(ctx, "editor@example.com", "Editor")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &editor.ID, editor.Email, models.RoleEditor)

	req := testutil.NewAuthenticatedRequest("DELETE", "/api/projects/"+p.ID.Hex(),
		testutil.UserFor(editor.ID, editor.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleDelete(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleAddMember_DuplicateLeavesListUnchanged(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/projects/"+p.ID.Hex()+"/members",
		`{"email":"owner@example.com","role":"viewer"}`), testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleAddMember(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)

	reloaded, err := projectstore.New(db).GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(reloaded.Members) != 1 {
		t.Errorf("member list should be unchanged, got %d entries", len(reloaded.Members))
	}
}

func TestHandleAddMember_PendingInvite(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/projects/"+p.ID.Hex()+"/members",
		`{"email":"Future@Example.com"}`), testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleAddMember(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusCreated)
	var out struct {
		Member models.Member `json:"member"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Member.Email != "future@example.com" {
		t.Errorf("Email: got %q, want folded", out.Member.Email)
	}
	if out.Member.UserID != nil {
		t.Errorf("unregistered invite should be pending")
	}
	if out.Member.Role != models.RoleEditor {
		t.Errorf("Role: got %q, want default editor", out.Member.Role)
	}
}

func TestHandleListTasks(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	viewer := fixtures.CreateUser(ctx, "viewer@example.com", "Viewer")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &viewer.ID, viewer.Email, models.RoleViewer)
	fixtures.CreateTask(ctx, "Write docs", p.ID, owner.ID)
	fixtures.CreateTask(ctx, "Ship release", p.ID, owner.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects/"+p.ID.Hex()+"/tasks",
		testutil.UserFor(viewer.ID, viewer.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleListTasks(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Tasks) != 2 {
		t.Fatalf("tasks: got %d, want 2", len(out.Tasks))
	}
}

func TestHandleListTasks_StrangerGets404(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	stranger := fixtures.CreateUser(ctx, "stranger@example.com", "Stranger")
	p := fixtures.CreateProject(ctx, "Private", owner)
	fixtures.CreateTask(ctx, "Secret work", p.ID, owner.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/api/projects/"+p.ID.Hex()+"/tasks",
		testutil.UserFor(stranger.ID, stranger.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleListTasks(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleCreate_MalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.WithUser(testutil.NewJSONRequest("POST", "/api/projects", `{"name":`), testutil.SomeUser())
	rec := testutil.NewRecorder()
	h.HandleCreate(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Invalid request body")
}

func TestHandleUpdate_BlankName(t *testing.T) {
	h, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)

	req := testutil.WithUser(testutil.NewJSONRequest("PUT", "/api/projects/"+p.ID.Hex(),
		`{"name":"   "}`), testutil.UserFor(owner.ID, owner.Email))
	req = testutil.WithChiURLParam(req, "id", p.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Project name is required")
}
