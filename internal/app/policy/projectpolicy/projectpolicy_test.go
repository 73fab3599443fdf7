package projectpolicy_test

import (
	"errors"
	"testing"

	"github.com/trelloai/trelloai/internal/app/policy/projectpolicy"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/domain/models"
	"github.com/trelloai/trelloai/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestResolveProject_Roles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	editor := fixtures.CreateUser(ctx, "editor@example.com", "Editor")
	viewer := fixtures.CreateUser(ctx, "viewer@example.com", "Viewer")
	stranger := fixtures.CreateUser(ctx, "stranger@example.com", "Stranger")

	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &editor.ID, editor.Email, models.RoleEditor)
	fixtures.AddMember(ctx, p.ID, &viewer.ID, viewer.Email, models.RoleViewer)

	tests := []struct {
		name     string
		user     models.User
		wantRole string
		allowed  map[string]bool
	}{
		{"owner", owner, models.RoleOwner,
			map[string]bool{models.RoleViewer: true, models.RoleEditor: true, models.RoleOwner: true}},
		{"editor", editor, models.RoleEditor,
			map[string]bool{models.RoleViewer: true, models.RoleEditor: true, models.RoleOwner: false}},
		{"viewer", viewer, models.RoleViewer,
			map[string]bool{models.RoleViewer: true, models.RoleEditor: false, models.RoleOwner: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := projectpolicy.ResolveProject(ctx, projects, p.ID, tt.user)
			if err != nil {
				t.Fatalf("ResolveProject failed: %v", err)
			}
			if a.Role != tt.wantRole {
				t.Errorf("Role: got %q, want %q", a.Role, tt.wantRole)
			}
			for required, want := range tt.allowed {
				if got := a.Allows(required); got != want {
					t.Errorf("Allows(%q): got %v, want %v", required, got, want)
				}
			}
		})
	}

	_, err := projectpolicy.ResolveProject(ctx, projects, p.ID, stranger)
	if !errors.Is(err, projectpolicy.ErrNoAccess) {
		t.Errorf("stranger: expected ErrNoAccess, got %v", err)
	}
}

func TestResolveProject_PendingMemberByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, nil, "invitee@example.com", models.RoleEditor)

	invitee := models.User{ID: primitive.NewObjectID(), Email: "invitee@example.com"}
	a, err := projectpolicy.ResolveProject(ctx, projects, p.ID, invitee)
	if err != nil {
		t.Fatalf("ResolveProject failed: %v", err)
	}
	if a.Role != models.RoleEditor {
		t.Errorf("Role: got %q, want %q", a.Role, models.RoleEditor)
	}
}

func TestResolveProject_LegacyOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	p := fixtures.CreateLegacyProject(ctx, "Old", owner.ID)

	a, err := projectpolicy.ResolveProject(ctx, projects, p.ID, owner)
	if err != nil {
		t.Fatalf("ResolveProject failed: %v", err)
	}
	if !a.Legacy {
		t.Errorf("expected legacy access")
	}
	if !a.Allows(models.RoleOwner) {
		t.Errorf("legacy owner should rank as owner")
	}
}

func TestResolveProject_Missing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "user@example.com", "User")

	_, err := projectpolicy.ResolveProject(ctx, projects, primitive.NewObjectID(), user)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestResolveTask_ThroughProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	tasks := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	viewer := fixtures.CreateUser(ctx, "viewer@example.com", "Viewer")
	p := fixtures.CreateProject(ctx, "Proj", owner)
	fixtures.AddMember(ctx, p.ID, &viewer.ID, viewer.Email, models.RoleViewer)
	task := fixtures.CreateTask(ctx, "Task", p.ID, owner.ID)

	ta, err := projectpolicy.ResolveTask(ctx, projects, tasks, task.ID, viewer)
	if err != nil {
		t.Fatalf("ResolveTask failed: %v", err)
	}
	if ta.Task.ID != task.ID {
		t.Errorf("wrong task resolved")
	}
	if ta.Allows(models.RoleEditor) {
		t.Errorf("viewer should not reach editor rank on the task's project")
	}
}

func TestResolveTask_LegacyTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	tasks := taskstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "creator@example.com", "Creator")
	other := fixtures.CreateUser(ctx, "other@example.com", "Other")
	task := fixtures.CreateLegacyTask(ctx, "Old task", creator.ID)

	ta, err := projectpolicy.ResolveTask(ctx, projects, tasks, task.ID, creator)
	if err != nil {
		t.Fatalf("ResolveTask failed: %v", err)
	}
	if !ta.Legacy || !ta.Allows(models.RoleOwner) {
		t.Errorf("creator should own a legacy task")
	}

	_, err = projectpolicy.ResolveTask(ctx, projects, tasks, task.ID, other)
	if !errors.Is(err, projectpolicy.ErrNoAccess) {
		t.Errorf("non-creator: expected ErrNoAccess, got %v", err)
	}
}
