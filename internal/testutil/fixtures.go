package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given email and name.
// The stored password is "password123".
func (f *Fixtures) CreateUser(ctx context.Context, email, name string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		NameCI:       text.Fold(name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateProject creates a test project owned by the given user. The owner
// appears both as the legacy owner and as an owner member entry.
func (f *Fixtures) CreateProject(ctx context.Context, name string, owner models.User) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	ownerID := owner.ID
	project := models.Project{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		Description:   "Test project description",
		LegacyOwnerID: &ownerID,
		Members: []models.Member{{
			UserID:   &ownerID,
			Role:     models.RoleOwner,
			Email:    owner.Email,
			JoinedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := f.db.Collection("projects").InsertOne(ctx, project)
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}

	return project
}

// CreateLegacyProject creates a project that only carries the legacy owner
// field, the shape of documents written before member lists existed.
func (f *Fixtures) CreateLegacyProject(ctx context.Context, name string, ownerID primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	project := models.Project{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		LegacyOwnerID: &ownerID,
		Members:       []models.Member{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := f.db.Collection("projects").InsertOne(ctx, project)
	if err != nil {
		f.t.Fatalf("failed to create legacy test project: %v", err)
	}

	return project
}

// AddMember appends a member entry to a project directly, bypassing the
// store, so tests can set up arbitrary membership shapes.
func (f *Fixtures) AddMember(ctx context.Context, projectID primitive.ObjectID, userID *primitive.ObjectID, email, role string) {
	f.t.Helper()

	m := models.Member{
		UserID:   userID,
		Role:     role,
		Email:    email,
		JoinedAt: time.Now().UTC(),
	}
	_, err := f.db.Collection("projects").UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{"$push": bson.M{"members": m}})
	if err != nil {
		f.t.Fatalf("failed to add test member: %v", err)
	}
}

// CreateTask creates a test task within the given project.
func (f *Fixtures) CreateTask(ctx context.Context, title string, projectID, creatorID primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	pid := projectID
	task := models.Task{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Description:  "Test task description",
		Category:     "General",
		Priority:     models.PriorityMedium,
		Status:       models.StatusTodo,
		TaskStatus:   models.StatusTodo,
		ProjectID:    &pid,
		LegacyUserID: creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("tasks").InsertOne(ctx, task)
	if err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}

	return task
}

// CreateLegacyTask creates a task without a project, the shape of tasks
// written before project scoping existed.
func (f *Fixtures) CreateLegacyTask(ctx context.Context, title string, creatorID primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Priority:     models.PriorityMedium,
		Status:       models.StatusTodo,
		TaskStatus:   models.StatusTodo,
		LegacyUserID: creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("tasks").InsertOne(ctx, task)
	if err != nil {
		f.t.Fatalf("failed to create legacy test task: %v", err)
	}

	return task
}
