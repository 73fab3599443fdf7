// internal/app/policy/projectpolicy.go
package projectpolicy

import (
	"context"
	"errors"

	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Access is the result of resolving a user against a project. Role is empty
// for legacy-only access, which grants full control for backward
// compatibility.
type Access struct {
	Project *models.Project
	Role    string
	Legacy  bool
}

// Rank returns the numeric strength of the resolved role. Legacy owners
// rank as owners.
func (a Access) Rank() int {
	if a.Legacy {
		return models.RoleRank[models.RoleOwner]
	}
	return models.RoleRank[a.Role]
}

// Allows reports whether the resolved access meets the required role.
func (a Access) Allows(requiredRole string) bool {
	return a.Rank() >= models.RoleRank[requiredRole]
}

// ErrNoAccess is returned when the user has no relationship to the project.
// Handlers report it the same way as a missing project, so a caller cannot
// tell which project IDs exist.
var ErrNoAccess = errors.New("project not found")

// ResolveProject loads the project and determines the user's role in it.
// Returns mongo.ErrNoDocuments if the project does not exist and
// ErrNoAccess if it exists but the user has no membership or legacy claim.
func ResolveProject(ctx context.Context, projects *projectstore.Store, projectID primitive.ObjectID, user models.User) (Access, error) {
	p, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return Access{}, err
	}
	return resolve(p, user)
}

func resolve(p *models.Project, user models.User) (Access, error) {
	if m := p.MemberByUserID(user.ID); m != nil {
		return Access{Project: p, Role: m.Role}, nil
	}
	if m := p.MemberByEmail(user.Email); m != nil {
		return Access{Project: p, Role: m.Role}, nil
	}
	if p.LegacyOwnerID != nil && *p.LegacyOwnerID == user.ID {
		return Access{Project: p, Legacy: true}, nil
	}
	return Access{}, ErrNoAccess
}

// TaskAccess couples a task with the project access that authorizes it.
type TaskAccess struct {
	Task *models.Task
	Access
}

// ResolveTask loads the task and resolves the user's access through its
// project. Legacy tasks without a project are governed by their creator.
func ResolveTask(ctx context.Context, projects *projectstore.Store, tasks *taskstore.Store, taskID primitive.ObjectID, user models.User) (TaskAccess, error) {
	t, err := tasks.GetByID(ctx, taskID)
	if err != nil {
		return TaskAccess{}, err
	}

	if t.ProjectID == nil {
		if t.LegacyUserID != user.ID {
			return TaskAccess{}, ErrNoAccess
		}
		return TaskAccess{Task: t, Access: Access{Legacy: true}}, nil
	}

	p, err := projects.GetByID(ctx, *t.ProjectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// orphaned task; fall back to creator ownership
			if t.LegacyUserID == user.ID {
				return TaskAccess{Task: t, Access: Access{Legacy: true}}, nil
			}
			return TaskAccess{}, ErrNoAccess
		}
		return TaskAccess{}, err
	}

	a, err := resolve(p, user)
	if err != nil {
		return TaskAccess{}, err
	}
	return TaskAccess{Task: t, Access: a}, nil
}
