// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/policy/projectpolicy"
	outboxstore "github.com/trelloai/trelloai/internal/app/store/outbox"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/system/auth"
	"github.com/trelloai/trelloai/internal/app/system/inputval"
	"github.com/trelloai/trelloai/internal/app/system/timeouts"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Projects.
type Handler struct {
	Projects *projectstore.Store
	Tasks    *taskstore.Store
	Outbox   *outboxstore.Store
	ErrLog   *webjson.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a Projects handler bound to its stores.
func NewHandler(projects *projectstore.Store, tasks *taskstore.Store, outbox *outboxstore.Store, errLog *webjson.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projects,
		Tasks:    tasks,
		Outbox:   outbox,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// resolve checks the caller's access to the project named in the URL and
// writes the matching error response when access fails. A missing project
// and an inaccessible project produce the same 404 so callers cannot tell
// which IDs exist.
func (h *Handler) resolve(ctx context.Context, w http.ResponseWriter, r *http.Request, requiredRole string) (projectpolicy.Access, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return projectpolicy.Access{}, false
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		webjson.BadRequest(w, "Invalid project ID")
		return projectpolicy.Access{}, false
	}

	a, err := projectpolicy.ResolveProject(ctx, h.Projects, id, models.User{ID: su.ID, Email: su.Email})
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, projectpolicy.ErrNoAccess):
			webjson.NotFound(w, "Project not found")
		default:
			h.ErrLog.LogServerError(w, r, "projects: resolve access", err, "Lookup failed")
		}
		return projectpolicy.Access{}, false
	}
	if !a.Allows(requiredRole) {
		webjson.Forbidden(w, "Insufficient permissions")
		return projectpolicy.Access{}, false
	}
	return a, true
}

// HandleList handles GET /api/projects.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	projects, err := h.Projects.ListAccessible(ctx, su.ID, su.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: list", err, "Failed to load projects")
		return
	}

	refs := make([]*models.Project, len(projects))
	for i := range projects {
		refs[i] = &projects[i]
	}
	if err := h.Projects.Populate(ctx, refs...); err != nil {
		h.Log.Warn("projects: populating member info", zap.Error(err))
	}

	webjson.Write(w, http.StatusOK, map[string]any{"projects": projects})
}

type projectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	var in projectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "projects: decode create body", err, "Invalid request body")
		return
	}
	name, description := "", ""
	if in.Name != nil {
		name = *in.Name
	}
	if in.Description != nil {
		description = *in.Description
	}

	p, err := h.Projects.Create(ctx, name, description, su.ID, su.Email)
	if err != nil {
		if errors.Is(err, projectstore.ErrNameRequired) {
			webjson.BadRequest(w, "Project name is required")
			return
		}
		h.ErrLog.LogServerError(w, r, "projects: create", err, "Failed to create project")
		return
	}

	webjson.Write(w, http.StatusCreated, map[string]any{"project": p})
}

// HandleGet handles GET /api/projects/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleViewer)
	if !ok {
		return
	}
	if err := h.Projects.Populate(ctx, a.Project); err != nil {
		h.Log.Warn("projects: populating member info", zap.Error(err))
	}
	webjson.Write(w, http.StatusOK, map[string]any{"project": a.Project})
}

// HandleListTasks handles GET /api/projects/{id}/tasks, returning the
// project's tasks newest first.
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleViewer)
	if !ok {
		return
	}

	tasks, err := h.Tasks.ListByProject(ctx, a.Project.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: list tasks", err, "Failed to load tasks")
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// HandleUpdate handles PUT /api/projects/{id}. Only name and description
// are editable.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleEditor)
	if !ok {
		return
	}

	var in projectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "projects: decode update body", err, "Invalid request body")
		return
	}

	p, err := h.Projects.UpdateFields(ctx, a.Project.ID, in.Name, in.Description)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			webjson.NotFound(w, "Project not found")
		case errors.Is(err, projectstore.ErrNameRequired):
			webjson.BadRequest(w, "Project name is required")
		default:
			h.ErrLog.LogServerError(w, r, "projects: update", err, "Failed to update project")
		}
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{"project": p})
}

// HandleDelete handles DELETE /api/projects/{id}. Owner only. Tasks in the
// project are removed and their vectors queued for deletion before the
// project document goes away.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleOwner)
	if !ok {
		return
	}
	projectID := a.Project.ID

	taskIDs, err := h.Tasks.DeleteByProject(ctx, projectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: cascade task delete", err, "Failed to delete project")
		return
	}
	for _, taskID := range taskIDs {
		if _, err := h.Outbox.EnqueueDelete(ctx, taskID, projectID); err != nil {
			h.Log.Error("projects: queueing vector delete",
				zap.String("task_id", taskID.Hex()), zap.Error(err))
		}
	}

	if err := h.Projects.Delete(ctx, projectID); err != nil {
		h.ErrLog.LogServerError(w, r, "projects: delete", err, "Failed to delete project")
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{"message": "Project deleted successfully"})
}

// HandleListMembers handles GET /api/projects/{id}/members.
func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleViewer)
	if !ok {
		return
	}
	if err := h.Projects.Populate(ctx, a.Project); err != nil {
		h.Log.Warn("projects: populating member info", zap.Error(err))
	}
	webjson.Write(w, http.StatusOK, map[string]any{"members": a.Project.Members})
}

type memberInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleAddMember handles POST /api/projects/{id}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.resolve(ctx, w, r, models.RoleEditor)
	if !ok {
		return
	}

	var in memberInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "projects: decode member body", err, "Invalid request body")
		return
	}
	if !inputval.IsValidEmail(in.Email) {
		webjson.BadRequest(w, "A valid email is required")
		return
	}

	m, err := h.Projects.AddMember(ctx, a.Project.ID, in.Email, in.Role)
	if err != nil {
		if errors.Is(err, projectstore.ErrDuplicateMember) {
			webjson.BadRequest(w, "This person is already a member of the project")
			return
		}
		webjson.BadRequest(w, err.Error())
		return
	}

	webjson.Write(w, http.StatusCreated, map[string]any{"member": m})
}
