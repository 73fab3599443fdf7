// internal/app/features/tasks/handler.go
package tasks

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
	"github.com/trelloai/trelloai/internal/app/system/timeouts"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Tasks.
type Handler struct {
	Tasks    *taskstore.Store
	Projects *projectstore.Store
	Outbox   *outboxstore.Store
	ErrLog   *webjson.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a Tasks handler bound to its stores.
func NewHandler(tasks *taskstore.Store, projects *projectstore.Store, outbox *outboxstore.Store, errLog *webjson.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Tasks:    tasks,
		Projects: projects,
		Outbox:   outbox,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type taskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	TaskStatus  string `json:"taskStatus"`
	Assignee    string `json:"assignee"`
	ProjectID   string `json:"projectId"`
}

func (in taskInput) fields() taskstore.Fields {
	return taskstore.Fields{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      in.Status,
		TaskStatus:  in.TaskStatus,
		Assignee:    in.Assignee,
	}
}

// resolveTask checks the caller's access to the task named in the URL and
// writes the matching error response when access fails.
func (h *Handler) resolveTask(ctx context.Context, w http.ResponseWriter, r *http.Request, requiredRole string) (projectpolicy.TaskAccess, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return projectpolicy.TaskAccess{}, false
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		webjson.BadRequest(w, "Invalid task ID")
		return projectpolicy.TaskAccess{}, false
	}

	ta, err := projectpolicy.ResolveTask(ctx, h.Projects, h.Tasks, id, models.User{ID: su.ID, Email: su.Email})
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, projectpolicy.ErrNoAccess):
			webjson.NotFound(w, "Task not found")
		default:
			h.ErrLog.LogServerError(w, r, "tasks: resolve access", err, "Lookup failed")
		}
		return projectpolicy.TaskAccess{}, false
	}
	if !ta.Allows(requiredRole) {
		webjson.Forbidden(w, "Insufficient permissions")
		return projectpolicy.TaskAccess{}, false
	}
	return ta, true
}

// HandleList handles GET /api/taskSave: every task in a project the caller
// can access, plus the caller's project-less legacy tasks.
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
		h.ErrLog.LogServerError(w, r, "tasks: list accessible projects", err, "Failed to load tasks")
		return
	}
	projectIDs := make([]primitive.ObjectID, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}

	tasks, err := h.Tasks.ListForProjects(ctx, projectIDs, su.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "tasks: list", err, "Failed to load tasks")
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// HandleCreate handles POST /api/taskSave.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	var in taskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "tasks: decode create body", err, "Invalid request body")
		return
	}
	if in.Title == "" || in.Category == "" {
		webjson.BadRequest(w, "Title and category are required")
		return
	}

	var projectID *primitive.ObjectID
	if in.ProjectID != "" {
		id, err := primitive.ObjectIDFromHex(in.ProjectID)
		if err != nil {
			webjson.BadRequest(w, "Invalid project ID")
			return
		}
		a, err := projectpolicy.ResolveProject(ctx, h.Projects, id, models.User{ID: su.ID, Email: su.Email})
		if err != nil {
			switch {
			case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, projectpolicy.ErrNoAccess):
				webjson.NotFound(w, "Project not found")
			default:
				h.ErrLog.LogServerError(w, r, "tasks: resolve project", err, "Lookup failed")
			}
			return
		}
		if !a.Allows(models.RoleEditor) {
			webjson.Forbidden(w, "Insufficient permissions")
			return
		}
		projectID = &id
	}

	task, err := h.Tasks.Create(ctx, projectID, su.ID, in.fields())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "tasks: create", err, "Failed to create task")
		return
	}

	if projectID != nil {
		if err := h.Projects.IncTaskCount(ctx, *projectID); err != nil {
			h.Log.Error("tasks: incrementing task count", zap.Error(err))
		}
		h.enqueueUpsert(ctx, task.ID, *projectID)
	}

	webjson.Write(w, http.StatusCreated, map[string]any{"task": task})
}

// HandleGet handles GET /api/taskSave/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ta, ok := h.resolveTask(ctx, w, r, models.RoleViewer)
	if !ok {
		return
	}
	webjson.Write(w, http.StatusOK, map[string]any{"task": ta.Task})
}

// HandleUpdate handles PUT /api/taskSave/{id}. Only the whitelisted fields
// are written; project and creator never change.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ta, ok := h.resolveTask(ctx, w, r, models.RoleEditor)
	if !ok {
		return
	}

	var in taskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "tasks: decode update body", err, "Invalid request body")
		return
	}

	task, err := h.Tasks.Update(ctx, ta.Task.ID, in.fields())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			webjson.NotFound(w, "Task not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "tasks: update", err, "Failed to update task")
		return
	}

	if task.ProjectID != nil {
		h.enqueueUpsert(ctx, task.ID, *task.ProjectID)
	}

	webjson.Write(w, http.StatusOK, map[string]any{"task": task})
}

// HandleDelete handles DELETE /api/taskSave/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ta, ok := h.resolveTask(ctx, w, r, models.RoleEditor)
	if !ok {
		return
	}

	deleted, err := h.Tasks.Delete(ctx, ta.Task.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "tasks: delete", err, "Failed to delete task")
		return
	}

	if deleted && ta.Task.ProjectID != nil {
		if err := h.Projects.DecTaskCount(ctx, *ta.Task.ProjectID); err != nil {
			h.Log.Error("tasks: decrementing task count", zap.Error(err))
		}
		if _, err := h.Outbox.EnqueueDelete(ctx, ta.Task.ID, *ta.Task.ProjectID); err != nil {
			h.Log.Error("tasks: queueing vector delete",
				zap.String("task_id", ta.Task.ID.Hex()), zap.Error(err))
		}
	}

	webjson.Write(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
}

func (h *Handler) enqueueUpsert(ctx context.Context, taskID, projectID primitive.ObjectID) {
	if _, err := h.Outbox.EnqueueUpsert(ctx, taskID, projectID); err != nil {
		h.Log.Error("tasks: queueing vector upsert",
			zap.String("task_id", taskID.Hex()), zap.Error(err))
	}
}
