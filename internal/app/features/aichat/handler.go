// internal/app/features/aichat/handler.go
package aichat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trelloai/trelloai/internal/app/ai"
	"github.com/trelloai/trelloai/internal/app/features/search"
	"github.com/trelloai/trelloai/internal/app/policy/projectpolicy"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	"github.com/trelloai/trelloai/internal/app/system/auth"
	"github.com/trelloai/trelloai/internal/app/system/timeouts"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler turns chat messages into task drafts or task lookups. Queries
// ("show me...", "what is...") run against the vector search service;
// everything else is sent to the model for task extraction.
type Handler struct {
	AI       *ai.Client
	Search   *search.Service
	Projects *projectstore.Store
	ErrLog   *webjson.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(aiClient *ai.Client, searchSvc *search.Service, projects *projectstore.Store, errLog *webjson.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		AI:       aiClient,
		Search:   searchSvc,
		Projects: projects,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type chatInput struct {
	Message        string `json:"message"`
	ProjectContext string `json:"projectContext"`
	ProjectID      string `json:"projectId"`
}

// HandleChat handles POST /api/ai-chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Chat())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	var in chatInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "ai-chat: decode body", err, "Invalid request body")
		return
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		webjson.BadRequest(w, "Message is required")
		return
	}
	if in.ProjectID == "" {
		webjson.BadRequest(w, "Project ID is required for task operations.", "missing_project_id")
		return
	}
	projectID, err := primitive.ObjectIDFromHex(in.ProjectID)
	if err != nil {
		webjson.BadRequest(w, "Invalid project ID")
		return
	}

	a, err := projectpolicy.ResolveProject(ctx, h.Projects, projectID, models.User{ID: su.ID, Email: su.Email})
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, projectpolicy.ErrNoAccess):
			webjson.NotFound(w, "Project not found")
		default:
			h.ErrLog.LogServerError(w, r, "aichat: resolve access", err, "Lookup failed")
		}
		return
	}
	if !a.Allows(models.RoleViewer) {
		webjson.Forbidden(w, "Insufficient permissions")
		return
	}

	if ai.IsTaskQuery(in.Message) {
		if resp, ok := h.answerQuery(ctx, projectID, in.Message); ok {
			webjson.Write(w, http.StatusOK, resp)
			return
		}
		// Search unavailable or failed; treat the message as a creation
		// request so the user still gets something useful.
	}

	webjson.Write(w, http.StatusOK, h.proposeTasks(ctx, in))
}

// creationPayload is the response shape when drafting new tasks.
type creationPayload struct {
	Message string         `json:"message"`
	Tasks   []ai.TaskDraft `json:"tasks"`
}

// queryPayload is the response shape when answering a task lookup. Tasks
// carries the stored task documents the search matched.
type queryPayload struct {
	Message   string          `json:"message"`
	Tasks     []*models.Task  `json:"tasks"`
	FoundTask bool            `json:"foundTask"`
	Results   []search.Result `json:"results,omitempty"`
}

// answerQuery runs the message through vector search. The bool is false
// when search cannot answer and the caller should fall back to creation.
func (h *Handler) answerQuery(ctx context.Context, projectID primitive.ObjectID, message string) (queryPayload, bool) {
	results, err := h.Search.Search(ctx, projectID, message, search.DefaultTopK, search.DefaultMinScore)
	if err != nil {
		if !errors.Is(err, search.ErrUnavailable) {
			h.Log.Warn("aichat: search failed", zap.Error(err))
		}
		return queryPayload{}, false
	}

	if len(results) == 0 {
		return queryPayload{
			Message: "I couldn't find any tasks matching your query.",
			Tasks:   []*models.Task{},
		}, true
	}

	tasks := make([]*models.Task, 0, len(results))
	for _, res := range results {
		if res.Task != nil {
			tasks = append(tasks, res.Task)
		}
	}
	return queryPayload{
		Message:   fmt.Sprintf("Found %d matching task(s).", len(results)),
		Tasks:     tasks,
		FoundTask: true,
		Results:   results,
	}, true
}

// proposeTasks asks the model for task drafts. Any provider failure
// degrades to a single canned draft built from the message so the chat
// flow keeps working without an API key.
func (h *Handler) proposeTasks(ctx context.Context, in chatInput) creationPayload {
	raw, err := h.AI.ProposeTasks(ctx, in.Message, in.ProjectContext)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			h.Log.Warn("aichat: completion failed", zap.Error(err))
		}
		return fallbackPayload(in.Message)
	}

	parsed := ai.SafeParseTasks(raw)
	return creationPayload{Message: parsed.Message, Tasks: parsed.Tasks}
}

func fallbackPayload(message string) creationPayload {
	return creationPayload{
		Message: "I'll help you create that task.",
		Tasks: []ai.TaskDraft{{
			Category:    "General",
			Title:       "New Task",
			Description: message,
			Priority:    "medium",
			TaskStatus:  "pending",
			Assignee:    "unassigned",
			Status:      "todo",
		}},
	}
}
