// internal/app/features/search/handler.go
package search

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
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

// Handler serves the task vector search endpoint.
type Handler struct {
	Service  *Service
	Projects *projectstore.Store
	ErrLog   *webjson.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(service *Service, projects *projectstore.Store, errLog *webjson.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Service:  service,
		Projects: projects,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// HandleSearch handles GET /api/tasks/search/{projectId}?query=&topK=&minScore=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Search())
	defer cancel()

	su, ok := auth.CurrentUser(r)
	if !ok {
		webjson.Unauthorized(w, "Unauthorized")
		return
	}

	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectId"))
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
			h.ErrLog.LogServerError(w, r, "search: resolve access", err, "Lookup failed")
		}
		return
	}
	if !a.Allows(models.RoleViewer) {
		webjson.Forbidden(w, "Insufficient permissions")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		webjson.BadRequest(w, "Query parameter required")
		return
	}

	topK := DefaultTopK
	if s := r.URL.Query().Get("topK"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			topK = n
		}
	}
	minScore := DefaultMinScore
	if s := r.URL.Query().Get("minScore"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			minScore = f
		}
	}

	results, err := h.Service.Search(ctx, projectID, query, topK, minScore)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			webjson.Write(w, http.StatusServiceUnavailable, map[string]any{
				"error": "Search is temporarily unavailable",
			})
			return
		}
		h.ErrLog.LogServerError(w, r, "search: query", err, "Search failed")
		return
	}

	webjson.Write(w, http.StatusOK, map[string]any{
		"results":   results,
		"count":     len(results),
		"query":     query,
		"projectId": projectID.Hex(),
		"minScore":  minScore,
	})
}
