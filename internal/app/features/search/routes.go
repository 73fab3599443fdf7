// internal/app/features/search/routes.go
package search

import (
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/system/auth"
)

// Routes mounts the search endpoint under the base path (typically
// "/api/tasks/search" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/{projectId}", h.HandleSearch)

	return r
}
