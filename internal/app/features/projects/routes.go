// internal/app/features/projects/routes.go
package projects

import (
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/system/auth"
)

// Routes mounts the project endpoints under the base path (typically
// "/api/projects" from bootstrap). All routes require a signed-in caller;
// per-project role checks happen in the handlers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	r.Get("/{id}/tasks", h.HandleListTasks)

	r.Get("/{id}/members", h.HandleListMembers)
	r.Post("/{id}/members", h.HandleAddMember)

	return r
}
