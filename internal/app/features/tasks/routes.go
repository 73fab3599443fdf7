// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/system/auth"
)

// Routes mounts the task endpoints under the base path (typically
// "/api/taskSave" from bootstrap, matching the path the client uses).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
