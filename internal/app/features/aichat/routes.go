// internal/app/features/aichat/routes.go
package aichat

import (
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/system/auth"
)

// Routes returns the router for the AI chat endpoint.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.HandleChat)
	return r
}
