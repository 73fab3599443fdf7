// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/go-chi/chi/v5"
	"github.com/trelloai/trelloai/internal/app/system/auth"
)

// Routes mounts the auth endpoints under the base path (typically
// "/api/auth" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/me", h.HandleMe)
	})

	return r
}
