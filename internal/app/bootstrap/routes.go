// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	accountsfeature "github.com/trelloai/trelloai/internal/app/features/accounts"
	aichatfeature "github.com/trelloai/trelloai/internal/app/features/aichat"
	healthfeature "github.com/trelloai/trelloai/internal/app/features/health"
	projectsfeature "github.com/trelloai/trelloai/internal/app/features/projects"
	searchfeature "github.com/trelloai/trelloai/internal/app/features/search"
	tasksfeature "github.com/trelloai/trelloai/internal/app/features/tasks"
	outboxstore "github.com/trelloai/trelloai/internal/app/store/outbox"
	projectstore "github.com/trelloai/trelloai/internal/app/store/projects"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	userstore "github.com/trelloai/trelloai/internal/app/store/users"
	"github.com/trelloai/trelloai/internal/app/system/auth"
	"github.com/trelloai/trelloai/internal/app/system/webjson"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// TrelloAI creates the auth token manager, applies the session middleware,
// and mounts the JSON feature routers: accounts, projects, tasks, vector
// search, and AI chat.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	authMgr, err := auth.NewManager(appCfg.JWTSecret, appCfg.CookieDomain, secure, logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	errLog := webjson.NewErrorLogger(logger, coreCfg.Env == "prod")

	users := userstore.New(deps.MongoDatabase)
	projects := projectstore.New(deps.MongoDatabase)
	tasks := taskstore.New(deps.MongoDatabase)
	outbox := outboxstore.New(deps.MongoDatabase)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(authMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, outbox, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Registration, login, logout, current user
	accountsHandler := accountsfeature.NewHandler(users, projects, authMgr, errLog, logger)
	r.Mount("/api/auth", accountsfeature.Routes(accountsHandler))

	// Project CRUD and membership
	projectsHandler := projectsfeature.NewHandler(projects, tasks, outbox, errLog, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler))

	// Task CRUD
	tasksHandler := tasksfeature.NewHandler(tasks, projects, outbox, errLog, logger)
	r.Mount("/api/taskSave", tasksfeature.Routes(tasksHandler))

	// Retrieval-augmented task search
	searchSvc := searchfeature.NewService(aiClient, vectorIndex, tasks, logger)
	searchHandler := searchfeature.NewHandler(searchSvc, projects, errLog, logger)
	r.Mount("/api/tasks/search", searchfeature.Routes(searchHandler))

	// AI chat: task extraction and conversational lookup
	aichatHandler := aichatfeature.NewHandler(aiClient, searchSvc, projects, errLog, logger)
	r.Mount("/api/ai-chat", aichatfeature.Routes(aichatHandler))

	return r, nil
}
