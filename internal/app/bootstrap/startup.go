// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/trelloai/trelloai/internal/app/ai"
	outboxstore "github.com/trelloai/trelloai/internal/app/store/outbox"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/system/workers"
	"github.com/trelloai/trelloai/internal/app/vector"
	"go.uber.org/zap"
)

// Shared clients built during Startup and used by BuildHandler and
// Shutdown. WAFFLE runs the lifecycle hooks sequentially, so plain
// package variables are safe here.
var (
	aiClient    *ai.Client
	vectorIndex *vector.Index
	vectorSync  *workers.VectorSync
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. TrelloAI
// builds the AI and vector clients here and starts the outbox worker that
// keeps the vector index in step with task writes.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	aiClient = ai.New(ai.Config{
		APIKey:     appCfg.OpenAIAPIKey,
		BaseURL:    appCfg.OpenAIBaseURL,
		ChatModel:  appCfg.ChatModel,
		EmbedModel: appCfg.EmbedModel,
	}, logger)

	vectorIndex = vector.New(vector.Config{
		Host:   appCfg.PineconeHost,
		APIKey: appCfg.PineconeAPIKey,
	}, logger)

	outbox := outboxstore.New(deps.MongoDatabase)
	outbox.SetMaxAttempts(appCfg.OutboxMaxAttempts)

	vectorSync = workers.NewVectorSync(
		outbox,
		taskstore.New(deps.MongoDatabase),
		aiClient,
		vectorIndex,
		logger,
		appCfg.OutboxInterval,
		int64(appCfg.OutboxBatch),
	)
	vectorSync.Start()

	return nil
}
