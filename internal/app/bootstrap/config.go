// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TrelloAI.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TRELLOAI_MONGO_URI, TRELLOAI_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "trelloai", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Auth token signing key (must be strong in production)"},
	{Name: "cookie_domain", Default: "", Desc: "Auth cookie domain (blank means current host)"},

	// LLM provider configuration
	{Name: "openai_api_key", Default: "", Desc: "API key for the chat/embedding provider (blank disables AI features)"},
	{Name: "openai_base_url", Default: "", Desc: "Override provider base URL (blank means api.openai.com)"},
	{Name: "chat_model", Default: "gpt-4o-mini", Desc: "Chat completion model for task extraction"},
	{Name: "embed_model", Default: "text-embedding-3-small", Desc: "Embedding model for task vectors"},

	// Pinecone vector index configuration
	{Name: "pinecone_host", Default: "", Desc: "Pinecone index host URL (blank disables vector search)"},
	{Name: "pinecone_api_key", Default: "", Desc: "Pinecone API key"},

	// Vector sync outbox worker
	{Name: "outbox_interval", Default: "15s", Desc: "How often the vector sync worker drains the outbox (e.g., 15s, 1m)"},
	{Name: "outbox_batch", Default: 20, Desc: "Max outbox operations per worker sweep"},
	{Name: "outbox_max_attempts", Default: 5, Desc: "Retries before a failed outbox op is dead-lettered"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TRELLOAI_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TRELLOAI", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:    appValues.String("jwt_secret"),
		CookieDomain: appValues.String("cookie_domain"),

		OpenAIAPIKey:  appValues.String("openai_api_key"),
		OpenAIBaseURL: appValues.String("openai_base_url"),
		ChatModel:     appValues.String("chat_model"),
		EmbedModel:    appValues.String("embed_model"),

		PineconeHost:   appValues.String("pinecone_host"),
		PineconeAPIKey: appValues.String("pinecone_api_key"),

		OutboxInterval:    appValues.Duration("outbox_interval", 15*time.Second),
		OutboxBatch:       appValues.Int("outbox_batch"),
		OutboxMaxAttempts: appValues.Int("outbox_max_attempts"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// TrelloAI validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect. The AI and vector keys
// are optional: the service runs in degraded mode without them, so
// their absence is logged rather than fatal.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.OutboxBatch <= 0 {
		return fmt.Errorf("outbox_batch must be positive, got %d", appCfg.OutboxBatch)
	}
	if appCfg.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("outbox_max_attempts must be positive, got %d", appCfg.OutboxMaxAttempts)
	}

	if appCfg.OpenAIAPIKey == "" {
		logger.Warn("openai_api_key not set; chat falls back to canned drafts and search is unavailable")
	}
	if appCfg.PineconeHost == "" || appCfg.PineconeAPIKey == "" {
		logger.Warn("pinecone not configured; task vectors are not synced and search is unavailable")
	}

	return nil
}
