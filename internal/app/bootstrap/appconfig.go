// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where you put everything specific to YOUR application.
// The struct is passed to most lifecycle hooks, so any configuration
// needed during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Auth token configuration
	JWTSecret    string // Secret key for signing auth tokens (must be strong in production)
	CookieDomain string // Cookie domain (blank means current host)

	// OpenAI-compatible LLM provider configuration. A blank API key runs
	// the service in degraded mode: chat falls back to canned drafts and
	// search returns 503.
	OpenAIAPIKey  string // API key for the chat/embedding provider
	OpenAIBaseURL string // Override provider base URL (blank means api.openai.com)
	ChatModel     string // Chat completion model for task extraction
	EmbedModel    string // Embedding model for task vectors

	// Pinecone vector index configuration. A blank host disables search.
	PineconeHost   string // Index host URL (e.g., https://tasks-xxxx.svc.pinecone.io)
	PineconeAPIKey string // Pinecone API key

	// Vector sync outbox worker
	OutboxInterval    time.Duration // How often the worker drains the outbox
	OutboxBatch       int           // Max operations per sweep
	OutboxMaxAttempts int           // Retries before a failed op is dead-lettered
}
