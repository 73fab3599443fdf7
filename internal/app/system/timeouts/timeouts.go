// Package timeouts provides centralized timeout values for handler
// operations.
//
// These timeouts are used with context.WithTimeout for database operations
// and other I/O in HTTP handlers. Using centralized values ensures
// consistency and makes it easy to adjust timeouts across the application.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: simple single-document reads or lookups
//   - Medium: list queries, moderate writes, multi-step reads
//   - Long: complex writes, operations touching multiple collections
//   - Search: the full RAG path (embed + vector query), a hard deadline
//   - Chat: an LLM chat completion round trip
package timeouts

import (
	"sync"
	"time"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultSearch = 10 * time.Second
	DefaultChat   = 30 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	search = DefaultSearch
	chat   = DefaultChat
)

// Ping returns the timeout for health checks and connectivity verification.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations like single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for moderate operations like list queries.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for complex operations touching multiple
// collections, such as deletes with cascades and outbox sweeps.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Search returns the deadline for the retrieval-augmented search path.
// The embed call and the vector query share this budget.
func Search() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return search
}

// Chat returns the deadline for an LLM chat completion round trip.
func Chat() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return chat
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Search time.Duration
	Chat   time.Duration
}

// Configure sets custom timeout values during application startup. Zero
// values in the config are ignored, keeping the current values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Search > 0 {
		search = cfg.Search
	}
	if cfg.Chat > 0 {
		chat = cfg.Chat
	}
}

// Reset restores all timeouts to their default values. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
	search = DefaultSearch
	chat = DefaultChat
}
