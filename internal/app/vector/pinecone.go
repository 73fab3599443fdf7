package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Index talks to a Pinecone index over its data-plane REST API.
type Index struct {
	host   string
	apiKey string
	http   *http.Client
	log    *zap.Logger
}

// Config holds the index connection settings. Host is the full index host
// URL, e.g. https://task-vectors-abc123.svc.us-east-1.pinecone.io.
type Config struct {
	Host    string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config, log *zap.Logger) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Index{
		host:   cfg.Host,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Configured reports whether the index has connection settings. The
// service runs without vector search when it does not.
func (ix *Index) Configured() bool {
	return ix.host != "" && ix.apiKey != ""
}

var ErrNotConfigured = errors.New("vector index is not configured")

// Vector is one embedding with its task metadata.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Upsert writes vectors to the index, replacing any with the same IDs.
func (ix *Index) Upsert(ctx context.Context, vectors ...Vector) error {
	if !ix.Configured() {
		return ErrNotConfigured
	}
	body := map[string]any{"vectors": vectors}
	return ix.post(ctx, "/vectors/upsert", body, nil)
}

// Delete removes the vectors with the given IDs.
func (ix *Index) Delete(ctx context.Context, ids ...string) error {
	if !ix.Configured() {
		return ErrNotConfigured
	}
	body := map[string]any{"ids": ids}
	return ix.post(ctx, "/vectors/delete", body, nil)
}

// Query returns the topK nearest vectors whose metadata projectId matches.
func (ix *Index) Query(ctx context.Context, vec []float32, topK int, projectID string) ([]Match, error) {
	if !ix.Configured() {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"vector":          vec,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
		"filter":          map[string]any{"projectId": projectID},
	}
	var out struct {
		Matches []Match `json:"matches"`
	}
	if err := ix.post(ctx, "/query", body, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

func (ix *Index) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ix.host+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", ix.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := ix.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pinecone %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode pinecone response: %w", err)
	}
	return nil
}
