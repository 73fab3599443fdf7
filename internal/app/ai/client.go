package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.uber.org/zap"
)

// Config holds the provider settings for chat completions and embeddings.
type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

// Client wraps the OpenAI-compatible API. The underlying SDK client is
// built lazily on first use so the service can start, and serve the
// endpoints that do not need it, without an API key.
type Client struct {
	cfg Config
	log *zap.Logger

	once    sync.Once
	api     *openai.Client
	initErr error
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	return &Client{cfg: cfg, log: log}
}

var ErrNotConfigured = errors.New("ai provider API key is not configured")

func (c *Client) client() (*openai.Client, error) {
	c.once.Do(func() {
		if c.cfg.APIKey == "" {
			c.initErr = ErrNotConfigured
			return
		}
		conf := openai.DefaultConfig(c.cfg.APIKey)
		if c.cfg.BaseURL != "" {
			conf.BaseURL = c.cfg.BaseURL
		}
		c.api = openai.NewClientWithConfig(conf)
		c.log.Info("ai client initialized",
			zap.String("chat_model", c.cfg.ChatModel),
			zap.String("embed_model", c.cfg.EmbedModel))
	})
	return c.api, c.initErr
}

const systemPromptFmt = `You are an AI project management assistant. Help users create and manage tasks for their projects.

Current project context: %s

IMPORTANT: Always respond with valid JSON only. No markdown, no extra text.

The user is requesting to create new tasks. Respond with:
{
  "tasks": [
    {
      "category": "string",
      "title": "string",
      "description": "string",
      "priority": "low",
      "taskStatus": "string",
      "assignee": "string",
      "status": "todo"
    }
  ],
  "message": "string"
}`

// ProposeTasks asks the model to turn a chat message into task drafts.
// The raw completion text is returned for the caller to parse; any
// provider failure or empty completion surfaces as an error.
func (c *Client) ProposeTasks(ctx context.Context, message, projectContext string) (string, error) {
	api, err := c.client()
	if err != nil {
		return "", err
	}

	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPromptFmt, projectContext)},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion from provider")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}

	resp, err := api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding from provider")
	}
	return resp.Data[0].Embedding, nil
}

// TaskText joins the searchable task fields into the text that gets
// embedded for vector search.
func TaskText(t models.Task) string {
	parts := make([]string, 0, 6)
	for _, s := range []string{t.Title, t.Description, t.Category, t.Priority, t.Status, t.Assignee} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
