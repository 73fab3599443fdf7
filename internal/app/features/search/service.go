// internal/app/features/search/service.go
package search

import (
	"context"
	"errors"

	"github.com/trelloai/trelloai/internal/app/ai"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/vector"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is how many matches to request when the caller does not say.
	DefaultTopK = 10
	// DefaultMinScore filters out weak matches.
	DefaultMinScore = 0.7
)

// Result is one search hit. Task is loaded fresh from the database so the
// caller sees current fields even when the vector metadata is stale; it is
// nil when the task was deleted after indexing.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Task     *models.Task      `json:"task,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Service performs retrieval-augmented task search: embed the query, find
// nearest task vectors scoped to the project, hydrate the tasks.
type Service struct {
	AI    *ai.Client
	Index *vector.Index
	Tasks *taskstore.Store
	Log   *zap.Logger
}

func NewService(aiClient *ai.Client, index *vector.Index, tasks *taskstore.Store, logger *zap.Logger) *Service {
	return &Service{AI: aiClient, Index: index, Tasks: tasks, Log: logger}
}

// ErrUnavailable is returned when the embedding provider or the vector
// index is not configured.
var ErrUnavailable = errors.New("search is not available")

// Search returns project-scoped task matches above minScore, strongest
// first. An empty result is not an error.
func (s *Service) Search(ctx context.Context, projectID primitive.ObjectID, query string, topK int, minScore float64) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := s.AI.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	matches, err := s.Index.Query(ctx, queryVec, topK, projectID.Hex())
	if err != nil {
		if errors.Is(err, vector.ErrNotConfigured) {
			return nil, ErrUnavailable
		}
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		res := Result{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
		if taskID, err := primitive.ObjectIDFromHex(m.ID); err == nil {
			task, err := s.Tasks.GetByID(ctx, taskID)
			switch {
			case err == nil:
				res.Task = task
			case errors.Is(err, mongo.ErrNoDocuments):
				// vector outlived its task; skip the stale hit
				continue
			default:
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}
