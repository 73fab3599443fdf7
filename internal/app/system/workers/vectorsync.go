// internal/app/system/workers/vectorsync.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trelloai/trelloai/internal/app/ai"
	outboxstore "github.com/trelloai/trelloai/internal/app/store/outbox"
	taskstore "github.com/trelloai/trelloai/internal/app/store/tasks"
	"github.com/trelloai/trelloai/internal/app/vector"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// VectorSync is a background worker that drains the vector sync outbox,
// pushing task embeddings to the vector index. Task writes only enqueue;
// this worker is the sole writer to the index, so an index outage delays
// search freshness instead of failing requests.
type VectorSync struct {
	outbox   *outboxstore.Store
	tasks    *taskstore.Store
	ai       *ai.Client
	index    *vector.Index
	log      *zap.Logger
	interval time.Duration
	batch    int64
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewVectorSync creates a new vector sync worker.
func NewVectorSync(outbox *outboxstore.Store, tasks *taskstore.Store, aiClient *ai.Client, index *vector.Index, logger *zap.Logger, interval time.Duration, batch int64) *VectorSync {
	if batch <= 0 {
		batch = 20
	}
	return &VectorSync{
		outbox:   outbox,
		tasks:    tasks,
		ai:       aiClient,
		index:    index,
		log:      logger,
		interval: interval,
		batch:    batch,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background drain loop.
func (w *VectorSync) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("vector sync worker started",
		zap.Duration("interval", w.interval),
		zap.Int64("batch", w.batch))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *VectorSync) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("vector sync worker stopped")
}

func (w *VectorSync) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			w.Drain(ctx)
			cancel()
		}
	}
}

// Drain processes one batch of pending ops. Failed ops stay queued with an
// incremented attempt count until the outbox dead-letters them.
func (w *VectorSync) Drain(ctx context.Context) {
	ops, err := w.outbox.NextPending(ctx, w.batch)
	if err != nil {
		w.log.Error("failed to load pending sync ops", zap.Error(err))
		return
	}

	for _, op := range ops {
		if err := w.apply(ctx, op); err != nil {
			w.log.Warn("vector sync op failed",
				zap.String("op_id", op.OpID),
				zap.String("kind", op.Kind),
				zap.Int("attempts", op.Attempts+1),
				zap.Error(err))
			if err := w.outbox.MarkFailed(ctx, op.ID, err); err != nil {
				w.log.Error("failed to record sync op failure", zap.Error(err))
			}
			continue
		}
		if err := w.outbox.MarkDone(ctx, op.ID); err != nil {
			w.log.Error("failed to clear completed sync op", zap.Error(err))
		}
	}
}

func (w *VectorSync) apply(ctx context.Context, op models.SyncOp) error {
	if op.Kind == models.SyncDelete {
		return w.index.Delete(ctx, op.TaskID.Hex())
	}

	task, err := w.tasks.GetByID(ctx, op.TaskID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// task deleted after the upsert was queued
			return w.index.Delete(ctx, op.TaskID.Hex())
		}
		return err
	}

	embedding, err := w.ai.Embed(ctx, ai.TaskText(*task))
	if err != nil {
		return err
	}

	return w.index.Upsert(ctx, vector.Vector{
		ID:       task.ID.Hex(),
		Values:   embedding,
		Metadata: taskMetadata(task),
	})
}

func taskMetadata(t *models.Task) map[string]string {
	md := map[string]string{
		"userId":      t.LegacyUserID.Hex(),
		"title":       t.Title,
		"description": t.Description,
		"category":    t.Category,
		"priority":    t.Priority,
		"status":      t.Status,
		"taskStatus":  t.TaskStatus,
		"assignee":    t.Assignee,
		"createdAt":   t.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.ProjectID != nil {
		md["projectId"] = t.ProjectID.Hex()
	}
	return md
}
