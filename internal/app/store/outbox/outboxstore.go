package outboxstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists pending vector index operations. Task writes enqueue here
// in the same request; a background worker drains the queue, so an index
// outage never loses an update.
type Store struct {
	c           *mongo.Collection
	maxAttempts int
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("vector_sync_ops"),
		maxAttempts: DefaultMaxAttempts,
	}
}

// DefaultMaxAttempts is how many times an op is retried before it is
// dead-lettered, unless overridden via SetMaxAttempts.
const DefaultMaxAttempts = 5

// SetMaxAttempts overrides the retry budget. Values below one are ignored.
func (s *Store) SetMaxAttempts(n int) {
	if n > 0 {
		s.maxAttempts = n
	}
}

// EnqueueUpsert records that the task's vector must be (re)written.
func (s *Store) EnqueueUpsert(ctx context.Context, taskID, projectID primitive.ObjectID) (models.SyncOp, error) {
	return s.enqueue(ctx, models.SyncUpsert, taskID, projectID)
}

// EnqueueDelete records that the task's vector must be removed.
func (s *Store) EnqueueDelete(ctx context.Context, taskID, projectID primitive.ObjectID) (models.SyncOp, error) {
	return s.enqueue(ctx, models.SyncDelete, taskID, projectID)
}

func (s *Store) enqueue(ctx context.Context, kind string, taskID, projectID primitive.ObjectID) (models.SyncOp, error) {
	now := time.Now().UTC()
	op := models.SyncOp{
		ID:        primitive.NewObjectID(),
		OpID:      uuid.NewString(),
		Kind:      kind,
		TaskID:    taskID,
		ProjectID: &projectID,
		State:     models.SyncPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, op); err != nil {
		return models.SyncOp{}, err
	}
	return op, nil
}

// NextPending returns up to limit pending ops, oldest first.
func (s *Store) NextPending(ctx context.Context, limit int64) ([]models.SyncOp, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"state": models.SyncPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ops []models.SyncOp
	if err := cur.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// MarkDone removes a successfully applied op.
func (s *Store) MarkDone(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// MarkFailed bumps the attempt counter and records the error. Once the op
// exhausts its retry budget it moves to the dead state and is no longer
// retried.
func (s *Store) MarkFailed(ctx context.Context, id primitive.ObjectID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	now := time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var op models.SyncOp
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"last_error": msg, "updated_at": now},
		}, opts).Decode(&op)
	if err != nil {
		return err
	}

	if op.Attempts >= s.maxAttempts {
		_, err = s.c.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"state": models.SyncDead, "updated_at": now}})
	}
	return err
}

// CountByState reports queue depth for a given state, for health reporting.
func (s *Store) CountByState(ctx context.Context, state string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"state": state})
}
