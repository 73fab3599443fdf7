// internal/domain/models/syncop.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncOp kinds.
const (
	SyncUpsert = "upsert"
	SyncDelete = "delete"
)

// SyncOp states. Successful ops are deleted; ops that exhaust their retry
// budget are kept in StateDead with the last error for inspection.
const (
	SyncPending = "pending"
	SyncDead    = "dead"
)

// SyncOp is one outbox row for the vector index. Task writes enqueue a row
// instead of calling the index inline, and the background worker drains them.
type SyncOp struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	OpID      string              `bson:"op_id"` // uuid, stable across retries
	Kind      string              `bson:"kind"`  // upsert | delete
	TaskID    primitive.ObjectID  `bson:"task_id"`
	ProjectID *primitive.ObjectID `bson:"project_id,omitempty"`
	State     string              `bson:"state"`
	Attempts  int                 `bson:"attempts"`
	LastError string              `bson:"last_error,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
