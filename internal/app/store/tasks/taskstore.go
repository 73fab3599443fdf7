package taskstore

import (
	"context"
	"time"

	"github.com/trelloai/trelloai/internal/app/system/htmlsanitize"
	"github.com/trelloai/trelloai/internal/app/system/normalize"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// Fields carries the caller-editable task attributes. Omitted enum values
// fall back to their defaults on create.
type Fields struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Status      string
	TaskStatus  string
	Assignee    string
}

func (f Fields) sanitized() Fields {
	f.Title = htmlsanitize.StripTags(normalize.Name(f.Title))
	f.Description = htmlsanitize.Sanitize(f.Description)
	f.Category = htmlsanitize.StripTags(normalize.Name(f.Category))
	f.Assignee = htmlsanitize.StripTags(normalize.Name(f.Assignee))
	return f
}

// Create inserts a task owned by the given user. A nil projectID produces
// a project-less task visible only to its creator.
func (s *Store) Create(ctx context.Context, projectID *primitive.ObjectID, creatorID primitive.ObjectID, f Fields) (models.Task, error) {
	f = f.sanitized()
	if !models.ValidPriority(f.Priority) {
		f.Priority = models.PriorityMedium
	}
	if !models.ValidStatus(f.Status) {
		f.Status = models.StatusTodo
	}
	if f.TaskStatus == "" {
		f.TaskStatus = f.Status
	}

	now := time.Now().UTC()
	t := models.Task{
		ID:           primitive.NewObjectID(),
		Title:        f.Title,
		Description:  f.Description,
		Category:     f.Category,
		Priority:     f.Priority,
		Status:       f.Status,
		TaskStatus:   f.TaskStatus,
		Assignee:     f.Assignee,
		ProjectID:    projectID,
		LegacyUserID: creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a single task. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListForProjects returns tasks belonging to any of the given projects,
// plus legacy tasks created by the user before project scoping existed.
func (s *Store) ListForProjects(ctx context.Context, projectIDs []primitive.ObjectID, legacyUserID primitive.ObjectID) ([]models.Task, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"project_id": bson.M{"$in": projectIDs}},
		bson.M{"user_id": legacyUserID, "project_id": nil},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByProject returns the tasks of a single project, newest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update overwrites the editable fields and returns the fresh document.
// Invalid enum values are rejected by leaving the stored value in place.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, f Fields) (*models.Task, error) {
	f = f.sanitized()
	set := bson.M{
		"title":       f.Title,
		"description": f.Description,
		"category":    f.Category,
		"assignee":    f.Assignee,
		"updated_at":  time.Now().UTC(),
	}
	if models.ValidPriority(f.Priority) {
		set["priority"] = f.Priority
	}
	if models.ValidStatus(f.Status) {
		set["status"] = f.Status
	}
	if f.TaskStatus != "" {
		set["task_status"] = f.TaskStatus
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes one task. Reports whether a document was actually deleted
// so the caller can keep the project counter honest.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByProject removes every task in the project and returns their IDs
// so vector cleanup can be queued per task.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}
