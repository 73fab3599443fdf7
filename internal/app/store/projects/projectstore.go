package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	userstore "github.com/trelloai/trelloai/internal/app/store/users"
	"github.com/trelloai/trelloai/internal/app/system/htmlsanitize"
	"github.com/trelloai/trelloai/internal/app/system/normalize"
	"github.com/trelloai/trelloai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c     *mongo.Collection
	users *userstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("projects"),
		users: userstore.New(db),
	}
}

var (
	// ErrDuplicateMember is returned when the email already appears in the project's member list.
	ErrDuplicateMember = errors.New("this person is already a member of the project")
	// ErrNameRequired is returned by Create and UpdateFields when the name is blank after sanitizing.
	ErrNameRequired = errors.New("project name is required")
	errBadRole      = errors.New(`role must be "owner", "editor", or "viewer"`)
)

// accessFilter matches projects the user can see: legacy owner, linked
// member, or pending member by email. Both ownership models are checked on
// every access for backward compatibility.
func accessFilter(userID primitive.ObjectID, email string) bson.M {
	or := []bson.M{
		{"user_id": userID},
		{"members.user": userID},
	}
	if email != "" {
		or = append(or, bson.M{"members.email": email})
	}
	return bson.M{"$or": or}
}

// Create inserts a project with the creator as the sole owner member.
// The legacy owner field is set for compatibility with old readers.
func (s *Store) Create(ctx context.Context, name, description string, creatorID primitive.ObjectID, creatorEmail string) (models.Project, error) {
	name = htmlsanitize.StripTags(normalize.Name(name))
	if name == "" {
		return models.Project{}, ErrNameRequired
	}

	now := time.Now().UTC()
	p := models.Project{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		Description:   htmlsanitize.Sanitize(description),
		LegacyOwnerID: &creatorID,
		Members: []models.Member{{
			UserID:   &creatorID,
			Role:     models.RoleOwner,
			Email:    normalize.Email(creatorEmail),
			JoinedAt: now,
		}},
		TaskCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a single project. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAccessible returns every project the user can see, newest first.
func (s *Store) ListAccessible(ctx context.Context, userID primitive.ObjectID, email string) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, accessFilter(userID, normalize.Email(email)), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateFields applies the whitelisted name/description updates and returns
// the fresh document. Nil pointers leave the field untouched.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, name, description *string) (*models.Project, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil {
		clean := htmlsanitize.StripTags(normalize.Name(*name))
		if clean == "" {
			return nil, ErrNameRequired
		}
		set["name"] = clean
		set["name_ci"] = text.Fold(clean)
	}
	if description != nil {
		set["description"] = htmlsanitize.Sanitize(*description)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the project document. Task cascade is the caller's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// AddMember appends a member entry after checking for a duplicate email.
// If a registered user carries that email the entry is linked; otherwise it
// stays pending (nil user) until that email registers.
func (s *Store) AddMember(ctx context.Context, projectID primitive.ObjectID, email, role string) (models.Member, error) {
	role = normalize.Role(role)
	if role == "" {
		role = models.RoleEditor
	}
	if !models.ValidRole(role) {
		return models.Member{}, errBadRole
	}
	email = normalize.Email(email)

	m := models.Member{
		Role:     role,
		Email:    email,
		JoinedAt: time.Now().UTC(),
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		m.UserID = &existing.ID
	case errors.Is(err, mongo.ErrNoDocuments):
		// pending invitation
	default:
		return models.Member{}, err
	}

	// The filter excludes projects that already carry the email, so the
	// push and the duplicate check are a single atomic operation.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": projectID, "members.email": bson.M{"$ne": email}},
		bson.M{
			"$push": bson.M{"members": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return models.Member{}, err
	}
	if res.MatchedCount == 0 {
		return models.Member{}, ErrDuplicateMember
	}
	return m, nil
}

// LinkPendingMemberships attaches the new user's ID to any member entries
// that were invited by email before the account existed. Called once at
// registration.
func (s *Store) LinkPendingMemberships(ctx context.Context, userID primitive.ObjectID, email string) (int64, error) {
	email = normalize.Email(email)
	res, err := s.c.UpdateMany(ctx,
		bson.M{"members": bson.M{"$elemMatch": bson.M{"email": email, "user": nil}}},
		bson.M{"$set": bson.M{
			"members.$.user": userID,
			"updated_at":     time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// IncTaskCount bumps the denormalized counter. Best-effort: callers ignore
// drift under concurrent mutation.
func (s *Store) IncTaskCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"task_count": 1}})
	return err
}

// DecTaskCount decrements the counter, floored at zero. The filter keeps a
// concurrent double-delete from driving the value negative.
func (s *Store) DecTaskCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "task_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"task_count": -1}})
	return err
}

// Populate fills Member.User display data from the users collection.
func (s *Store) Populate(ctx context.Context, projects ...*models.Project) error {
	var ids []primitive.ObjectID
	seen := map[primitive.ObjectID]struct{}{}
	for _, p := range projects {
		for _, m := range p.Members {
			if m.UserID == nil {
				continue
			}
			if _, ok := seen[*m.UserID]; ok {
				continue
			}
			seen[*m.UserID] = struct{}{}
			ids = append(ids, *m.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	byID, err := s.users.PublicByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for _, p := range projects {
		for i := range p.Members {
			if p.Members[i].UserID == nil {
				continue
			}
			if u, ok := byID[*p.Members[i].UserID]; ok {
				pu := u
				p.Members[i].User = &pu
			}
		}
	}
	return nil
}

// BackfillLegacyOwners inserts an owner member entry on projects that only
// carry the legacy owner field. One-time migration run at startup; projects
// already holding members are untouched.
func (s *Store) BackfillLegacyOwners(ctx context.Context) (int64, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"user_id": bson.M{"$ne": nil},
		"$or": bson.A{
			bson.M{"members": bson.M{"$size": 0}},
			bson.M{"members": bson.M{"$exists": false}},
		},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var fixed int64
	for cur.Next(ctx) {
		var p models.Project
		if err := cur.Decode(&p); err != nil {
			return fixed, err
		}
		if p.LegacyOwnerID == nil {
			continue
		}

		owner, err := s.users.GetByID(ctx, *p.LegacyOwnerID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue // orphaned legacy owner, leave the project alone
			}
			return fixed, err
		}

		m := models.Member{
			UserID:   p.LegacyOwnerID,
			Role:     models.RoleOwner,
			Email:    owner.Email,
			JoinedAt: p.CreatedAt,
		}
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": p.ID, "members.user": bson.M{"$ne": *p.LegacyOwnerID}},
			bson.M{"$push": bson.M{"members": m}})
		if err != nil {
			return fixed, err
		}
		fixed += res.ModifiedCount
	}
	return fixed, cur.Err()
}
