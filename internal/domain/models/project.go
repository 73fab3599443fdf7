// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values for project members, ordered by rank.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleOwner  = "owner"
)

// RoleRank maps a role to its position in the hierarchy. An action that
// requires role R is permitted iff RoleRank[actual] >= RoleRank[R].
var RoleRank = map[string]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// ValidRole reports whether role is one of owner, editor, viewer.
func ValidRole(role string) bool {
	_, ok := RoleRank[role]
	return ok
}

// Member is one entry in a project's members list. User is nil for pending
// invitations (email added before that address registered).
type Member struct {
	UserID   *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	Role     string              `bson:"role" json:"role"`
	Email    string              `bson:"email" json:"email"`
	JoinedAt time.Time           `bson:"joined_at" json:"joined_at"`

	// Populated from the users collection for display; never persisted.
	User *PublicUser `bson:"-" json:"userInfo,omitempty"`
}

// Project is a kanban board. LegacyOwnerID predates the members list and is
// still honored on every access check; TaskCount is a denormalized counter
// maintained best-effort by the task store.
type Project struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name          string              `bson:"name" json:"name"`
	NameCI        string              `bson:"name_ci" json:"-"`
	Description   string              `bson:"description" json:"description"`
	LegacyOwnerID *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	Members       []Member            `bson:"members" json:"members"`
	TaskCount     int64               `bson:"task_count" json:"taskCount"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MemberByUserID returns the member entry linked to userID, or nil.
func (p *Project) MemberByUserID(userID primitive.ObjectID) *Member {
	for i := range p.Members {
		if p.Members[i].UserID != nil && *p.Members[i].UserID == userID {
			return &p.Members[i]
		}
	}
	return nil
}

// MemberByEmail returns the member entry for the lowercase email, or nil.
func (p *Project) MemberByEmail(email string) *Member {
	for i := range p.Members {
		if p.Members[i].Email == email {
			return &p.Members[i]
		}
	}
	return nil
}
