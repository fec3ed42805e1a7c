package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ValidRole reports whether role is one of the accepted membership roles.
func ValidRole(role string) bool {
	return role == RoleOwner || role == RoleMember
}

// Membership joins a user to a team with a role. At most one active
// membership exists per (user, team) pair; in the current product a user
// holds at most one active membership overall.
type Membership struct {
	Base
	TeamID   uuid.UUID `gorm:"type:uuid;index;not null" json:"team_id"`
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Role     string    `gorm:"not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Membership) TableName() string {
	return "team_members"
}
