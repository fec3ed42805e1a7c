package models

import "github.com/google/uuid"

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

// Invitation tracks a pending provider-side invitation locally so the
// reconciler can route the eventual user.created event into the inviting
// team. At most one pending invitation exists per (team, email) pair.
type Invitation struct {
	Base
	TeamID    uuid.UUID `gorm:"type:uuid;index;not null" json:"team_id"`
	Email     string    `gorm:"index;not null" json:"email"`
	Role      string    `gorm:"not null;default:'member'" json:"role"`
	InvitedBy uuid.UUID `gorm:"type:uuid;not null" json:"invited_by"`
	Status    string    `gorm:"not null;default:'pending';index" json:"status"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (Invitation) TableName() string {
	return "invitations"
}
