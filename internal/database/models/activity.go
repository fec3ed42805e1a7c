package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity action kinds.
const (
	ActionSignUp           = "SIGN_UP"
	ActionUpdateAccount    = "UPDATE_ACCOUNT"
	ActionInviteTeamMember = "INVITE_TEAM_MEMBER"
	ActionRemoveTeamMember = "REMOVE_TEAM_MEMBER"
	ActionDeleteAccount    = "DELETE_ACCOUNT"
)

// ActivityLog is append-only: rows are never updated or deleted by
// application logic. TeamID is nullable so that entries outlive the team
// they reference.
type ActivityLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TeamID    *uuid.UUID `gorm:"type:uuid;index" json:"team_id,omitempty"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Action    string     `gorm:"not null" json:"action"`
	IPAddress string     `json:"ip_address,omitempty"`
	Timestamp time.Time  `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
