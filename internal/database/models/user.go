package models

// User is the local mirror of an identity-provider principal. ExternalID is
// the provider's id and is immutable once set; its unique index spans
// soft-deleted rows too, which both serializes concurrent reconciliation of
// the same identity and blocks resurrection of a deleted one. Email
// uniqueness is scoped to active rows so a deleted account frees its
// address for a later sign-up.
type User struct {
	Base
	ExternalID string `gorm:"uniqueIndex;not null" json:"-"`
	Email      string `gorm:"uniqueIndex:idx_users_active_email,where:deleted_at IS NULL;not null" json:"email"`
	Name       string `json:"name"`

	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
