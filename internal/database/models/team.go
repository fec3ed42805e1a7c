package models

// Team is the tenant grouping. The Stripe fields form an opaque subscription
// attribute bag that is only ever updated atomically as a unit.
type Team struct {
	Base
	Name string `gorm:"not null" json:"name"`

	StripeCustomerID     *string `gorm:"uniqueIndex" json:"-"`
	StripeSubscriptionID *string `gorm:"uniqueIndex" json:"-"`
	StripeProductID      *string `json:"-"`
	PlanName             *string `json:"plan_name,omitempty"`
	SubscriptionStatus   *string `json:"subscription_status,omitempty"`

	Memberships []Membership `gorm:"foreignKey:TeamID" json:"-"`
}

func (Team) TableName() string {
	return "teams"
}

// SubscriptionUpdate carries the subscription attribute bag for an atomic
// team update.
type SubscriptionUpdate struct {
	StripeSubscriptionID *string
	StripeProductID      *string
	PlanName             *string
	SubscriptionStatus   *string
}
