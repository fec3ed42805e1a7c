package store

import (
	"context"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/google/uuid"
)

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	return translate(s.db.WithContext(ctx).Create(team).Error)
}

func (s *Store) TeamByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (s *Store) TeamByStripeCustomerID(ctx context.Context, customerID string) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&team).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

// UpdateTeamSubscription replaces the subscription attribute bag in one
// statement. The bag is opaque to the rest of the system and is never
// updated field by field.
func (s *Store) UpdateTeamSubscription(ctx context.Context, teamID uuid.UUID, sub models.SubscriptionUpdate) error {
	res := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ?", teamID).
		Updates(map[string]interface{}{
			"stripe_subscription_id": sub.StripeSubscriptionID,
			"stripe_product_id":      sub.StripeProductID,
			"plan_name":              sub.PlanName,
			"subscription_status":    sub.SubscriptionStatus,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteTeam(ctx context.Context, id uuid.UUID) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Team{}, "id = ?", id).Error)
}
