package store

import (
	"context"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/google/uuid"
)

func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	return translate(s.db.WithContext(ctx).Create(m).Error)
}

func (s *Store) MembershipByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ActiveMembershipForUser returns the user's single active membership, or
// ErrNotFound when the user is not on any team.
func (s *Store) ActiveMembershipForUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) ActiveMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	var ms []models.Membership
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&ms).Error; err != nil {
		return nil, translate(err)
	}
	return ms, nil
}

func (s *Store) ActiveMembershipsForTeam(ctx context.Context, teamID uuid.UUID) ([]models.Membership, error) {
	var ms []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Find(&ms).Error; err != nil {
		return nil, translate(err)
	}
	return ms, nil
}

func (s *Store) CountActiveMemberships(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("team_id = ?", teamID).
		Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *Store) SoftDeleteMembership(ctx context.Context, id uuid.UUID) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Membership{}, "id = ?", id).Error)
}
