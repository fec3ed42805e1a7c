package store

import (
	"context"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/google/uuid"
)

func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	return translate(s.db.WithContext(ctx).Create(inv).Error)
}

func (s *Store) PendingInvitation(ctx context.Context, teamID uuid.UUID, email string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).
		Where("team_id = ? AND email = ? AND status = ?", teamID, email, models.InvitationPending).
		First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

// PendingInvitationByEmail is the reconciler's lookup on user.created: the
// oldest pending invitation for the address decides which team the new
// identity joins.
func (s *Store) PendingInvitationByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.InvitationPending).
		Order("created_at asc").
		First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *Store) MarkInvitationAccepted(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Update("status", models.InvitationAccepted)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
