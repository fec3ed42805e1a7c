package store

import (
	"context"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/google/uuid"
)

// AppendActivity is insert-only; activity rows are never updated or deleted.
func (s *Store) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *Store) RecentActivityForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.ActivityLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
