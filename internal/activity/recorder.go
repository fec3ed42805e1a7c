// Package activity appends the immutable audit trail. Whether a failed
// append aborts the surrounding action is the caller's decision: the
// reconciler records inside its transaction, the gateway treats the append
// as part of the action it logs.
package activity

import (
	"context"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/google/uuid"
)

type Recorder struct {
	store *store.Store
}

func NewRecorder(st *store.Store) *Recorder {
	return &Recorder{store: st}
}

// WithStore rebinds the recorder, typically to a transaction-bound store so
// the log entry commits or rolls back with the mutation it describes.
func (r *Recorder) WithStore(st *store.Store) *Recorder {
	return &Recorder{store: st}
}

// Record appends one entry. A nil teamID is a deliberate no-op: actions not
// tied to a team are not logged.
func (r *Recorder) Record(ctx context.Context, teamID *uuid.UUID, userID uuid.UUID, action, ipAddress string) error {
	if teamID == nil {
		return nil
	}
	return r.store.AppendActivity(ctx, &models.ActivityLog{
		TeamID:    teamID,
		UserID:    userID,
		Action:    action,
		IPAddress: ipAddress,
	})
}
