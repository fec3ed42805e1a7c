// Package reconcile turns identity-provider lifecycle events into
// consistent local state. Delivery is at-least-once and unordered, so both
// handlers are idempotent and neither trusts the event to arrive exactly
// once, in order, or at all.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RobertFent/teambase/internal/activity"
	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/google/uuid"
)

// defaultTeamName is the name given to the fresh team created for an
// uninvited sign-up.
const defaultTeamName = "Team"

var (
	ErrMissingExternalID = errors.New("event carries no external id")
	ErrMissingEmail      = errors.New("event carries no email address")

	// ErrEmailTaken means the event's address already belongs to a
	// different active user. The event fails rather than no-ops so the
	// provider keeps retrying and the collision surfaces instead of
	// leaving the new identity permanently unprovisioned.
	ErrEmailTaken = errors.New("email already belongs to a different active user")
)

type Reconciler struct {
	store    *store.Store
	recorder *activity.Recorder
	logger   *slog.Logger
}

func NewReconciler(st *store.Store, recorder *activity.Recorder, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: st, recorder: recorder, logger: logger}
}

// UserCreated reconciles a user.created event. In one transaction it
// inserts the user and either joins the team named by a pending invitation
// for the address, or creates a fresh team with an owner membership.
//
// Replays are no-op successes: if any row (active or soft-deleted) already
// holds the external id, nothing is written. The soft-deleted case is the
// no-resurrection rule: a deleted identity stays deleted even when a
// retried create event for it arrives late.
func (r *Reconciler) UserCreated(ctx context.Context, externalID, email, firstName, lastName string) error {
	if externalID == "" {
		return ErrMissingExternalID
	}
	if email == "" {
		return ErrMissingEmail
	}

	name := strings.TrimSpace(firstName + " " + lastName)

	existing, err := r.store.UserByExternalIDIncludingDeleted(ctx, externalID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up user %s: %w", externalID, err)
	}
	if existing != nil {
		r.logger.Debug("user already reconciled, skipping", "external_id", externalID)
		return nil
	}

	err = r.store.Transaction(ctx, func(tx *store.Store) error {
		user := &models.User{
			ExternalID: externalID,
			Email:      email,
			Name:       name,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		teamID, role, err := r.placeUser(ctx, tx, user)
		if err != nil {
			return err
		}

		if err := tx.CreateMembership(ctx, &models.Membership{
			TeamID: teamID,
			UserID: user.ID,
			Role:   role,
		}); err != nil {
			return fmt.Errorf("creating membership: %w", err)
		}

		return r.recorder.WithStore(tx).Record(ctx, &teamID, user.ID, models.ActionSignUp, "")
	})
	if err == nil || !errors.Is(err, store.ErrConflict) {
		return err
	}

	// The unique violation aborted the transaction, so the recheck must
	// run outside it. A row now holding the external id means a concurrent
	// delivery of this same event won the race and its rows are the ones
	// we wanted; anything else is an email collision with a different
	// active identity.
	if _, lookupErr := r.store.UserByExternalIDIncludingDeleted(ctx, externalID); lookupErr == nil {
		r.logger.Debug("concurrent reconciliation won the race", "external_id", externalID)
		return nil
	} else if !errors.Is(lookupErr, store.ErrNotFound) {
		return fmt.Errorf("looking up user %s: %w", externalID, lookupErr)
	}

	r.logger.Error("sign-up rejected, email held by another user",
		"external_id", externalID,
		"email", email,
	)
	return fmt.Errorf("reconciling user %s: %w", externalID, ErrEmailTaken)
}

// placeUser decides which team the new user lands in: a pending invitation
// for the address wins and is consumed; otherwise a fresh team is created
// and the user owns it.
func (r *Reconciler) placeUser(ctx context.Context, tx *store.Store, user *models.User) (uuid.UUID, string, error) {
	inv, err := tx.PendingInvitationByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return uuid.Nil, "", fmt.Errorf("looking up invitation: %w", err)
	}

	if inv != nil {
		if _, err := tx.TeamByID(ctx, inv.TeamID); err == nil {
			if err := tx.MarkInvitationAccepted(ctx, inv.ID); err != nil {
				return uuid.Nil, "", fmt.Errorf("accepting invitation: %w", err)
			}
			r.logger.Info("user joined team via invitation",
				"external_id", user.ExternalID,
				"team_id", inv.TeamID,
				"role", inv.Role,
			)
			return inv.TeamID, inv.Role, nil
		}
		// Inviting team vanished between invitation and acceptance; fall
		// through to a fresh team.
		r.logger.Warn("invitation references deleted team", "invitation_id", inv.ID)
	}

	team := &models.Team{Name: defaultTeamName}
	if err := tx.CreateTeam(ctx, team); err != nil {
		return uuid.Nil, "", fmt.Errorf("creating team: %w", err)
	}
	return team.ID, models.RoleOwner, nil
}

// UserDeleted reconciles a user.deleted event. In one transaction it
// soft-deletes the user's active memberships and the user, then
// soft-deletes each touched team left without active members. Unknown or
// already-deleted identities are no-op successes.
func (r *Reconciler) UserDeleted(ctx context.Context, externalID string) error {
	if externalID == "" {
		return ErrMissingExternalID
	}

	user, err := r.store.UserByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Debug("nothing to reconcile for deleted user", "external_id", externalID)
			return nil
		}
		return fmt.Errorf("looking up user %s: %w", externalID, err)
	}

	return r.store.Transaction(ctx, func(tx *store.Store) error {
		memberships, err := tx.ActiveMembershipsForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("listing memberships: %w", err)
		}

		for _, m := range memberships {
			if err := tx.SoftDeleteMembership(ctx, m.ID); err != nil {
				return fmt.Errorf("removing membership: %w", err)
			}
		}

		if err := tx.SoftDeleteUser(ctx, user.ID); err != nil {
			return fmt.Errorf("removing user: %w", err)
		}

		for _, m := range memberships {
			remaining, err := tx.CountActiveMemberships(ctx, m.TeamID)
			if err != nil {
				return fmt.Errorf("counting members: %w", err)
			}
			if remaining == 0 {
				if err := tx.SoftDeleteTeam(ctx, m.TeamID); err != nil {
					return fmt.Errorf("removing empty team: %w", err)
				}
			}
		}

		var teamID *uuid.UUID
		if len(memberships) > 0 {
			teamID = &memberships[0].TeamID
		}
		return r.recorder.WithStore(tx).Record(ctx, teamID, user.ID, models.ActionDeleteAccount, "")
	})
}
