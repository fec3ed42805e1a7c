// Package team wraps the interactive write operations with authorization
// and validation before anything touches the store.
package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RobertFent/teambase/internal/activity"
	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotOnTeam     = errors.New("user is not part of a team")
	ErrEmailTaken    = errors.New("email is already in use")
	ErrAlreadyMember = errors.New("user is already a member of this team")
	ErrInvitePending = errors.New("an invitation has already been sent to this email")
	ErrForbidden     = errors.New("member belongs to a different team")
	ErrSelfRemoval   = errors.New("cannot remove own membership")

	// ErrDeprovisionPending is the partial-failure outcome of member
	// removal: the local soft delete committed but the provider-side
	// deletion did not, and a queued retry now owns closing that gap.
	ErrDeprovisionPending = errors.New("member removed locally, external account deletion still pending")
)

// DeprovisionEnqueuer schedules a provider-side account deletion retry.
type DeprovisionEnqueuer interface {
	EnqueueDeprovision(ctx context.Context, externalID string) error
}

type Service struct {
	store    *store.Store
	provider identity.Provider
	recorder *activity.Recorder
	queue    DeprovisionEnqueuer
	logger   *slog.Logger
}

func NewService(st *store.Store, provider identity.Provider, recorder *activity.Recorder, queue DeprovisionEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		provider: provider,
		recorder: recorder,
		queue:    queue,
		logger:   logger,
	}
}

// UpdateAccount updates the caller's own profile. Self-only, so no team
// authorization applies; the activity entry lands against the caller's
// current team when there is one.
func (s *Service) UpdateAccount(ctx context.Context, caller *models.User, name, email, ipAddress string) error {
	if err := s.store.UpdateUserProfile(ctx, caller.ID, name, email); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrEmailTaken
		}
		return fmt.Errorf("updating account: %w", err)
	}

	teamID := s.callerTeamID(ctx, caller)
	if err := s.recorder.Record(ctx, teamID, caller.ID, models.ActionUpdateAccount, ipAddress); err != nil {
		return fmt.Errorf("recording account update: %w", err)
	}
	return nil
}

// InviteTeamMember asks the provider to deliver the invitation, then
// records it locally as pending. The provider call comes first: a failed
// delivery leaves no local row behind, so the caller can simply retry. The
// reverse gap (delivered but not recorded) costs at most a duplicate
// provider invitation on the retry.
func (s *Service) InviteTeamMember(ctx context.Context, caller *models.User, email, role, ipAddress string) error {
	membership, err := s.store.ActiveMembershipForUser(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotOnTeam
		}
		return fmt.Errorf("resolving caller team: %w", err)
	}

	if existing, err := s.store.UserByEmail(ctx, email); err == nil {
		if _, err := s.memberOfTeam(ctx, existing.ID, membership.TeamID); err == nil {
			return ErrAlreadyMember
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up invitee: %w", err)
	}

	if _, err := s.store.PendingInvitation(ctx, membership.TeamID, email); err == nil {
		return ErrInvitePending
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up invitation: %w", err)
	}

	if err := s.provider.CreateInvitation(ctx, email, membership.TeamID, role); err != nil {
		return fmt.Errorf("sending invitation: %w", err)
	}

	if err := s.store.CreateInvitation(ctx, &models.Invitation{
		TeamID:    membership.TeamID,
		Email:     email,
		Role:      role,
		InvitedBy: caller.ID,
		Status:    models.InvitationPending,
	}); err != nil {
		return fmt.Errorf("creating invitation: %w", err)
	}

	if err := s.recorder.Record(ctx, &membership.TeamID, caller.ID, models.ActionInviteTeamMember, ipAddress); err != nil {
		return fmt.Errorf("recording invitation: %w", err)
	}
	return nil
}

// RemoveTeamMember soft-deletes the target membership (and its team when
// emptied), then deprovisions the removed account at the provider. The
// local removal stands even when the provider call fails; in that case a
// retry task is queued and ErrDeprovisionPending reports the gap.
func (s *Service) RemoveTeamMember(ctx context.Context, caller *models.User, membershipID uuid.UUID, externalMemberID, ipAddress string) error {
	callerMembership, err := s.store.ActiveMembershipForUser(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotOnTeam
		}
		return fmt.Errorf("resolving caller team: %w", err)
	}

	target, err := s.store.MembershipByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("looking up membership: %w", err)
	}
	if target.TeamID != callerMembership.TeamID {
		return ErrForbidden
	}
	if target.UserID == caller.ID {
		return ErrSelfRemoval
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.SoftDeleteMembership(ctx, target.ID); err != nil {
			return fmt.Errorf("removing membership: %w", err)
		}
		remaining, err := tx.CountActiveMemberships(ctx, target.TeamID)
		if err != nil {
			return fmt.Errorf("counting members: %w", err)
		}
		if remaining == 0 {
			if err := tx.SoftDeleteTeam(ctx, target.TeamID); err != nil {
				return fmt.Errorf("removing empty team: %w", err)
			}
		}
		return s.recorder.WithStore(tx).Record(ctx, &target.TeamID, caller.ID, models.ActionRemoveTeamMember, ipAddress)
	})
	if err != nil {
		return err
	}

	if externalMemberID == "" {
		return nil
	}
	if err := s.provider.DeleteUser(ctx, externalMemberID); err != nil {
		s.logger.Error("external deprovisioning failed after local removal",
			"external_id", externalMemberID,
			"membership_id", target.ID,
			"error", err,
		)
		if s.queue != nil {
			if qerr := s.queue.EnqueueDeprovision(ctx, externalMemberID); qerr != nil {
				s.logger.Error("failed to queue deprovision retry", "external_id", externalMemberID, "error", qerr)
			}
		}
		return ErrDeprovisionPending
	}
	return nil
}

// TeamForUser returns the caller's team with its active members.
func (s *Service) TeamForUser(ctx context.Context, caller *models.User) (*models.Team, []models.Membership, error) {
	membership, err := s.store.ActiveMembershipForUser(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotOnTeam
		}
		return nil, nil, fmt.Errorf("resolving caller team: %w", err)
	}

	t, err := s.store.TeamByID(ctx, membership.TeamID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading team: %w", err)
	}
	members, err := s.store.ActiveMembershipsForTeam(ctx, membership.TeamID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading members: %w", err)
	}
	return t, members, nil
}

// RecentActivity returns the caller's latest audit entries, newest first.
func (s *Service) RecentActivity(ctx context.Context, caller *models.User, limit int) ([]models.ActivityLog, error) {
	return s.store.RecentActivityForUser(ctx, caller.ID, limit)
}

func (s *Service) callerTeamID(ctx context.Context, caller *models.User) *uuid.UUID {
	membership, err := s.store.ActiveMembershipForUser(ctx, caller.ID)
	if err != nil {
		return nil
	}
	return &membership.TeamID
}

func (s *Service) memberOfTeam(ctx context.Context, userID, teamID uuid.UUID) (*models.Membership, error) {
	memberships, err := s.store.ActiveMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		if memberships[i].TeamID == teamID {
			return &memberships[i], nil
		}
	}
	return nil, store.ErrNotFound
}
