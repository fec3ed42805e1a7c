package team_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/RobertFent/teambase/internal/activity"
	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/RobertFent/teambase/internal/team"
	"github.com/RobertFent/teambase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*team.Service, *testutil.TestSetup) {
	t.Helper()

	ts := testutil.NewTestContext(t)
	t.Cleanup(ts.Cleanup)

	recorder := activity.NewRecorder(ts.Store)
	svc := team.NewService(ts.Store, ts.Provider, recorder, ts.Queue, slog.Default())
	return svc, ts
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestService_UpdateAccount(t *testing.T) {
	t.Run("updates profile and logs against current team", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		user := testutil.CreateTestUser(t, ts.DB, "Old Name")
		testutil.CreateTestMembership(t, ts.DB, tm, user, models.RoleOwner)

		require.NoError(t, svc.UpdateAccount(ctx, user, "New Name", "new@x.com", "10.0.0.1"))

		updated, err := ts.Store.UserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, "new@x.com", updated.Email)

		assert.EqualValues(t, 1, count(t, ts.DB, &models.ActivityLog{}, "action = ? AND ip_address = ?", models.ActionUpdateAccount, "10.0.0.1"))
	})

	t.Run("teamless caller updates silently without log entry", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		user := testutil.CreateTestUser(t, ts.DB, "Loner")

		require.NoError(t, svc.UpdateAccount(ctx, user, "Still Loner", "loner@x.com", ""))
		assert.EqualValues(t, 0, count(t, ts.DB, &models.ActivityLog{}, "1 = 1"))
	})

	t.Run("taken email is a conflict", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		existing := testutil.CreateTestUser(t, ts.DB, "First")
		user := testutil.CreateTestUser(t, ts.DB, "Second")

		err := svc.UpdateAccount(ctx, user, "Second", existing.Email, "")
		assert.ErrorIs(t, err, team.ErrEmailTaken)
	})
}

func TestService_InviteTeamMember(t *testing.T) {
	t.Run("creates invitation and calls provider", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)

		require.NoError(t, svc.InviteTeamMember(ctx, owner, "new@x.com", models.RoleMember, ""))

		require.Len(t, ts.Provider.Invitations, 1)
		assert.Equal(t, "new@x.com", ts.Provider.Invitations[0].Email)
		assert.Equal(t, tm.ID, ts.Provider.Invitations[0].TeamID)

		assert.EqualValues(t, 1, count(t, ts.DB, &models.Invitation{}, "status = ?", models.InvitationPending))
		assert.EqualValues(t, 1, count(t, ts.DB, &models.ActivityLog{}, "action = ?", models.ActionInviteTeamMember))
	})

	t.Run("caller without team is rejected", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		loner := testutil.CreateTestUser(t, ts.DB, "Loner")

		err := svc.InviteTeamMember(ctx, loner, "new@x.com", models.RoleMember, "")
		assert.ErrorIs(t, err, team.ErrNotOnTeam)
		assert.Empty(t, ts.Provider.Invitations)
	})

	t.Run("existing active member is a conflict and issues nothing", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		member := testutil.CreateTestUser(t, ts.DB, "Member")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)
		testutil.CreateTestMembership(t, ts.DB, tm, member, models.RoleMember)

		err := svc.InviteTeamMember(ctx, owner, member.Email, models.RoleMember, "")
		assert.ErrorIs(t, err, team.ErrAlreadyMember)
		assert.Empty(t, ts.Provider.Invitations)
		assert.EqualValues(t, 0, count(t, ts.DB, &models.Invitation{}, "1 = 1"))
	})

	t.Run("duplicate pending invitation is a conflict", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)

		require.NoError(t, svc.InviteTeamMember(ctx, owner, "new@x.com", models.RoleMember, ""))
		err := svc.InviteTeamMember(ctx, owner, "new@x.com", models.RoleOwner, "")
		assert.ErrorIs(t, err, team.ErrInvitePending)
		assert.Len(t, ts.Provider.Invitations, 1)
	})

	t.Run("provider failure leaves no pending invitation behind", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)

		ts.Provider.InvitationErr = errors.New("provider unavailable")
		err := svc.InviteTeamMember(ctx, owner, "new@x.com", models.RoleMember, "")
		assert.Error(t, err)
		assert.EqualValues(t, 0, count(t, ts.DB, &models.Invitation{}, "1 = 1"))
		assert.EqualValues(t, 0, count(t, ts.DB, &models.ActivityLog{}, "1 = 1"))

		// Nothing poisoned the pair; the retry goes through
		ts.Provider.InvitationErr = nil
		require.NoError(t, svc.InviteTeamMember(ctx, owner, "new@x.com", models.RoleMember, ""))
		assert.Len(t, ts.Provider.Invitations, 1)
		assert.EqualValues(t, 1, count(t, ts.DB, &models.Invitation{}, "status = ?", models.InvitationPending))
	})

	t.Run("removed member can be re-invited", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		former := testutil.CreateTestUser(t, ts.DB, "Former")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)
		m := testutil.CreateTestMembership(t, ts.DB, tm, former, models.RoleMember)
		require.NoError(t, ts.Store.SoftDeleteMembership(ctx, m.ID))

		assert.NoError(t, svc.InviteTeamMember(ctx, owner, former.Email, models.RoleMember, ""))
	})
}

func TestService_RemoveTeamMember(t *testing.T) {
	t.Run("removes member, logs and deprovisions", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		member := testutil.CreateTestUser(t, ts.DB, "Member")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)
		m := testutil.CreateTestMembership(t, ts.DB, tm, member, models.RoleMember)

		require.NoError(t, svc.RemoveTeamMember(ctx, owner, m.ID, member.ExternalID, "10.0.0.2"))

		_, err := ts.Store.MembershipByID(ctx, m.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Owner still active, so the team survives
		_, err = ts.Store.TeamByID(ctx, tm.ID)
		assert.NoError(t, err)

		assert.Equal(t, []string{member.ExternalID}, ts.Provider.Deletions)
		assert.EqualValues(t, 1, count(t, ts.DB, &models.ActivityLog{}, "action = ?", models.ActionRemoveTeamMember))
	})

	t.Run("cross-team removal is forbidden and mutates nothing", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm1 := testutil.CreateTestTeam(t, ts.DB, "Team One")
		tm2 := testutil.CreateTestTeam(t, ts.DB, "Team Two")
		caller := testutil.CreateTestUser(t, ts.DB, "Caller")
		outsider := testutil.CreateTestUser(t, ts.DB, "Outsider")
		testutil.CreateTestMembership(t, ts.DB, tm1, caller, models.RoleOwner)
		m := testutil.CreateTestMembership(t, ts.DB, tm2, outsider, models.RoleOwner)

		err := svc.RemoveTeamMember(ctx, caller, m.ID, outsider.ExternalID, "")
		assert.ErrorIs(t, err, team.ErrForbidden)

		_, err = ts.Store.MembershipByID(ctx, m.ID)
		assert.NoError(t, err, "target membership must remain active")
		assert.Empty(t, ts.Provider.Deletions)
		assert.EqualValues(t, 0, count(t, ts.DB, &models.ActivityLog{}, "1 = 1"))
	})

	t.Run("self-removal is rejected", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		m := testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)

		err := svc.RemoveTeamMember(ctx, owner, m.ID, owner.ExternalID, "")
		assert.ErrorIs(t, err, team.ErrSelfRemoval)
	})

	t.Run("provider failure after local commit surfaces partial failure", func(t *testing.T) {
		svc, ts := newService(t)
		ctx := testutil.TestContext(t)

		tm := testutil.CreateTestTeam(t, ts.DB, "Team")
		owner := testutil.CreateTestUser(t, ts.DB, "Owner")
		member := testutil.CreateTestUser(t, ts.DB, "Member")
		testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)
		m := testutil.CreateTestMembership(t, ts.DB, tm, member, models.RoleMember)

		ts.Provider.DeletionErr = errors.New("provider unavailable")

		err := svc.RemoveTeamMember(ctx, owner, m.ID, member.ExternalID, "")
		assert.ErrorIs(t, err, team.ErrDeprovisionPending)

		// Local removal stands and a retry is queued
		_, lookupErr := ts.Store.MembershipByID(ctx, m.ID)
		assert.ErrorIs(t, lookupErr, store.ErrNotFound)
		assert.Equal(t, []string{member.ExternalID}, ts.Queue.Enqueued)
	})
}

func TestService_TeamForUser(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	tm := testutil.CreateTestTeam(t, ts.DB, "Team")
	owner := testutil.CreateTestUser(t, ts.DB, "Owner")
	member := testutil.CreateTestUser(t, ts.DB, "Member")
	removed := testutil.CreateTestUser(t, ts.DB, "Removed")
	testutil.CreateTestMembership(t, ts.DB, tm, owner, models.RoleOwner)
	testutil.CreateTestMembership(t, ts.DB, tm, member, models.RoleMember)
	gone := testutil.CreateTestMembership(t, ts.DB, tm, removed, models.RoleMember)
	require.NoError(t, ts.Store.SoftDeleteMembership(ctx, gone.ID))

	got, members, err := svc.TeamForUser(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, tm.ID, got.ID)
	assert.Len(t, members, 2, "soft-deleted membership must be invisible")

	loner := testutil.CreateTestUser(t, ts.DB, "Loner")
	_, _, err = svc.TeamForUser(ctx, loner)
	assert.ErrorIs(t, err, team.ErrNotOnTeam)
}
