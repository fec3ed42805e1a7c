package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountEndpoint_Me(t *testing.T) {
	h := newAPIHarness(t)

	user := testutil.CreateTestUser(t, h.ts.DB, "Test User")
	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, h.token(t, user))
	rr := h.do(t, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	var resp struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, user.Email, resp.Email)
	assert.Equal(t, "Test User", resp.Name)
}

func TestAccountEndpoint_Update(t *testing.T) {
	h := newAPIHarness(t)

	user := testutil.CreateTestUser(t, h.ts.DB, "Before")

	t.Run("valid submission", func(t *testing.T) {
		req := testutil.FormRequest(t, "/api/v1/account", url.Values{
			"name":  {"After"},
			"email": {"after@x.com"},
		}, h.token(t, user))
		rr := h.do(t, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		updated, err := h.ts.Store.UserByID(testutil.TestContext(t), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", updated.Name)
		assert.Equal(t, "after@x.com", updated.Email)
	})

	t.Run("missing name is a validation error", func(t *testing.T) {
		req := testutil.FormRequest(t, "/api/v1/account", url.Values{
			"email": {"after@x.com"},
		}, h.token(t, user))
		rr := h.do(t, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		var resp struct {
			Details map[string]string `json:"details"`
		}
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "name")
	})

	t.Run("taken email conflicts", func(t *testing.T) {
		other := testutil.CreateTestUser(t, h.ts.DB, "Other")
		req := testutil.FormRequest(t, "/api/v1/account", url.Values{
			"name":  {"After"},
			"email": {other.Email},
		}, h.token(t, user))
		rr := h.do(t, req)

		testutil.AssertStatus(t, rr, http.StatusConflict)
	})
}

func TestAccountEndpoint_Activity(t *testing.T) {
	h := newAPIHarness(t)

	tm := testutil.CreateTestTeam(t, h.ts.DB, "Acme")
	user := testutil.CreateTestUser(t, h.ts.DB, "User")
	testutil.CreateTestMembership(t, h.ts.DB, tm, user, models.RoleOwner)

	// An update writes one audit entry for the caller
	updateReq := testutil.FormRequest(t, "/api/v1/account", url.Values{
		"name":  {"User"},
		"email": {user.Email},
	}, h.token(t, user))
	testutil.AssertStatus(t, h.do(t, updateReq), http.StatusOK)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/activity", nil, h.token(t, user))
	rr := h.do(t, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	var entries []struct {
		Action string `json:"action"`
	}
	testutil.ParseJSONResponse(t, rr, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionUpdateAccount, entries[0].Action)
}
