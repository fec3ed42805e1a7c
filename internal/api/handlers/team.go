package handlers

import (
	"errors"
	"net/http"

	"github.com/RobertFent/teambase/internal/api/dto"
	"github.com/RobertFent/teambase/internal/api/middleware"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/RobertFent/teambase/internal/team"
	"github.com/google/uuid"
)

type TeamHandler struct {
	teamService *team.Service
}

func NewTeamHandler(teamService *team.Service) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Get returns the caller's team with its active members.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	t, members, err := h.teamService.TeamForUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, team.ErrNotOnTeam) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User is not part of a team"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load team"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewTeamResponse(t, members))
}

// Invite processes the form-encoded invitation submission.
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid form submission"})
		return
	}

	req := dto.ParseInviteTeamMemberRequest(r.PostForm)
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: firstError(fieldErrors), Details: fieldErrors})
		return
	}

	err := h.teamService.InviteTeamMember(r.Context(), user, req.Email, req.Role, middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, team.ErrNotOnTeam):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "User is not part of a team"})
		case errors.Is(err, team.ErrAlreadyMember):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User is already a member of this team"})
		case errors.Is(err, team.ErrInvitePending):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "An invitation has already been sent to this email"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to send invitation"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: "Invitation sent successfully"})
}

// Remove processes the form-encoded member removal submission.
func (h *TeamHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid form submission"})
		return
	}

	req := dto.ParseRemoveTeamMemberRequest(r.PostForm)
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: firstError(fieldErrors), Details: fieldErrors})
		return
	}

	membershipID := uuid.MustParse(req.MemberID)
	err := h.teamService.RemoveTeamMember(r.Context(), user, membershipID, req.ExternalMemberID, middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, team.ErrNotOnTeam):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "User is not part of a team"})
		case errors.Is(err, team.ErrForbidden):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Member belongs to a different team"})
		case errors.Is(err, team.ErrSelfRemoval):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Cannot remove your own membership"})
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Member not found"})
		case errors.Is(err, team.ErrDeprovisionPending):
			// Local removal committed; only the provider-side deletion is
			// outstanding and a retry owns it. Reported distinctly, not as
			// success.
			writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Team member removed, but external account deletion is still pending"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to remove team member"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: "Team member removed successfully"})
}
