package dto

import (
	"net/url"
	"time"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/google/uuid"
)

// InviteTeamMemberRequest binds the form-encoded invitation submission.
type InviteTeamMemberRequest struct {
	Email string
	Role  string
}

func ParseInviteTeamMemberRequest(form url.Values) InviteTeamMemberRequest {
	return InviteTeamMemberRequest{
		Email: form.Get("email"),
		Role:  form.Get("role"),
	}
}

func (r InviteTeamMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !ValidEmail(r.Email) {
		errors["email"] = "Invalid email address"
	}
	if !models.ValidRole(r.Role) {
		errors["role"] = "Role must be member or owner"
	}

	return errors
}

// RemoveTeamMemberRequest binds the form-encoded removal submission.
// ExternalMemberID identifies the removed member at the identity provider
// for the cascading deprovisioning request.
type RemoveTeamMemberRequest struct {
	MemberID         string
	ExternalMemberID string
}

func ParseRemoveTeamMemberRequest(form url.Values) RemoveTeamMemberRequest {
	return RemoveTeamMemberRequest{
		MemberID:         form.Get("member_id"),
		ExternalMemberID: form.Get("external_member_id"),
	}
}

func (r RemoveTeamMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.MemberID == "" {
		errors["member_id"] = "Member ID is required"
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errors["member_id"] = "Invalid member ID format"
	}

	return errors
}

// TeamResponse is the caller's team with its active members.
type TeamResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Members []MemberResponse `json:"members"`
}

type MemberResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func NewTeamResponse(team *models.Team, members []models.Membership) TeamResponse {
	resp := TeamResponse{
		ID:      team.ID.String(),
		Name:    team.Name,
		Members: make([]MemberResponse, 0, len(members)),
	}
	for _, m := range members {
		member := MemberResponse{
			ID:       m.ID.String(),
			UserID:   m.UserID.String(),
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		if m.User != nil {
			member.Name = m.User.Name
			member.Email = m.User.Email
		}
		resp.Members = append(resp.Members, member)
	}
	return resp
}

// ActivityEntry is a sanitized audit row for the activity feed.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address,omitempty"`
}

func NewActivityEntries(entries []models.ActivityLog) []ActivityEntry {
	out := make([]ActivityEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityEntry{
			ID:        e.ID.String(),
			Action:    e.Action,
			Timestamp: e.Timestamp,
			IPAddress: e.IPAddress,
		})
	}
	return out
}
