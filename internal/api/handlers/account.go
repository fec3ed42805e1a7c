package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RobertFent/teambase/internal/api/dto"
	"github.com/RobertFent/teambase/internal/api/middleware"
	"github.com/RobertFent/teambase/internal/team"
)

type AccountHandler struct {
	teamService *team.Service
}

func NewAccountHandler(teamService *team.Service) *AccountHandler {
	return &AccountHandler{teamService: teamService}
}

// Me returns the caller's profile.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, user)
}

// UpdateAccount processes the form-encoded account update submission.
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid form submission"})
		return
	}

	req := dto.ParseUpdateAccountRequest(r.PostForm)
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: firstError(fieldErrors), Details: fieldErrors})
		return
	}

	err := h.teamService.UpdateAccount(r.Context(), user, req.Name, req.Email, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, team.ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email is already in use"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update account"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: "Account updated successfully."})
}

// Activity returns the caller's recent audit entries.
func (h *AccountHandler) Activity(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	entries, err := h.teamService.RecentActivity(r.Context(), user, 10)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load activity"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewActivityEntries(entries))
}

// firstError picks a deterministic single message out of a field-error map
// for the top-level error string.
func firstError(fieldErrors map[string]string) string {
	msg := ""
	for _, v := range fieldErrors {
		if msg == "" || v < msg {
			msg = v
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
