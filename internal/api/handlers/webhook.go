package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/RobertFent/teambase/internal/api/dto"
	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/reconcile"
)

// maxWebhookBody bounds how much of a delivery we read before verifying.
const maxWebhookBody = 1 << 20

// webhookTimeout bounds total processing; the provider retries on slow or
// non-2xx responses, so a definitive answer must come back promptly.
const webhookTimeout = 15 * time.Second

type WebhookHandler struct {
	verifier   *identity.WebhookVerifier
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func NewWebhookHandler(verifier *identity.WebhookVerifier, reconciler *reconcile.Reconciler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, logger: logger}
}

// HandleIdentityEvent is the provider→system delivery endpoint. Verification
// runs before any state change is attempted; unrecognized event types are
// acknowledged and ignored so the provider stops retrying them.
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.Verify(payload, r.Header)
	if err != nil {
		if errors.Is(err, identity.ErrMissingHeaders) {
			http.Error(w, "Missing webhook headers", http.StatusBadRequest)
			return
		}
		h.logger.Error("webhook signature verification failed", "error", err)
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Webhook signature verification failed."})
		return
	}

	h.logger.Debug("identity event received", "type", event.Type)

	switch event.Type {
	case identity.EventUserCreated:
		var data identity.UserCreatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			http.Error(w, "Malformed event data", http.StatusBadRequest)
			return
		}
		if err := h.reconciler.UserCreated(ctx, data.ID, data.Email(), data.FirstName, data.LastName); err != nil {
			h.logger.Error("reconciling user.created failed", "external_id", data.ID, "error", err)
			http.Error(w, "Reconciliation failed", http.StatusInternalServerError)
			return
		}

	case identity.EventUserDeleted:
		var data identity.UserDeletedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			http.Error(w, "Malformed event data", http.StatusBadRequest)
			return
		}
		if data.ID != "" {
			if err := h.reconciler.UserDeleted(ctx, data.ID); err != nil {
				h.logger.Error("reconciling user.deleted failed", "external_id", data.ID, "error", err)
				http.Error(w, "Reconciliation failed", http.StatusInternalServerError)
				return
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
