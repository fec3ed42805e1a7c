package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/RobertFent/teambase/internal/identity"
	"github.com/hibiken/asynq"
)

type Handler struct {
	provider identity.Provider
	logger   *slog.Logger
}

func NewHandler(provider identity.Provider, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDeprovision, h.HandleDeprovision)
}

// HandleDeprovision retries the provider-side account deletion that failed
// after its local removal already committed. Returning an error lets asynq
// retry with backoff; success closes the reconciliation gap.
func (h *Handler) HandleDeprovision(ctx context.Context, t *asynq.Task) error {
	var payload DeprovisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("retrying external account deletion", "external_id", payload.ExternalID)

	if err := h.provider.DeleteUser(ctx, payload.ExternalID); err != nil {
		h.logger.Warn("external account deletion failed, will retry",
			"external_id", payload.ExternalID,
			"error", err,
		)
		return err
	}

	h.logger.Info("external account deleted", "external_id", payload.ExternalID)
	return nil
}

// Client enqueues deprovision retries from the request path.
type Client struct {
	client *asynq.Client
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

func (c *Client) EnqueueDeprovision(ctx context.Context, externalID string) error {
	task, err := NewDeprovisionTask(DeprovisionPayload{ExternalID: externalID})
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing deprovision task: %w", err)
	}
	return nil
}
