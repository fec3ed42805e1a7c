package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Provider is the outbound surface of the identity provider: invitation
// issuance and account deprovisioning. Everything else the provider does
// (sessions, sign-in UI) reaches us through webhooks instead.
type Provider interface {
	CreateInvitation(ctx context.Context, email string, teamID uuid.UUID, role string) error
	DeleteUser(ctx context.Context, externalID string) error
}

// APIClient talks to the provider's backend REST API.
type APIClient struct {
	baseURL     string
	secretKey   string
	redirectURL string
	httpClient  *http.Client
}

func NewAPIClient(baseURL, secretKey, redirectURL string) *APIClient {
	return &APIClient{
		baseURL:     baseURL,
		secretKey:   secretKey,
		redirectURL: redirectURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Provider = (*APIClient)(nil)

type invitationRequest struct {
	EmailAddress   string            `json:"email_address"`
	RedirectURL    string            `json:"redirect_url,omitempty"`
	PublicMetadata map[string]string `json:"public_metadata"`
}

// CreateInvitation asks the provider to invite email. Team and role ride
// along as opaque metadata and come back to us on the invitee's
// user.created event.
func (c *APIClient) CreateInvitation(ctx context.Context, email string, teamID uuid.UUID, role string) error {
	body, err := json.Marshal(invitationRequest{
		EmailAddress: email,
		RedirectURL:  c.redirectURL,
		PublicMetadata: map[string]string{
			"team_id": teamID.String(),
			"role":    role,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding invitation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/invitations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building invitation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending invitation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sending invitation: %s", providerErrorMessage(resp))
	}
	return nil
}

// DeleteUser deprovisions the external account. A 404 means the account is
// already gone, which is the state we wanted.
func (c *APIClient) DeleteUser(ctx context.Context, externalID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/users/"+externalID, nil)
	if err != nil {
		return fmt.Errorf("building deletion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting provider user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("deleting provider user: %s", providerErrorMessage(resp))
	}
	return nil
}

type providerError struct {
	Errors []struct {
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
}

// providerErrorMessage extracts the provider's first reported message, or
// falls back to the HTTP status.
func providerErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var pe providerError
		if json.Unmarshal(body, &pe) == nil && len(pe.Errors) > 0 {
			if pe.Errors[0].LongMessage != "" {
				return pe.Errors[0].LongMessage
			}
			if pe.Errors[0].Message != "" {
				return pe.Errors[0].Message
			}
		}
	}
	return fmt.Sprintf("provider returned status %d", resp.StatusCode)
}
