package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Lifecycle event types delivered by the identity provider. Anything else
// is accepted and ignored.
const (
	EventUserCreated = "user.created"
	EventUserDeleted = "user.deleted"
)

var (
	// ErrMissingHeaders means the request is malformed, not untrusted: it is
	// reported before any cryptographic check runs.
	ErrMissingHeaders = errors.New("missing webhook headers")
	ErrBadSignature   = errors.New("webhook signature verification failed")
	ErrStaleTimestamp = errors.New("webhook timestamp outside tolerance")
)

// Delivery header names (svix wire format, which the provider uses).
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const timestampTolerance = 5 * time.Minute

// Event is a verified provider event envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserCreatedData mirrors the provider's user.created payload.
type UserCreatedData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Email returns the primary address, or "" when the payload carries none.
func (d *UserCreatedData) Email() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// Name synthesizes the display name from the payload's name parts.
func (d *UserCreatedData) Name() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// UserDeletedData mirrors the provider's user.deleted payload.
type UserDeletedData struct {
	ID string `json:"id"`
}

// WebhookVerifier authenticates inbound provider deliveries. It is
// read-only: verifying the same payload twice yields the same result with
// no side effects.
type WebhookVerifier struct {
	key []byte
}

// NewWebhookVerifier takes the shared endpoint secret, either raw or in the
// provider's "whsec_<base64>" form.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	if trimmed, ok := strings.CutPrefix(secret, "whsec_"); ok {
		key, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decoding webhook secret: %w", err)
		}
		return &WebhookVerifier{key: key}, nil
	}
	return &WebhookVerifier{key: []byte(secret)}, nil
}

// Verify authenticates payload against the delivery headers and parses the
// event envelope. Header presence is checked first; any failure after that
// point means the payload must not reach reconciliation.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	id := headers.Get(HeaderID)
	timestamp := headers.Get(HeaderTimestamp)
	signature := headers.Get(HeaderSignature)
	if id == "" || timestamp == "" || signature == "" {
		return nil, ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrBadSignature
	}
	age := time.Since(time.Unix(ts, 0))
	if age > timestampTolerance || age < -timestampTolerance {
		return nil, ErrStaleTimestamp
	}

	expected := v.sign(id, timestamp, payload)
	if !signatureListContains(signature, expected) {
		return nil, ErrBadSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parsing event envelope: %w", err)
	}
	if event.Type == "" {
		return nil, errors.New("event envelope has no type")
	}
	return &event, nil
}

// Sign computes the delivery signature for the given id/timestamp/payload.
// Exported for tests and for outbound delivery simulation.
func (v *WebhookVerifier) Sign(id, timestamp string, payload []byte) string {
	return "v1," + v.sign(id, timestamp, payload)
}

func (v *WebhookVerifier) sign(id, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureListContains scans the space-separated "v1,<base64>" signature
// list for a constant-time match against expected.
func signatureListContains(header, expected string) bool {
	match := false
	for _, entry := range strings.Fields(header) {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			match = true
		}
	}
	return match
}
