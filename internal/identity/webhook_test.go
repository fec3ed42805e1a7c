package identity_test

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/RobertFent/teambase/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-webhook-signing-key"))
}

func signedHeaders(t *testing.T, v *identity.WebhookVerifier, payload []byte) http.Header {
	t.Helper()

	id := "msg_2abc"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	headers := http.Header{}
	headers.Set(identity.HeaderID, id)
	headers.Set(identity.HeaderTimestamp, ts)
	headers.Set(identity.HeaderSignature, v.Sign(id, ts, payload))
	return headers
}

func TestWebhookVerifier_Verify(t *testing.T) {
	verifier, err := identity.NewWebhookVerifier(testSecret())
	require.NoError(t, err)

	payload := []byte(`{"type":"user.created","data":{"id":"ext_1"}}`)

	t.Run("accepts valid signature", func(t *testing.T) {
		event, err := verifier.Verify(payload, signedHeaders(t, verifier, payload))
		require.NoError(t, err)
		assert.Equal(t, identity.EventUserCreated, event.Type)
	})

	t.Run("is idempotent", func(t *testing.T) {
		headers := signedHeaders(t, verifier, payload)

		first, err := verifier.Verify(payload, headers)
		require.NoError(t, err)
		second, err := verifier.Verify(payload, headers)
		require.NoError(t, err)
		assert.Equal(t, first.Type, second.Type)
	})

	t.Run("missing header is malformed, not unverified", func(t *testing.T) {
		for _, name := range []string{identity.HeaderID, identity.HeaderTimestamp, identity.HeaderSignature} {
			headers := signedHeaders(t, verifier, payload)
			headers.Del(name)

			_, err := verifier.Verify(payload, headers)
			assert.ErrorIs(t, err, identity.ErrMissingHeaders, "missing %s", name)
		}
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		headers := signedHeaders(t, verifier, payload)
		tampered := []byte(`{"type":"user.created","data":{"id":"ext_evil"}}`)

		_, err := verifier.Verify(tampered, headers)
		assert.ErrorIs(t, err, identity.ErrBadSignature)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		other, err := identity.NewWebhookVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("other-key")))
		require.NoError(t, err)

		_, err = verifier.Verify(payload, signedHeaders(t, other, payload))
		assert.ErrorIs(t, err, identity.ErrBadSignature)
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		id := "msg_old"
		ts := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

		headers := http.Header{}
		headers.Set(identity.HeaderID, id)
		headers.Set(identity.HeaderTimestamp, ts)
		headers.Set(identity.HeaderSignature, verifier.Sign(id, ts, payload))

		_, err := verifier.Verify(payload, headers)
		assert.ErrorIs(t, err, identity.ErrStaleTimestamp)
	})

	t.Run("accepts signature list with multiple entries", func(t *testing.T) {
		id := "msg_multi"
		ts := strconv.FormatInt(time.Now().Unix(), 10)

		headers := http.Header{}
		headers.Set(identity.HeaderID, id)
		headers.Set(identity.HeaderTimestamp, ts)
		headers.Set(identity.HeaderSignature, fmt.Sprintf("v1,bogus %s", verifier.Sign(id, ts, payload)))

		_, err := verifier.Verify(payload, headers)
		assert.NoError(t, err)
	})
}

func TestUserCreatedData(t *testing.T) {
	t.Run("synthesizes trimmed name", func(t *testing.T) {
		data := identity.UserCreatedData{FirstName: "A", LastName: "B"}
		assert.Equal(t, "A B", data.Name())

		data = identity.UserCreatedData{FirstName: "A"}
		assert.Equal(t, "A", data.Name())

		data = identity.UserCreatedData{}
		assert.Equal(t, "", data.Name())
	})

	t.Run("email falls back to empty", func(t *testing.T) {
		data := identity.UserCreatedData{}
		assert.Equal(t, "", data.Email())
	})
}
