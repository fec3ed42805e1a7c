package identity_test

import (
	"testing"
	"time"

	"github.com/RobertFent/teambase/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	tokens := identity.NewTokenService("test-secret", 24*time.Hour)

	t.Run("round-trips external id", func(t *testing.T) {
		token, err := tokens.GenerateToken("ext_abc")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := tokens.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "ext_abc", claims.ExternalID)
		assert.Equal(t, "ext_abc", claims.Subject)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := tokens.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("rejects token from another secret", func(t *testing.T) {
		other := identity.NewTokenService("different-secret", 24*time.Hour)
		token, err := other.GenerateToken("ext_abc")
		require.NoError(t, err)

		_, err = tokens.ValidateToken(token)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		shortLived := identity.NewTokenService("test-secret", -time.Minute)
		token, err := shortLived.GenerateToken("ext_abc")
		require.NoError(t, err)

		_, err = tokens.ValidateToken(token)
		assert.ErrorIs(t, err, identity.ErrExpiredToken)
	})
}
