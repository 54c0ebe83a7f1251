//go:build unit

package jwt_test

import (
	"testing"
	"time"

	"groupbuy-coordinator/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService(t *testing.T) {
	service := jwt.NewService("test-secret")

	t.Run("round trip", func(t *testing.T) {
		userRef := uuid.New()

		token, err := service.GenerateToken(userRef, time.Hour)
		require.NoError(t, err)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userRef, claims.UserRef)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := service.GenerateToken(uuid.New(), -time.Minute)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		require.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwt.NewService("other-secret")
		token, err := other.GenerateToken(uuid.New(), time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		require.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("missing user reference", func(t *testing.T) {
		token, err := service.GenerateToken(uuid.Nil, time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		require.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.token")
		require.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
