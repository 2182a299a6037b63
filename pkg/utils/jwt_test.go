package utils

import (
	"testing"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{Email: "amal@example.com", Role: models.UserRoleAdmin}
	user.ID = 12

	signed, err := GenerateToken(user, "secret", time.Hour)
	require.NoError(t, err)

	token, err := ValidateToken(signed, "secret")
	require.NoError(t, err)
	require.True(t, token.Valid)

	id, role, err := Claims(token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
	assert.Equal(t, models.UserRoleAdmin, role)
}

func TestValidateTokenRejects(t *testing.T) {
	user := &models.User{Email: "amal@example.com"}
	user.ID = 3

	signed, err := GenerateToken(user, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(signed, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateToken(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, "secret")
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 3})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(unsigned, "secret")
	assert.Error(t, err)
}
