package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	ss, err := GenerateToken("secret", "alice", "operator", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", ss)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "operator", claims.Role)

	_, err = ParseToken("another-secret", ss)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestToken_Expired(t *testing.T) {
	ss, err := GenerateToken("secret", "alice", "operator", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", ss)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}
