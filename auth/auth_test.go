package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/auth"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, auth.CheckPassword(hash, "s3cret"))
	assert.Error(t, auth.CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken("test-secret", "emp-1", "manager", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.EmployeeID)
	assert.Equal(t, "manager", claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("test-secret", "emp-1", "employee", time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken("other-secret", token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	token, err := auth.GenerateToken("test-secret", "emp-1", "employee", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken("test-secret", token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
