package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	svc := New("test-secret", time.Hour)

	token, err := svc.GenerateToken(7, "Anna")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "Anna", claims.Label)
}

func TestService_RejectsWrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Hour).GenerateToken(7, "Anna")
	require.NoError(t, err)

	_, err = New("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestService_RejectsExpiredToken(t *testing.T) {
	svc := New("test-secret", -time.Minute)

	token, err := svc.GenerateToken(7, "Anna")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestService_RejectsGarbage(t *testing.T) {
	_, err := New("test-secret", time.Hour).ValidateToken("not.a.token")
	assert.Error(t, err)
}
