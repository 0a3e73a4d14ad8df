// internal/auth/token_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init())

	token, err := CreateSeatToken("p1", "r1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	playerID, roomID, err := VerifySeatToken(token)
	require.NoError(t, err)
	assert.Equal(t, "p1", playerID)
	assert.Equal(t, "r1", roomID)
}

func TestSeatTokenRejectsGarbage(t *testing.T) {
	require.NoError(t, Init())

	_, _, err := VerifySeatToken("not.a.token")
	assert.Error(t, err)
}

func TestSeatTokenRejectsTampering(t *testing.T) {
	require.NoError(t, Init())

	token, err := CreateSeatToken("p1", "r1")
	require.NoError(t, err)

	_, _, err = VerifySeatToken(token + "x")
	assert.Error(t, err)
}
