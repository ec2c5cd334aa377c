package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSalt(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, SaltSize))
}

func TestNewSalt(t *testing.T) {
	first, err := NewSalt()
	require.NoError(t, err)
	second, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, SaltSize)
}

func TestAuthKeyHash(t *testing.T) {
	base, err := AuthKeyHash("secret", "alice", fixedSalt(1))
	require.NoError(t, err)
	assert.Len(t, base, 64)

	again, err := AuthKeyHash("secret", "alice", fixedSalt(1))
	require.NoError(t, err)
	assert.Equal(t, base, again)

	// Каждый вход влияет на результат
	for name, args := range map[string][3]string{
		"other password": {"other", "alice", fixedSalt(1)},
		"other username": {"secret", "bob", fixedSalt(1)},
		"other salt":     {"secret", "alice", fixedSalt(2)},
	} {
		h, err := AuthKeyHash(args[0], args[1], args[2])
		require.NoError(t, err, name)
		assert.NotEqual(t, base, h, name)
	}
}

func TestAuthKeyHash_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		salt     string
		errMsg   string
	}{
		{name: "empty password", username: "alice", salt: fixedSalt(1), errMsg: "password cannot be empty"},
		{name: "empty username", password: "secret", salt: fixedSalt(1), errMsg: "username cannot be empty"},
		{name: "not base64", password: "secret", username: "alice", salt: "not base64!", errMsg: "failed to decode salt"},
		{name: "short salt", password: "secret", username: "alice", salt: base64.StdEncoding.EncodeToString([]byte{1, 2}), errMsg: "salt must be 32 bytes, got 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AuthKeyHash(tt.password, tt.username, tt.salt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestVerifyAuthKeyHash(t *testing.T) {
	stored, err := AuthKeyHash("secret", "alice", fixedSalt(1))
	require.NoError(t, err)
	other, err := AuthKeyHash("other", "alice", fixedSalt(1))
	require.NoError(t, err)

	assert.NoError(t, VerifyAuthKeyHash(stored, stored))
	assert.ErrorIs(t, VerifyAuthKeyHash(other, stored), ErrInvalidAuthKey)
	assert.ErrorIs(t, VerifyAuthKeyHash("", stored), ErrInvalidAuthKey)
	assert.ErrorIs(t, VerifyAuthKeyHash(stored, ""), ErrInvalidAuthKey)
}
