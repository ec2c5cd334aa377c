// Package crypto derives the login credential sent to the sync server.
// The password never leaves the client: the server only sees
// hex(SHA-256(Argon2id(password, username, salt))).
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltSize длина публичной соли в байтах
const SaltSize = 32

// ErrInvalidAuthKey returned when the presented hash does not match the stored one.
var ErrInvalidAuthKey = errors.New("invalid auth key")

// argon2id параметры; менять нельзя, иначе существующие аккаунты не войдут
var kdf = struct {
	context string
	time    uint32
	memory  uint32 // KiB
	threads uint8
	keyLen  uint32
}{
	context: "mealsync-auth",
	time:    1,
	memory:  64 * 1024,
	threads: 4,
	keyLen:  32,
}

// NewSalt returns SaltSize random bytes, base64 encoded as sent on register.
func NewSalt() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// AuthKeyHash is the value the client sends on register and login.
func AuthKeyHash(password, username, salt string) (string, error) {
	switch {
	case password == "":
		return "", errors.New("password cannot be empty")
	case username == "":
		return "", errors.New("username cannot be empty")
	}

	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}
	if len(raw) != SaltSize {
		return "", fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(raw))
	}

	key := argon2.IDKey([]byte(password+username+kdf.context), raw, kdf.time, kdf.memory, kdf.threads, kdf.keyLen)
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyAuthKeyHash compares in constant time.
func VerifyAuthKeyHash(presented, stored string) error {
	if presented == "" || stored == "" {
		return ErrInvalidAuthKey
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) != 1 {
		return ErrInvalidAuthKey
	}
	return nil
}
