package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// credentialLen is the size of both salt and derived key
	credentialLen = sha512.Size
	iterations    = 100_000
)

// HashPassword derives a PBKDF2-HMAC-SHA512 key for password with a fresh
// random salt. Both come back upper-case hex encoded.
func HashPassword(password string) (hash string, salt string, err error) {
	saltBytes := make([]byte, credentialLen)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), saltBytes, iterations, credentialLen, sha512.New)
	return strings.ToUpper(hex.EncodeToString(key)), strings.ToUpper(hex.EncodeToString(saltBytes)), nil
}

// VerifyPassword reports whether password matches the stored hash and salt
func VerifyPassword(password, hash, salt string) bool {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hash)
	if err != nil || len(want) != credentialLen {
		return false
	}
	got := pbkdf2.Key([]byte(password), saltBytes, iterations, credentialLen, sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NewSessionToken returns a random 32 byte token, hex encoded
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
