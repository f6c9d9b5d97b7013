package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	jwtSecretValue = getEnv("JWTSECRET", "")
	jwtSecret      = jwtSecretValue
	jwtSecretByte  = []byte(jwtSecretValue)
	jwtMutex       sync.RWMutex
)

// argon2id parameters; fixed so hashes stay verifiable across releases.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// SetJWTSecret allows tests or runtime code to update the JWT secret used
// for both token signing and legacy password hashing. Thread-safe.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecret = secret
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes in a thread-safe manner.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}

// HashPassword is the legacy HMAC-SHA256 scheme. Still accepted on login;
// accounts are upgraded to argon2id on first successful verification.
func HashPassword(password string) (hashedPassword string) {
	secretByte := GetJWTSecretByte()
	h := hmac.New(sha256.New, secretByte)
	h.Write([]byte(password))
	hashedPassword = hex.EncodeToString(h.Sum(nil))
	return
}

// GenerateSalt returns a random hex salt for argon2id hashing.
func GenerateSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashPasswordArgon2 hashes plain with the given salt using argon2id.
// Output is prefixed "argon2id$" so verification can distinguish schemes.
func HashPasswordArgon2(plain, salt string) (string, error) {
	if salt == "" {
		return "", fmt.Errorf("salt must not be empty")
	}
	hash := argon2.IDKey([]byte(plain), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("argon2id$%x", hash), nil
}

// VerifyPassword checks plain against stored using constant-time comparison.
// It handles both argon2id hashes and the legacy HMAC scheme.
func VerifyPassword(plain, stored, salt string) (bool, error) {
	if strings.HasPrefix(stored, "argon2id$") {
		computed, err := HashPasswordArgon2(plain, salt)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1, nil
	}
	legacy := HashPassword(plain)
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(stored)) == 1, nil
}
