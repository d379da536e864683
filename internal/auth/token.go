// internal/auth/token.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

var ErrUnauthorized = errors.New("unauthorized")

// HashToken generates a salted Argon2id hash of the operator token. Both
// values are base64 encoded.
func HashToken(token string) (hash, salt string, err error) {
	rawSalt := make([]byte, 16)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}

	return encode(deriveKey(token, rawSalt)), encode(rawSalt), nil
}

// VerifyToken compares a token with a salted hash.
func VerifyToken(token, salt, hash string) (bool, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	decodedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	return subtle.ConstantTimeCompare(decodedHash, deriveKey(token, decodedSalt)) == 1, nil
}

func deriveKey(token string, salt []byte) []byte {
	return argon2.IDKey([]byte(token), salt, 1, 64*1024, 4, 32)
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Verifier checks bearer tokens against the configured operator hash.
type Verifier struct {
	hash string
	salt string
	log  *zap.Logger
}

func NewVerifier(hash, salt string, log *zap.Logger) *Verifier {
	return &Verifier{hash: hash, salt: salt, log: log}
}

// Middleware rejects requests that do not carry the operator token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		valid, err := VerifyToken(token, v.salt, v.hash)
		if err != nil {
			v.log.Error("operator token check failed", zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !valid {
			v.log.Warn("invalid operator token", zap.String("path", r.URL.Path))
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
