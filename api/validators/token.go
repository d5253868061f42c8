package validators

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid admin token")

// CheckAdminToken compares the presented token with the configured one in
// constant time. An empty configured token rejects everything.
func CheckAdminToken(raw, expected string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return ErrInvalidToken
	}
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
