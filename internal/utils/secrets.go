package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// signingSecretBytes is the entropy behind each JWT signing secret
const signingSecretBytes = 32

// SigningSecrets holds the values the server refuses to start without
type SigningSecrets struct {
	Access  string
	Refresh string
}

// EnvLines renders the secrets as .env assignments
func (s SigningSecrets) EnvLines() string {
	var b strings.Builder
	fmt.Fprintf(&b, "JWT_SECRET=%s\n", s.Access)
	fmt.Fprintf(&b, "JWT_REFRESH_SECRET=%s\n", s.Refresh)
	return b.String()
}

// NewSigningSecrets draws a fresh, distinct pair of access/refresh secrets
func NewSigningSecrets() (SigningSecrets, error) {
	access, err := randomHex(signingSecretBytes)
	if err != nil {
		return SigningSecrets{}, fmt.Errorf("access secret: %w", err)
	}
	refresh, err := randomHex(signingSecretBytes)
	if err != nil {
		return SigningSecrets{}, fmt.Errorf("refresh secret: %w", err)
	}
	if access == refresh {
		return SigningSecrets{}, fmt.Errorf("random source returned identical secrets")
	}
	return SigningSecrets{Access: access, Refresh: refresh}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
