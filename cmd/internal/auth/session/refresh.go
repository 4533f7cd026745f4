package session

import (
	"crypto/rand"
	"encoding/base64"

	"tally/cmd/security/token"
)

func newOpaqueRefreshCredential(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)

	hashHex = token.HashCredentialHex(plain) // 64 hex chars

	return plain, hashHex, nil
}

func hashRefreshCredentialHex(s string) string {
	return token.HashCredentialHex(s)
}
