package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// NewSecret returns n random bytes encoded as unpadded base64url.
func NewSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashBindingValue hashes a client binding value (IP or User-Agent) so the
// raw value never has to be retained alongside issued tokens.
func HashBindingValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}
