// Package password hashes and verifies credentials. New hashes always use
// Argon2id in PHC string format; verification also accepts legacy bcrypt
// hashes so existing credential records keep working until they are
// rehashed on a successful login.
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownHashFormat reports a stored hash in neither Argon2id PHC nor
// bcrypt format.
var ErrUnknownHashFormat = errors.New("password: unknown hash format")

// Hasher defines a public type used by authcore APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	config Config
}

// NewHasher describes the newhasher operation and its observable behavior.
//
// NewHasher may return an error when input validation, dependency calls, or security checks fail.
// NewHasher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// Hash produces an Argon2id PHC hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	// Raw string bytes exactly as provided, no Unicode normalization.
	return h.hashArgon2(password)
}

// Verify checks password against a stored hash, dispatching on the hash
// format. A wrong password is (false, nil); errors are reserved for
// malformed or unsupported stored hashes.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return h.verifyArgon2(password, encodedHash)
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsUpgrade reports whether a stored hash should be replaced after the
// next successful verification. All bcrypt hashes qualify; Argon2id hashes
// qualify when their parameters fall below the configured ones.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return true, nil
	}
	if strings.HasPrefix(encodedHash, "$"+algorithmID+"$") {
		return h.argon2NeedsUpgrade(encodedHash)
	}
	return false, ErrUnknownHashFormat
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}
