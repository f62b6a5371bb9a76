// Package revoke tracks revoked token identifiers until their natural
// expiry. The set only ever needs to hold a token for as long as the token
// itself would otherwise remain valid.
package revoke

import (
	"context"
	"time"
)

// Store is the revocation set. Implementations must be safe for concurrent
// use.
type Store interface {
	// Add marks tokenID revoked for ttl. Adding an already-revoked ID is a
	// no-op; revocation is idempotent.
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	// Contains reports whether tokenID is currently revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)
}
