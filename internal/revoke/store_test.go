package revoke

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStore_AddAndContains(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", time.Hour); err != nil {
		t.Fatal(err)
	}

	revoked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected jti-1 to be revoked")
	}

	revoked, err = store.Contains(ctx, "jti-2")
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Fatal("jti-2 was never revoked")
	}
}

func TestMemoryStore_ExpiredEntriesVanish(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	revoked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Fatal("expired revocation must not report as revoked")
	}

	// The lazy check also removed the entry.
	store.mu.Lock()
	_, ok := store.entries["jti-1"]
	store.mu.Unlock()
	if ok {
		t.Fatal("expired entry should have been deleted on read")
	}
}

func TestMemoryStore_AddKeepsLaterExpiry(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	store.Add(ctx, "jti-1", time.Hour)
	first := store.entries["jti-1"]

	// A shorter re-add must not shrink the revocation.
	store.Add(ctx, "jti-1", time.Minute)
	if store.entries["jti-1"] != first {
		t.Fatal("re-add with a shorter ttl shrank the revocation window")
	}
}

func TestMemoryStore_NonPositiveTTLIsNoOp(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", 0); err != nil {
		t.Fatal(err)
	}
	revoked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Fatal("a token at or past expiry needs no revocation entry")
	}
}

func TestMemoryStore_SweepRemovesExpired(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	store.Add(ctx, "live", time.Hour)
	store.Add(ctx, "dead", time.Nanosecond)

	time.Sleep(time.Millisecond)
	store.sweep(time.Now())

	store.mu.Lock()
	_, liveOK := store.entries["live"]
	_, deadOK := store.entries["dead"]
	store.mu.Unlock()

	if !liveOK {
		t.Fatal("live entry swept too early")
	}
	if deadOK {
		t.Fatal("expired entry survived the sweep")
	}
}

func TestRedisStore_AddContainsExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "")
	ctx := context.Background()

	if err := store.Add(ctx, "jti-1", time.Minute); err != nil {
		t.Fatal(err)
	}

	revoked, err := store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected jti-1 to be revoked")
	}

	mr.FastForward(2 * time.Minute)

	revoked, err = store.Contains(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Fatal("revocation should lapse with the key's ttl")
	}
}
