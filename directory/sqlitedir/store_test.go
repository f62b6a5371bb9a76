package sqlitedir

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	authcore "github.com/tradegate/authcore"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func seedAccount(t *testing.T, store *Store, id, email string, class authcore.AccountClass) {
	t.Helper()

	require.NoError(t, store.CreateAccount(context.Background(), &authcore.Account{
		ID:           id,
		Class:        class,
		Email:        email,
		Name:         "Acme " + id,
		PasswordHash: "$argon2id$fake",
		Status:       authcore.StatusActive,
		Role:         authcore.RoleManufacturer,
		Permissions:  []string{"catalog:read", "catalog:write"},
	}))
}

func TestCreateAndFindByEmail(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedAccount(t, store, "org-1", "Factory@Example.com", authcore.ClassOrganization)

	// Lookup is canonical: case and whitespace do not matter.
	account, err := store.FindByEmail(ctx, "  FACTORY@example.COM ", authcore.ClassOrganization)
	require.NoError(t, err)
	require.Equal(t, "org-1", account.ID)
	require.Equal(t, "factory@example.com", account.Email)
	require.Equal(t, authcore.ClassOrganization, account.Class)
	require.Equal(t, []string{"catalog:read", "catalog:write"}, account.Permissions)
	require.Zero(t, account.FailedAttempts)
	require.True(t, account.LockedUntil.IsZero())
}

func TestFindByEmail_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.FindByEmail(context.Background(), "nobody@example.com", authcore.ClassOrganization)
	require.ErrorIs(t, err, authcore.ErrAccountNotFound)
}

func TestClassesAreSeparatePopulations(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// The same email may exist in both tables; lookups never cross over.
	seedAccount(t, store, "admin-1", "shared@example.com", authcore.ClassAdmin)
	seedAccount(t, store, "org-1", "shared@example.com", authcore.ClassOrganization)

	admin, err := store.FindByEmail(ctx, "shared@example.com", authcore.ClassAdmin)
	require.NoError(t, err)
	require.Equal(t, "admin-1", admin.ID)

	org, err := store.FindByEmail(ctx, "shared@example.com", authcore.ClassOrganization)
	require.NoError(t, err)
	require.Equal(t, "org-1", org.ID)

	_, err = store.GetByID(ctx, "admin-1", authcore.ClassOrganization)
	require.ErrorIs(t, err, authcore.ErrAccountNotFound)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	store := newStore(t)
	seedAccount(t, store, "org-1", "factory@example.com", authcore.ClassOrganization)

	err := store.CreateAccount(context.Background(), &authcore.Account{
		ID:           "org-2",
		Class:        authcore.ClassOrganization,
		Email:        "FACTORY@example.com",
		PasswordHash: "$argon2id$fake",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRecordFailure_ArmsLockAtThreshold(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedAccount(t, store, "org-1", "factory@example.com", authcore.ClassOrganization)

	const threshold = 3

	for i := 1; i < threshold; i++ {
		attempts, lockedUntil, err := store.RecordFailure(ctx, "org-1", authcore.ClassOrganization, threshold, 30*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, attempts)
		require.True(t, lockedUntil.IsZero(), "lock must not arm below threshold")
	}

	attempts, lockedUntil, err := store.RecordFailure(ctx, "org-1", authcore.ClassOrganization, threshold, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, threshold, attempts)
	require.False(t, lockedUntil.IsZero())
	require.WithinDuration(t, time.Now().Add(30*time.Minute), lockedUntil, 5*time.Second)
}

func TestRecordFailure_UnknownAccount(t *testing.T) {
	store := newStore(t)

	_, _, err := store.RecordFailure(context.Background(), "ghost", authcore.ClassOrganization, 5, time.Minute)
	require.ErrorIs(t, err, authcore.ErrAccountNotFound)
}

func TestClearFailures(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedAccount(t, store, "org-1", "factory@example.com", authcore.ClassOrganization)

	for i := 0; i < 3; i++ {
		_, _, err := store.RecordFailure(ctx, "org-1", authcore.ClassOrganization, 3, 30*time.Minute)
		require.NoError(t, err)
	}

	require.NoError(t, store.ClearFailures(ctx, "org-1", authcore.ClassOrganization))

	account, err := store.GetByID(ctx, "org-1", authcore.ClassOrganization)
	require.NoError(t, err)
	require.Zero(t, account.FailedAttempts)
	require.True(t, account.LockedUntil.IsZero())

	require.ErrorIs(t, store.ClearFailures(ctx, "ghost", authcore.ClassOrganization), authcore.ErrAccountNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedAccount(t, store, "org-1", "factory@example.com", authcore.ClassOrganization)

	require.NoError(t, store.UpdatePasswordHash(ctx, "org-1", authcore.ClassOrganization, "$argon2id$new"))

	account, err := store.GetByID(ctx, "org-1", authcore.ClassOrganization)
	require.NoError(t, err)
	require.Equal(t, "$argon2id$new", account.PasswordHash)

	require.ErrorIs(t, store.UpdatePasswordHash(ctx, "ghost", authcore.ClassOrganization, "x"), authcore.ErrAccountNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedAccount(t, store, "org-1", "factory@example.com", authcore.ClassOrganization)

	at := time.Now().Add(-time.Minute).Truncate(time.Second)
	require.NoError(t, store.TouchLastLogin(ctx, "org-1", authcore.ClassOrganization, authcore.LoginContext{
		At:        at,
		IP:        "10.0.0.1",
		UserAgent: "go-test-agent",
	}))

	account, err := store.GetByID(ctx, "org-1", authcore.ClassOrganization)
	require.NoError(t, err)
	require.Equal(t, at.Unix(), account.LastLoginAt.Unix())
	require.Equal(t, "10.0.0.1", account.LastLoginIP)
	require.Equal(t, "go-test-agent", account.LastLoginUA)

	require.ErrorIs(t, store.TouchLastLogin(ctx, "ghost", authcore.ClassOrganization, authcore.LoginContext{}), authcore.ErrAccountNotFound)
}
