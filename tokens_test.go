package authcore_test

import (
	"context"
	"testing"

	authcore "github.com/tradegate/authcore"
)

func mustLogin(t *testing.T, engine *authcore.Engine, email string) *authcore.AuthResult {
	t.Helper()
	result := engine.Authenticate(loginCtx("10.0.0.1"), email, testPassword)
	if !result.Success {
		t.Fatalf("login failed: code=%s message=%q", result.Code, result.Message)
	}
	return result
}

func TestVerifyToken_RoundTrip(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	result := mustLogin(t, engine, "factory@example.com")

	claims, ok := engine.VerifyToken(context.Background(), result.Tokens.AccessToken)
	if !ok {
		t.Fatal("expected access token to verify")
	}
	if claims.AccountID != "org-1" {
		t.Fatalf("expected account org-1, got %q", claims.AccountID)
	}
	if claims.Role != authcore.RoleManufacturer {
		t.Fatalf("expected manufacturer role, got %q", claims.Role)
	}
	if claims.SID != result.Tokens.SessionID {
		t.Fatalf("session id mismatch: %q vs %q", claims.SID, result.Tokens.SessionID)
	}
}

func TestVerifyToken_RejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	result := mustLogin(t, engine, "factory@example.com")

	if _, ok := engine.VerifyToken(context.Background(), result.Tokens.RefreshToken); ok {
		t.Fatal("a refresh token must not pass access verification")
	}
}

func TestVerifyToken_RejectsGarbage(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, ok := engine.VerifyToken(context.Background(), token); ok {
			t.Fatalf("expected rejection for %q", token)
		}
	}
}

func TestRefresh_IssuesNewPairWithSameSession(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")

	refreshed := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	if !refreshed.Success {
		t.Fatalf("refresh failed: code=%s", refreshed.Code)
	}
	if refreshed.Tokens.SessionID != login.Tokens.SessionID {
		t.Fatal("refresh must preserve the session id")
	}
	if refreshed.Tokens.AccessToken == login.Tokens.AccessToken {
		t.Fatal("expected a fresh access token")
	}

	claims, ok := engine.VerifyToken(context.Background(), refreshed.Tokens.AccessToken)
	if !ok {
		t.Fatal("refreshed access token must verify")
	}
	if claims.SID != login.Tokens.SessionID {
		t.Fatal("refreshed claims carry the original session id")
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")

	result := engine.RefreshAccessToken(context.Background(), login.Tokens.AccessToken)
	if result.Success {
		t.Fatal("an access token must not be exchangeable")
	}
}

func TestRefresh_ReappliesStatusGate(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")

	// Access token still verifies after suspension; the session dies at
	// the next refresh.
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusSuspended)

	if _, ok := engine.VerifyToken(context.Background(), login.Tokens.AccessToken); !ok {
		t.Fatal("access token should still verify until it expires")
	}

	result := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	if result.Success {
		t.Fatal("refresh must fail for a suspended account")
	}
	if result.Code != authcore.CodeAccountSuspended {
		t.Fatalf("expected ACCOUNT_SUSPENDED, got %s", result.Code)
	}
}

func TestRefresh_SameTokenReusableByDefault(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")

	first := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	second := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	if !first.Success || !second.Success {
		t.Fatalf("expected both refreshes to succeed without rotation, got %s / %s", first.Code, second.Code)
	}
}

func TestRefresh_RotationRevokesConsumedToken(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens.RotateOnRefresh = true
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")

	first := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	if !first.Success {
		t.Fatalf("first refresh failed: %s", first.Code)
	}

	second := engine.RefreshAccessToken(context.Background(), login.Tokens.RefreshToken)
	if second.Success {
		t.Fatal("rotated refresh token must not be reusable")
	}

	// The replacement token still works.
	third := engine.RefreshAccessToken(context.Background(), first.Tokens.RefreshToken)
	if !third.Success {
		t.Fatalf("replacement refresh token failed: %s", third.Code)
	}
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")
	ctx := context.Background()

	if err := engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, ok := engine.VerifyToken(ctx, login.Tokens.AccessToken); ok {
		t.Fatal("access token must be dead after logout")
	}
	if result := engine.RefreshAccessToken(ctx, login.Tokens.RefreshToken); result.Success {
		t.Fatal("refresh token must be dead after logout")
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := mustLogin(t, engine, "factory@example.com")
	ctx := context.Background()

	if err := engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("first logout failed: %v", err)
	}
	if err := engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
}

func TestLogout_ToleratesGarbageAndEmptyTokens(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	if err := engine.Logout(ctx, "", ""); err != nil {
		t.Fatalf("empty logout failed: %v", err)
	}
	if err := engine.Logout(ctx, "not-a-jwt", "also-not-a-jwt"); err != nil {
		t.Fatalf("garbage logout failed: %v", err)
	}
}

func TestLogout_DoesNotKillOtherSessions(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	first := mustLogin(t, engine, "factory@example.com")
	second := mustLogin(t, engine, "factory@example.com")

	ctx := context.Background()
	if err := engine.Logout(ctx, first.Tokens.AccessToken, first.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, ok := engine.VerifyToken(ctx, second.Tokens.AccessToken); !ok {
		t.Fatal("an unrelated session must survive another session's logout")
	}
}
