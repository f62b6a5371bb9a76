package authcore_test

import (
	"context"
	"testing"

	authcore "github.com/tradegate/authcore"
)

func TestAuthenticate_RateLimitKicksInByAddress(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.LoginMaxAttempts = 3
	// Keep the account lockout out of the way.
	cfg.Lockout.Threshold = 100
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	ctx := loginCtx("10.0.0.1")

	for i := 0; i < cfg.RateLimit.LoginMaxAttempts; i++ {
		result := engine.Authenticate(ctx, "factory@example.com", wrongPassword)
		if result.Code != authcore.CodeInvalidCredentials {
			t.Fatalf("attempt %d: expected INVALID_CREDENTIALS, got %s", i+1, result.Code)
		}
	}

	// Budget exhausted: even the correct password is refused.
	result := engine.Authenticate(ctx, "factory@example.com", testPassword)
	if result.Code != authcore.CodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %s", result.Code)
	}
}

func TestAuthenticate_RateLimitSharedAcrossEmailsFromOneAddress(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.LoginMaxAttempts = 3
	cfg.Lockout.Threshold = 100
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)
	seedOrgAccount(t, dir, cfg, "org-2", "depot@example.com", authcore.RoleDistributor, authcore.StatusActive)

	ctx := loginCtx("10.0.0.1")

	// The budget is keyed by address, so attempts against different
	// emails all draw from the same pool.
	engine.Authenticate(ctx, "factory@example.com", wrongPassword)
	engine.Authenticate(ctx, "depot@example.com", wrongPassword)
	engine.Authenticate(ctx, "nobody@example.com", wrongPassword)

	result := engine.Authenticate(ctx, "factory@example.com", testPassword)
	if result.Code != authcore.CodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %s", result.Code)
	}
}

func TestAuthenticate_RateLimitIndependentPerAddress(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.LoginMaxAttempts = 3
	cfg.Lockout.Threshold = 100
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	for i := 0; i < cfg.RateLimit.LoginMaxAttempts; i++ {
		engine.Authenticate(loginCtx("10.0.0.1"), "factory@example.com", wrongPassword)
	}

	// A different address keeps its own budget.
	result := engine.Authenticate(loginCtx("10.0.0.2"), "factory@example.com", testPassword)
	if !result.Success {
		t.Fatalf("expected success from a fresh address, got code=%s", result.Code)
	}
}

func TestAuthenticate_SuccessClearsAddressBudget(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.LoginMaxAttempts = 3
	cfg.Lockout.Threshold = 100
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	ctx := loginCtx("10.0.0.1")

	engine.Authenticate(ctx, "factory@example.com", wrongPassword)
	engine.Authenticate(ctx, "factory@example.com", wrongPassword)

	if result := engine.Authenticate(ctx, "factory@example.com", testPassword); !result.Success {
		t.Fatalf("expected success under budget, got code=%s", result.Code)
	}

	// History cleared: the full budget is available again.
	for i := 0; i < cfg.RateLimit.LoginMaxAttempts-1; i++ {
		result := engine.Authenticate(ctx, "factory@example.com", wrongPassword)
		if result.Code != authcore.CodeInvalidCredentials {
			t.Fatalf("post-reset attempt %d: expected INVALID_CREDENTIALS, got %s", i+1, result.Code)
		}
	}
}

func TestCheckRate_StrictLoginBudget(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.StrictLoginMaxAttempts = 2
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	ctx := loginCtx("10.0.0.1")

	for i := 0; i < cfg.RateLimit.StrictLoginMaxAttempts; i++ {
		if err := engine.CheckRate(ctx, authcore.RateOpStrictLogin); err != nil {
			t.Fatalf("attempt %d: expected budget available, got %v", i+1, err)
		}
	}

	if err := engine.CheckRate(ctx, authcore.RateOpStrictLogin); err != authcore.ErrLoginRateLimited {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	// The strict budget throttles callers that charge it explicitly; the
	// password flow itself only answers to the wide login budget.
	if result := engine.Authenticate(ctx, "factory@example.com", testPassword); !result.Success {
		t.Fatalf("expected login to succeed, got code=%s", result.Code)
	}
}

func TestCheckRate_RegistrationBudget(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RegistrationMaxAttempts = 2
	engine, _ := newTestEngine(t, cfg)

	ctx := loginCtx("10.0.0.1")

	for i := 0; i < cfg.RateLimit.RegistrationMaxAttempts; i++ {
		if err := engine.CheckRate(ctx, authcore.RateOpRegistration); err != nil {
			t.Fatalf("attempt %d: expected budget available, got %v", i+1, err)
		}
	}

	if err := engine.CheckRate(ctx, authcore.RateOpRegistration); err != authcore.ErrLoginRateLimited {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	// Password-reset budget is independent of registration.
	if err := engine.CheckRate(ctx, authcore.RateOpPasswordReset); err != nil {
		t.Fatalf("expected independent password-reset budget, got %v", err)
	}
}

func TestCheckRate_UnknownOpFails(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)

	if err := engine.CheckRate(context.Background(), authcore.RateOp("bogus")); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestAuthenticate_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	cfg.Lockout.Threshold = 100
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	ctx := loginCtx("10.0.0.1")
	for i := 0; i < 20; i++ {
		result := engine.Authenticate(ctx, "factory@example.com", wrongPassword)
		if result.Code == authcore.CodeRateLimited {
			t.Fatalf("attempt %d: unexpected RATE_LIMITED with limiting disabled", i+1)
		}
	}
}
