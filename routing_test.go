package authcore_test

import (
	"testing"

	authcore "github.com/tradegate/authcore"
)

func TestAuthenticate_DashboardRoutes(t *testing.T) {
	cfg := testConfig()

	cases := []struct {
		role  string
		class authcore.AccountClass
		want  string
	}{
		{authcore.RoleSuperAdmin, authcore.ClassAdmin, cfg.Routing.AdminConsole},
		{authcore.RoleAdmin, authcore.ClassAdmin, cfg.Routing.AdminConsole},
		{authcore.RoleModerator, authcore.ClassAdmin, cfg.Routing.AdminConsole},
		{authcore.RoleManufacturer, authcore.ClassOrganization, cfg.Routing.Manufacturer},
		{authcore.RoleDistributor, authcore.ClassOrganization, cfg.Routing.Distributor},
	}

	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			cfg := testConfig()
			engine, dir := newTestEngine(t, cfg)
			email := tc.role + "@example.com"
			if tc.class == authcore.ClassAdmin {
				seedAdminAccount(t, dir, cfg, "acct-"+tc.role, email, tc.role)
			} else {
				seedOrgAccount(t, dir, cfg, "acct-"+tc.role, email, tc.role, authcore.StatusActive)
			}

			result := engine.Authenticate(loginCtx("10.0.0.1"), email, testPassword)
			if !result.Success {
				t.Fatalf("login failed: code=%s", result.Code)
			}
			if result.DashboardRoute != tc.want {
				t.Fatalf("expected route %q, got %q", tc.want, result.DashboardRoute)
			}
		})
	}
}

func TestAuthenticate_UnknownRoleFallsBack(t *testing.T) {
	cfg := testConfig()
	engine, dir := newTestEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "warehouse@example.com", "warehouse", authcore.StatusActive)

	result := engine.Authenticate(loginCtx("10.0.0.1"), "warehouse@example.com", testPassword)
	if !result.Success {
		t.Fatalf("login failed: code=%s", result.Code)
	}
	if result.DashboardRoute != cfg.Routing.Fallback {
		t.Fatalf("expected fallback route %q, got %q", cfg.Routing.Fallback, result.DashboardRoute)
	}
}
