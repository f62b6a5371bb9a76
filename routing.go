package authcore

import "log"

// dashboardRoute resolves the post-login destination for an account. The
// second return reports whether the role mapped to a known destination;
// unmapped roles fall back to the configured default and are logged as a
// data quality problem rather than failing the login.
func (e *Engine) dashboardRoute(account *Account) (string, bool) {
	switch account.Role {
	case RoleSuperAdmin, RoleAdmin, RoleModerator:
		return e.config.Routing.AdminConsole, true
	case RoleManufacturer:
		return e.config.Routing.Manufacturer, true
	case RoleDistributor:
		return e.config.Routing.Distributor, true
	default:
		log.Printf("authcore: no dashboard route for role %q (account=%s class=%s), using fallback", account.Role, account.ID, account.Class)
		return e.config.Routing.Fallback, false
	}
}
