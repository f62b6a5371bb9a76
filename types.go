package authcore

import (
	"context"
	"strings"
	"time"

	"github.com/tradegate/authcore/jwt"
)

// AccountClass separates the two account populations that share the login
// entry point: platform-operator accounts and tenant company accounts.
// Lookup order is fixed — administrative accounts always resolve first.
type AccountClass uint8

const (
	// ClassAdmin is an administrative (platform-operator) account.
	ClassAdmin AccountClass = iota
	// ClassOrganization is an organizational (company) account.
	ClassOrganization
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c AccountClass) String() string {
	switch c {
	case ClassAdmin:
		return "admin"
	case ClassOrganization:
		return "organization"
	default:
		return "unknown"
	}
}

// AccountStatus represents the lifecycle state of an account.
// Only [StatusActive] accounts may authenticate.
type AccountStatus uint8

const (
	// StatusActive is an exported constant or variable used by the authentication engine.
	StatusActive AccountStatus = iota
	// StatusPending is an exported constant or variable used by the authentication engine.
	StatusPending
	// StatusBlocked is an exported constant or variable used by the authentication engine.
	StatusBlocked
	// StatusSuspended is an exported constant or variable used by the authentication engine.
	StatusSuspended
	// StatusRejected is an exported constant or variable used by the authentication engine.
	StatusRejected
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s AccountStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPending:
		return "pending"
	case StatusBlocked:
		return "blocked"
	case StatusSuspended:
		return "suspended"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Well-known roles. Administrative roles route to the admin console;
// organizational types route to their respective dashboards.
const (
	// RoleSuperAdmin is an exported constant or variable used by the authentication engine.
	RoleSuperAdmin = "super_admin"
	// RoleAdmin is an exported constant or variable used by the authentication engine.
	RoleAdmin = "admin"
	// RoleModerator is an exported constant or variable used by the authentication engine.
	RoleModerator = "moderator"
	// RoleManufacturer is an exported constant or variable used by the authentication engine.
	RoleManufacturer = "manufacturer"
	// RoleDistributor is an exported constant or variable used by the authentication engine.
	RoleDistributor = "distributor"
)

// FailureCode is the closed enumeration of machine-readable authentication
// outcomes carried on [AuthResult] and [RefreshResult].
type FailureCode string

const (
	// CodeInvalidCredentials covers both unknown email and wrong password;
	// the two are deliberately indistinguishable.
	CodeInvalidCredentials FailureCode = "INVALID_CREDENTIALS"
	// CodeAccountLocked is an exported constant or variable used by the authentication engine.
	CodeAccountLocked FailureCode = "ACCOUNT_LOCKED"
	// CodeAccountPending is an exported constant or variable used by the authentication engine.
	CodeAccountPending FailureCode = "ACCOUNT_PENDING"
	// CodeAccountBlocked is an exported constant or variable used by the authentication engine.
	CodeAccountBlocked FailureCode = "ACCOUNT_BLOCKED"
	// CodeAccountSuspended is an exported constant or variable used by the authentication engine.
	CodeAccountSuspended FailureCode = "ACCOUNT_SUSPENDED"
	// CodeAccountRejected is an exported constant or variable used by the authentication engine.
	CodeAccountRejected FailureCode = "ACCOUNT_REJECTED"
	// CodeRateLimited is an exported constant or variable used by the authentication engine.
	CodeRateLimited FailureCode = "RATE_LIMITED"
	// CodeAuthenticationFailed is an exported constant or variable used by the authentication engine.
	CodeAuthenticationFailed FailureCode = "AUTHENTICATION_FAILED"
)

// Account is the credential record shared by both account classes. The
// password hash never leaves the verifier; lockout state is mutated only
// through atomic [Directory] operations.
type Account struct {
	ID           string
	Class        AccountClass
	Email        string
	Name         string
	PasswordHash string
	Status       AccountStatus
	Role         string
	Permissions  []string

	FailedAttempts int
	LockedUntil    time.Time // zero when not locked

	LastLoginAt time.Time
	LastLoginIP string
	LastLoginUA string
}

// LoginContext carries the audit fields written on a successful login.
type LoginContext struct {
	IP        string
	UserAgent string
	At        time.Time
}

// Directory is the credential-store contract that callers must implement to
// integrate authcore with their account database. All counter mutations are
// single-record atomic updates; the engine never does read-modify-write on
// lockout state.
//
// FindByEmail and GetByID return [ErrAccountNotFound] when no record
// matches. Email lookups are case-insensitive; implementations store and
// compare the canonical lowercase form (see [CanonicalEmail]).
type Directory interface {
	FindByEmail(ctx context.Context, email string, class AccountClass) (*Account, error)
	GetByID(ctx context.Context, id string, class AccountClass) (*Account, error)

	// RecordFailure atomically increments the account's failure counter and,
	// when the incremented count reaches threshold, sets the lock expiry to
	// now+lockFor in the same update. It returns the post-increment counter
	// and the current lock expiry (zero when unlocked).
	RecordFailure(ctx context.Context, id string, class AccountClass, threshold int, lockFor time.Duration) (int, time.Time, error)

	// ClearFailures atomically resets the failure counter and lock expiry.
	ClearFailures(ctx context.Context, id string, class AccountClass) error

	UpdatePasswordHash(ctx context.Context, id string, class AccountClass, newHash string) error
	TouchLastLogin(ctx context.Context, id string, class AccountClass, login LoginContext) error
}

// TokenPair is the signed access/refresh credential pair returned on
// successful authentication. Both tokens embed the same session identifier.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// AuthResult is the structured outcome of [Engine.Authenticate]. Failures
// never escape as errors; Code and Message describe the terminal state.
type AuthResult struct {
	Success bool
	Code    FailureCode // empty on success
	Message string

	AccountID      string
	Class          AccountClass
	Role           string
	Email          string
	Name           string
	DashboardRoute string

	// RemainingMinutes is set only with CodeAccountLocked.
	RemainingMinutes int

	Tokens *TokenPair
}

// RefreshResult is the structured outcome of [Engine.RefreshAccessToken].
type RefreshResult struct {
	Success bool
	Code    FailureCode
	Message string

	AccountID string
	Class     AccountClass

	Tokens *TokenPair
}

// Claims is the verified token payload returned by [Engine.VerifyToken].
type Claims = jwt.Claims

// CanonicalEmail lowercases and trims an email address. All directory
// lookups and stored emails use this form.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
