package authcore

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned by Directory implementations when no
	// record matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = errors.New("account not active")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrDirectoryUnavailable is an exported constant or variable used by the authentication engine.
	ErrDirectoryUnavailable = errors.New("account directory unavailable")
	// ErrRevocationUnavailable is an exported constant or variable used by the authentication engine.
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	// ErrCSRFInvalid is an exported constant or variable used by the authentication engine.
	ErrCSRFInvalid = errors.New("csrf token invalid")
	// ErrCSRFExpired is an exported constant or variable used by the authentication engine.
	ErrCSRFExpired = errors.New("csrf token expired")
	// ErrCSRFContextMismatch is an exported constant or variable used by the authentication engine.
	ErrCSRFContextMismatch = errors.New("csrf token issued for a different client")
)
