package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tradegate/authcore/internal/rate"
	"github.com/tradegate/authcore/internal/revoke"
	"github.com/tradegate/authcore/jwt"
	"github.com/tradegate/authcore/password"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	directory    Directory
	rateLimiter  *rate.Limiter
	revocations  revoke.Store
	csrf         *csrfStore
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	jwtManager   *jwt.Manager
	closers      []func()
}

// User-facing messages. Unknown-email and wrong-password share one message
// so failures never reveal whether an address is registered.
const (
	msgInvalidCredentials   = "Invalid email or password."
	msgRateLimited          = "Too many attempts. Please try again later."
	msgAuthenticationFailed = "Authentication failed. Please try again."
	msgAccountPending       = "Your account is awaiting approval."
	msgAccountBlocked       = "Your account has been blocked. Contact support."
	msgAccountSuspended     = "Your account is suspended. Contact support."
	msgAccountRejected      = "Your registration was not approved."
	msgSessionInvalid       = "Your session is no longer valid. Please sign in again."
)

func lockedMessage(minutes int) string {
	if minutes <= 1 {
		return "Account locked due to repeated failed attempts. Try again in 1 minute."
	}
	return fmt.Sprintf("Account locked due to repeated failed attempts. Try again in %d minutes.", minutes)
}

// Close releases background resources: the audit dispatcher and any
// in-process store janitors. The engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	for _, fn := range e.closers {
		fn()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate runs the full login sequence for an email/password pair:
// rate check, account lookup (administrative accounts resolve before
// organizational ones), status gate, lockout gate, password verification,
// then token issuance and routing. Failures are reported on the result, not
// as errors; every terminal state carries a FailureCode and a safe message.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) *AuthResult {
	if e == nil || e.passwordHash == nil || e.directory == nil {
		return failure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}

	ip := clientIPFromContext(ctx)
	email = CanonicalEmail(email)

	if e.rateLimiter != nil {
		// Only the login budget gates this path, and only failed attempts
		// are charged against it. The stricter short-window budget belongs
		// to callers outside the password flow (see [Engine.CheckRate]);
		// folding it in here would throttle logins before the account
		// lockout can report itself.
		if err := e.rateLimiter.Check(ctx, rate.OpLogin, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return e.rateLimitedResult(ctx, email)
			}
			// A broken limiter backend must not take logins down with it.
			log.Printf("authcore: rate limiter check failed: %v", err)
		}
	}

	if email == "" || plaintext == "" {
		e.chargeLoginAttempt(ctx, ip)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, AuditActor{}, ErrInvalidCredentials, map[string]string{"reason": "empty_input"})
		return failure(CodeInvalidCredentials, msgInvalidCredentials)
	}

	account, err := e.lookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Unknown email burns the same budget and yields the same
			// response as a wrong password.
			e.chargeLoginAttempt(ctx, ip)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, AuditLoginFailure, false, AuditActor{}, ErrInvalidCredentials, map[string]string{"reason": "unknown_email"})
			return failure(CodeInvalidCredentials, msgInvalidCredentials)
		}

		log.Printf("authcore: directory lookup failed: %v", err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, AuditActor{}, ErrDirectoryUnavailable, nil)
		return failure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}

	if account.Status != StatusActive {
		code, msg := statusFailure(account.Status)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, accountActor(account), ErrAccountInactive, map[string]string{"status": account.Status.String()})
		return failure(code, msg)
	}

	now := time.Now()
	if decision := EvaluateLockout(account.FailedAttempts, account.LockedUntil, e.config.Lockout.Threshold, now); decision.Locked {
		e.metricInc(MetricLockoutRefused)
		e.emitAudit(ctx, AuditLoginFailure, false, accountActor(account), ErrAccountLocked, nil)
		return lockedResult(decision.RemainingMinutes())
	}

	ok, err := e.passwordHash.Verify(plaintext, account.PasswordHash)
	if err != nil {
		log.Printf("authcore: password verification failed for account %s: %v", account.ID, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, accountActor(account), err, nil)
		return failure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}
	if !ok {
		return e.wrongPassword(ctx, account, ip)
	}

	return e.succeed(ctx, account, ip, plaintext)
}

func (e *Engine) lookupByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := e.directory.FindByEmail(ctx, email, ClassAdmin)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	return e.directory.FindByEmail(ctx, email, ClassOrganization)
}

func (e *Engine) wrongPassword(ctx context.Context, account *Account, ip string) *AuthResult {
	attempts, lockedUntil, err := e.directory.RecordFailure(ctx, account.ID, account.Class, e.config.Lockout.Threshold, e.config.Lockout.Duration)
	if err != nil {
		// The attempt still fails; we just lose one counter increment.
		log.Printf("authcore: failed to record login failure for account %s: %v", account.ID, err)
		attempts = account.FailedAttempts + 1
		lockedUntil = account.LockedUntil
	}

	e.chargeLoginAttempt(ctx, ip)
	e.metricInc(MetricLoginFailure)

	// Evaluated against a fresh clock: the directory stamped the lock
	// expiry after password verification, which is deliberately slow.
	if decision := EvaluateLockout(attempts, lockedUntil, e.config.Lockout.Threshold, time.Now()); decision.Locked {
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, AuditAccountLocked, false, accountActor(account), ErrAccountLocked, map[string]string{"failed_attempts": fmt.Sprintf("%d", attempts)})
		return lockedResult(decision.RemainingMinutes())
	}

	e.emitAudit(ctx, AuditLoginFailure, false, accountActor(account), ErrInvalidCredentials, nil)
	return failure(CodeInvalidCredentials, msgInvalidCredentials)
}

func (e *Engine) succeed(ctx context.Context, account *Account, ip, plaintext string) *AuthResult {
	if account.FailedAttempts > 0 || !account.LockedUntil.IsZero() {
		if err := e.directory.ClearFailures(ctx, account.ID, account.Class); err != nil {
			log.Printf("authcore: failed to clear failure counter for account %s: %v", account.ID, err)
		}
	}
	if e.rateLimiter != nil {
		if err := e.rateLimiter.Reset(ctx, rate.OpLogin, ip); err != nil {
			log.Printf("authcore: rate limiter reset failed: %v", err)
		}
		if err := e.rateLimiter.Reset(ctx, rate.OpStrictLogin, ip); err != nil {
			log.Printf("authcore: strict rate limiter reset failed: %v", err)
		}
	}

	e.upgradeHash(ctx, account, plaintext)

	tokens, err := e.issueTokenPair(account)
	if err != nil {
		log.Printf("authcore: token issuance failed for account %s: %v", account.ID, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, accountActor(account), err, nil)
		return failure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}

	route, _ := e.dashboardRoute(account)

	go e.touchLastLogin(account.ID, account.Class, LoginContext{
		IP:        ip,
		UserAgent: userAgentFromContext(ctx),
		At:        time.Now(),
	})

	e.metricInc(MetricLoginSuccess)
	actor := accountActor(account)
	actor.SessionID = tokens.SessionID
	e.emitAudit(ctx, AuditLoginSuccess, true, actor, nil, nil)

	return &AuthResult{
		Success:        true,
		AccountID:      account.ID,
		Class:          account.Class,
		Role:           account.Role,
		Email:          account.Email,
		Name:           account.Name,
		DashboardRoute: route,
		Tokens:         tokens,
	}
}

// upgradeHash rehashes legacy or under-parameterized credentials after a
// successful verification, while the verified plaintext is still in scope.
// Best effort: a failed rewrite never affects the login outcome.
func (e *Engine) upgradeHash(ctx context.Context, account *Account, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needs, err := e.passwordHash.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		log.Printf("authcore: hash upgrade failed for account %s: %v", account.ID, err)
		return
	}
	if err := e.directory.UpdatePasswordHash(ctx, account.ID, account.Class, newHash); err != nil {
		log.Printf("authcore: failed to store upgraded hash for account %s: %v", account.ID, err)
	}
}

// touchLastLogin records the last-login audit fields off the hot path. A
// failure here is logged and forgotten; the login has already succeeded.
func (e *Engine) touchLastLogin(id string, class AccountClass, login LoginContext) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.directory.TouchLastLogin(ctx, id, class, login); err != nil {
		log.Printf("authcore: failed to record last login for account %s: %v", id, err)
	}
}

func (e *Engine) chargeLoginAttempt(ctx context.Context, ip string) {
	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.RecordFailure(ctx, rate.OpLogin, ip); err != nil {
		log.Printf("authcore: rate limiter record failed: %v", err)
	}
}

func (e *Engine) rateLimitedResult(ctx context.Context, email string) *AuthResult {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, AuditLoginRateLimited, false, AuditActor{}, ErrLoginRateLimited, map[string]string{"identifier": email})
	return failure(CodeRateLimited, msgRateLimited)
}

// GetAccount re-fetches a live account and enforces the status gate, for
// callers holding a verified token who need current identity data.
//
// GetAccount may return an error when input validation, dependency calls, or security checks fail.
// GetAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetAccount(ctx context.Context, id string, class AccountClass) (*Account, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.directory.GetByID(ctx, id, class)
	if err != nil {
		return nil, err
	}
	if account.Status != StatusActive {
		return nil, ErrAccountInactive
	}

	return account, nil
}

// CheckRate exposes the sliding-window budgets for operations outside the
// password flow: registration and password-reset submissions, plus the
// strict short-window budget for sensitive surfaces that want tighter
// throttling than the login path itself. It returns [ErrLoginRateLimited]
// when the budget is exhausted and records the attempt otherwise.
//
// CheckRate may return an error when input validation, dependency calls, or security checks fail.
// CheckRate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckRate(ctx context.Context, op RateOp) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.rateLimiter == nil {
		return nil
	}

	var rop rate.Op
	switch op {
	case RateOpRegistration:
		rop = rate.OpRegistration
	case RateOpPasswordReset:
		rop = rate.OpPasswordReset
	case RateOpStrictLogin:
		rop = rate.OpStrictLogin
	default:
		return fmt.Errorf("unknown rate operation %q", op)
	}

	ip := clientIPFromContext(ctx)
	if err := e.rateLimiter.Check(ctx, rop, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			return ErrLoginRateLimited
		}
		log.Printf("authcore: rate limiter check failed: %v", err)
		return nil
	}
	if err := e.rateLimiter.RecordFailure(ctx, rop, ip); err != nil {
		log.Printf("authcore: rate limiter record failed: %v", err)
	}

	return nil
}

// RateOp names the operations callers can charge through [Engine.CheckRate].
type RateOp string

const (
	// RateOpRegistration is an exported constant or variable used by the authentication engine.
	RateOpRegistration RateOp = "registration"
	// RateOpPasswordReset is an exported constant or variable used by the authentication engine.
	RateOpPasswordReset RateOp = "password_reset"
	// RateOpStrictLogin is an exported constant or variable used by the authentication engine.
	RateOpStrictLogin RateOp = "strict_login"
)

func statusFailure(status AccountStatus) (FailureCode, string) {
	switch status {
	case StatusPending:
		return CodeAccountPending, msgAccountPending
	case StatusBlocked:
		return CodeAccountBlocked, msgAccountBlocked
	case StatusSuspended:
		return CodeAccountSuspended, msgAccountSuspended
	case StatusRejected:
		return CodeAccountRejected, msgAccountRejected
	default:
		return CodeAuthenticationFailed, msgAuthenticationFailed
	}
}

func failure(code FailureCode, msg string) *AuthResult {
	return &AuthResult{Code: code, Message: msg}
}

func lockedResult(minutes int) *AuthResult {
	return &AuthResult{
		Code:             CodeAccountLocked,
		Message:          lockedMessage(minutes),
		RemainingMinutes: minutes,
	}
}
