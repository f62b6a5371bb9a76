package authcore

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tradegate/authcore/jwt"
)

// issueTokenPair starts a new session: fresh session identifier, fresh
// access and refresh tokens.
func (e *Engine) issueTokenPair(account *Account) (*TokenPair, error) {
	return e.reissuePair(account, uuid.NewString())
}

// reissuePair mints a fresh pair for an existing session. Both tokens keep
// the session identifier so audit trails survive refreshes.
func (e *Engine) reissuePair(account *Account, sid string) (*TokenPair, error) {
	payload := jwt.Payload{
		AccountID:   account.ID,
		Class:       uint8(account.Class),
		Role:        account.Role,
		Email:       account.Email,
		Name:        account.Name,
		Permissions: account.Permissions,
	}

	access, err := e.jwtManager.Sign(jwt.KindAccess, payload, sid, uuid.NewString())
	if err != nil {
		return nil, err
	}
	refresh, err := e.jwtManager.Sign(jwt.KindRefresh, payload, sid, uuid.NewString())
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTokenIssued)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sid,
	}, nil
}

// VerifyToken validates an access token: signature, expiry, kind, and
// absence from the revocation set. All failure modes collapse to false so
// middleware cannot leak why a token was rejected.
//
// VerifyToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyToken(ctx context.Context, token string) (*Claims, bool) {
	if e == nil || e.jwtManager == nil || token == "" {
		return nil, false
	}

	claims, err := e.jwtManager.Parse(jwt.KindAccess, token)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, false
	}

	if e.revocations != nil {
		revoked, err := e.revocations.Contains(ctx, claims.ID)
		if err != nil {
			// Revocation backend down: fail closed. A valid session can
			// retry; a revoked token must never pass.
			log.Printf("authcore: revocation check failed: %v", err)
			e.metricInc(MetricTokenRejected)
			return nil, false
		}
		if revoked {
			e.metricInc(MetricTokenRejected)
			return nil, false
		}
	}

	return claims, true
}

// RefreshAccessToken exchanges a valid refresh token for a new token pair.
// The live account is re-fetched and the status gate re-applied, so a
// suspended account's session dies at the next refresh even though its
// access token verified moments earlier. The session identifier carries
// over to the new pair.
//
// RefreshAccessToken may return an error when input validation, dependency calls, or security checks fail.
// RefreshAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) *RefreshResult {
	if e == nil || e.jwtManager == nil || e.directory == nil {
		return refreshFailure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}

	claims, err := e.jwtManager.Parse(jwt.KindRefresh, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshInvalid, false, AuditActor{}, ErrTokenInvalid, nil)
		return refreshFailure(CodeInvalidCredentials, msgSessionInvalid)
	}

	if e.revocations != nil {
		revoked, err := e.revocations.Contains(ctx, claims.ID)
		if err != nil {
			log.Printf("authcore: revocation check failed: %v", err)
			e.metricInc(MetricRefreshFailure)
			return refreshFailure(CodeAuthenticationFailed, msgAuthenticationFailed)
		}
		if revoked {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditRefreshInvalid, false, claimsActor(claims), ErrTokenInvalid, map[string]string{"reason": "revoked"})
			return refreshFailure(CodeInvalidCredentials, msgSessionInvalid)
		}
	}

	class := AccountClass(claims.Class)
	account, err := e.directory.GetByID(ctx, claims.AccountID, class)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshInvalid, false, claimsActor(claims), err, nil)
		return refreshFailure(CodeInvalidCredentials, msgSessionInvalid)
	}
	if account.Status != StatusActive {
		code, msg := statusFailure(account.Status)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshInvalid, false, claimsActor(claims), ErrAccountInactive, map[string]string{"status": account.Status.String()})
		return refreshFailure(code, msg)
	}

	tokens, err := e.reissuePair(account, claims.SID)
	if err != nil {
		log.Printf("authcore: token reissue failed for account %s: %v", account.ID, err)
		e.metricInc(MetricRefreshFailure)
		return refreshFailure(CodeAuthenticationFailed, msgAuthenticationFailed)
	}

	if e.config.Tokens.RotateOnRefresh {
		e.revokeByClaims(ctx, claims)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefreshSuccess, true, claimsActor(claims), nil, nil)

	return &RefreshResult{
		Success:   true,
		AccountID: account.ID,
		Class:     class,
		Tokens:    tokens,
	}
}

// Logout revokes whichever of the two tokens are presented. Unparseable or
// already-expired tokens are skipped silently: an expired token fails
// verification on its own, so there is nothing left to revoke and nothing
// useful to tell the caller.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	var actor AuditActor
	if accessToken != "" {
		if claims, err := e.jwtManager.Parse(jwt.KindAccess, accessToken); err == nil {
			e.revokeByClaims(ctx, claims)
			actor = claimsActor(claims)
		}
	}
	if refreshToken != "" {
		if claims, err := e.jwtManager.Parse(jwt.KindRefresh, refreshToken); err == nil {
			e.revokeByClaims(ctx, claims)
			if actor.AccountID == "" {
				actor = claimsActor(claims)
			}
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, true, actor, nil, nil)

	return nil
}

// revokeByClaims blacklists a token for its remaining lifetime. Re-revoking
// is a no-op at the store level, so double logout is harmless.
func (e *Engine) revokeByClaims(ctx context.Context, claims *jwt.Claims) {
	if e.revocations == nil || claims.ExpiresAt == nil {
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}

	if err := e.revocations.Add(ctx, claims.ID, ttl); err != nil {
		log.Printf("authcore: failed to revoke token %s: %v", claims.ID, err)
		return
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, AuditTokenRevoked, true, claimsActor(claims), nil, nil)
}

func refreshFailure(code FailureCode, msg string) *RefreshResult {
	return &RefreshResult{Code: code, Message: msg}
}
