package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/tradegate/authcore/jwt"
)

// AuditErrorCode classifies why an audited operation failed. It is coarser
// than the sentinel errors on purpose: sinks get a stable, closed vocabulary
// that survives internal refactors.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrCSRFRejected       AuditErrorCode = "csrf_rejected"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func accountActor(account *Account) AuditActor {
	return AuditActor{
		AccountID: account.ID,
		Class:     account.Class.String(),
	}
}

func claimsActor(claims *jwt.Claims) AuditActor {
	return AuditActor{
		AccountID: claims.AccountID,
		Class:     AccountClass(claims.Class).String(),
		SessionID: claims.SID,
	}
}

func (e *Engine) emitAudit(ctx context.Context, typ AuditEventType, success bool, actor AuditActor, err error, detail map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	e.audit.Emit(ctx, AuditEvent{
		At:      time.Now().UTC(),
		Type:    typ,
		Actor:   actor,
		IP:      clientIPFromContext(ctx),
		Success: success,
		Code:    auditErrorCode(err),
		Detail:  detail,
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrCSRFInvalid),
		errors.Is(err, ErrCSRFExpired),
		errors.Is(err, ErrCSRFContextMismatch):
		return auditErrCSRFRejected
	case errors.Is(err, ErrDirectoryUnavailable),
		errors.Is(err, ErrRevocationUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
