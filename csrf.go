package authcore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/tradegate/authcore/internal"
)

const csrfSecretSize = 32

type csrfToken struct {
	ipHash    [32]byte
	uaHash    [32]byte
	expiresAt time.Time
}

// csrfStore keeps issued tokens in process memory. Tokens are single-use and
// bound to the issuing client's IP and User-Agent hashes. Expired entries
// are pruned lazily on issuance.
type csrfStore struct {
	mu     sync.Mutex
	tokens map[string]csrfToken
	ttl    time.Duration
}

func newCSRFStore(ttl time.Duration) *csrfStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &csrfStore{
		tokens: make(map[string]csrfToken),
		ttl:    ttl,
	}
}

func (s *csrfStore) issue(ip, ua string, now time.Time) (string, error) {
	token, err := internal.NewSecret(csrfSecretSize)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.tokens {
		if !v.expiresAt.After(now) {
			delete(s.tokens, k)
		}
	}

	s.tokens[token] = csrfToken{
		ipHash:    internal.HashBindingValue(ip),
		uaHash:    internal.HashBindingValue(ua),
		expiresAt: now.Add(s.ttl),
	}

	return token, nil
}

// consume removes the token regardless of outcome: a failed verification
// burns the token the same as a successful one.
func (s *csrfStore) consume(token, ip, ua string, now time.Time) error {
	s.mu.Lock()
	entry, ok := s.tokens[token]
	if ok {
		delete(s.tokens, token)
	}
	s.mu.Unlock()

	if !ok {
		return ErrCSRFInvalid
	}
	if !entry.expiresAt.After(now) {
		return ErrCSRFExpired
	}

	ipHash := internal.HashBindingValue(ip)
	uaHash := internal.HashBindingValue(ua)
	ipOK := subtle.ConstantTimeCompare(entry.ipHash[:], ipHash[:]) == 1
	uaOK := subtle.ConstantTimeCompare(entry.uaHash[:], uaHash[:]) == 1
	if !ipOK || !uaOK {
		return ErrCSRFContextMismatch
	}

	return nil
}

// IssueCSRFToken mints a single-use token bound to the client IP and
// User-Agent carried on ctx (see [WithClientIP] and [WithUserAgent]).
// Issuance works even when enforcement is off so callers can stage rollout.
//
// IssueCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// IssueCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueCSRFToken(ctx context.Context) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}

	token, err := e.csrf.issue(clientIPFromContext(ctx), userAgentFromContext(ctx), time.Now())
	if err != nil {
		return "", err
	}

	e.metricInc(MetricCSRFIssued)
	return token, nil
}

// VerifyCSRFToken consumes and validates a token issued by
// [Engine.IssueCSRFToken]. When enforcement is disabled it is a no-op that
// always succeeds. A token can be consumed at most once.
//
// VerifyCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyCSRFToken(ctx context.Context, token string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	if !e.config.CSRF.Enforce {
		return nil
	}
	if token == "" {
		e.rejectCSRF(ctx, ErrCSRFInvalid)
		return ErrCSRFInvalid
	}

	err := e.csrf.consume(token, clientIPFromContext(ctx), userAgentFromContext(ctx), time.Now())
	if err != nil {
		e.rejectCSRF(ctx, err)
		return err
	}

	return nil
}

func (e *Engine) rejectCSRF(ctx context.Context, err error) {
	e.metricInc(MetricCSRFRejected)
	e.emitAudit(ctx, AuditCSRFRejected, false, AuditActor{}, err, nil)
}
