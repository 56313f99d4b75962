package fastauth

import (
	"context"
	"errors"
	"log"
	"time"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, principalID, secret string) (*TokenPair, error) {
	if e == nil || e.hasher == nil || e.tokens == nil || e.sessionStore == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	var retryAfter time.Duration
	err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		var checkErr error
		retryAfter, checkErr = e.loginLimiter.Check(opCtx, principalID, ip)
		return checkErr
	})
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, principalID, "", ErrRateLimited, nil)
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	if secret == "" {
		// same hashing work as a real mismatch so an empty-string probe is
		// not separable by response time
		e.hasher.DummyVerify(secret)
		return nil, e.failLogin(ctx, principalID, ip, "empty_secret")
	}

	rec, err := e.provider.GetPrincipal(ctx, principalID)
	if err != nil {
		// burn equivalent hashing work so a lookup miss is not separable
		// from a digest mismatch by response time
		e.hasher.DummyVerify(secret)
		return nil, e.failLogin(ctx, principalID, ip, "principal_not_found")
	}

	ok, err := e.hasher.Verify(secret, rec.CredentialHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, principalID, ip, "credential_mismatch")
	}

	if rec.Disabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, principalID, "", ErrPrincipalDisabled, func() map[string]string {
			return map[string]string{"reason": "principal_disabled"}
		})
		return nil, ErrPrincipalDisabled
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.hasher.NeedsUpgrade(rec.CredentialHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.hasher.Hash(secret); err == nil {
				if err := e.provider.UpdateCredentialHash(ctx, principalID, upgradedHash); err != nil {
					log.Print("fastauth: credential hash upgrade update failed")
				}
			} else {
				log.Print("fastauth: credential hash upgrade generation failed")
			}
		}
	}
	secret = ""

	pair, err := e.issueRecordedPair(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		return e.loginLimiter.Reset(opCtx, principalID, ip)
	}); err != nil {
		log.Print("fastauth: login limiter reset failed after successful login")
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, principalID, pair.AccessTokenID, nil, nil)

	return pair, nil
}

// failLogin counts the failed attempt and returns the uniform credential
// error. Unknown principal and wrong secret share this path on purpose.
func (e *Engine) failLogin(ctx context.Context, principalID, ip, reason string) error {
	if err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		return e.loginLimiter.RecordFailure(opCtx, principalID, ip)
	}); err != nil {
		return err
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, principalID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	return ErrInvalidCredentials
}
