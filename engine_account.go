package fastauth

import (
	"context"
	"errors"
)

// CreatePrincipal describes the createprincipal operation and its observable behavior.
//
// CreatePrincipal may return an error when input validation, dependency calls, or security checks fail.
// CreatePrincipal does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreatePrincipal(ctx context.Context, req CreatePrincipalRequest) (*CreatePrincipalResult, error) {
	if e == nil || e.hasher == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrAccountCreationDisabled
	}
	if req.PrincipalID == "" {
		return nil, ErrPrincipalNotFound
	}
	if req.Secret == "" {
		return nil, ErrPasswordPolicy
	}

	ip := clientIPFromContext(ctx)

	err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		if _, checkErr := e.accountLimiter.Check(opCtx, req.PrincipalID, ip); checkErr != nil {
			return checkErr
		}
		return e.accountLimiter.RecordFailure(opCtx, req.PrincipalID, ip)
	})
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		e.metricInc(MetricAccountCreationRateLimited)
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, req.PrincipalID, "", ErrAccountCreationRateLimited, nil)
		return nil, ErrAccountCreationRateLimited
	}

	hash, err := e.hasher.Hash(req.Secret)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, req.PrincipalID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "secret_rejected"}
		})
		return nil, ErrPasswordPolicy
	}

	rec, err := e.provider.CreatePrincipal(ctx, CreatePrincipalInput{
		PrincipalID:    req.PrincipalID,
		CredentialHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationFailure, false, req.PrincipalID, "", ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, req.PrincipalID, "", err, nil)
		return nil, err
	}

	result := &CreatePrincipalResult{Principal: rec}

	if req.AutoLogin && e.config.Account.AllowAutoLogin {
		pair, err := e.issueRecordedPair(ctx, rec.PrincipalID)
		if err != nil {
			return nil, err
		}
		result.Tokens = pair
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, rec.PrincipalID, "", nil, nil)

	return result, nil
}
