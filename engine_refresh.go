package fastauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastauth/fastauth/session"
	"github.com/fastauth/fastauth/token"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil || e.sessionStore == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": "token_rejected"}
		})
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	principalID := claims.PrincipalID()
	parentID := claims.TokenID()

	// re-check the account on every rotation: a signed refresh token must
	// not outlive the principal it was issued to
	rec, err := e.provider.GetPrincipal(ctx, principalID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, principalID, parentID, err, func() map[string]string {
			return map[string]string{"reason": "principal_not_found"}
		})
		return nil, fmt.Errorf("%w: unknown principal", ErrSessionInvalid)
	}
	if rec.Disabled {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, principalID, parentID, ErrPrincipalDisabled, func() map[string]string {
			return map[string]string{"reason": "principal_disabled"}
		})
		return nil, ErrPrincipalDisabled
	}

	pair, accessRec, refreshRec, err := e.mintPair(principalID, parentID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	err = e.withStoreRetry(ctx, func(opCtx context.Context) error {
		return e.sessionStore.RotateRefresh(
			opCtx,
			parentID,
			accessRec,
			refreshRec,
			e.config.Token.AccessTTL,
			e.config.Token.RefreshTTL,
		)
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRecordRevoked):
			// the parent was already consumed: either an honest double
			// submit or a stolen-token replay
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuse, false, principalID, parentID, err, nil)
			return nil, fmt.Errorf("%w: refresh token already used", ErrSessionInvalid)
		case errors.Is(err, session.ErrRecordNotFound):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshFailure, false, principalID, parentID, err, func() map[string]string {
				return map[string]string{"reason": "session_not_found"}
			})
			return nil, fmt.Errorf("%w: unknown refresh session", ErrSessionInvalid)
		case errors.Is(err, ErrStoreUnavailable):
			return nil, err
		default:
			e.metricInc(MetricRefreshFailure)
			return nil, err
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, principalID, refreshRec.TokenID, nil, nil)

	return pair, nil
}
