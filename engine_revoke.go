package fastauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastauth/fastauth/token"
)

// Revoke invalidates a presented token (access or refresh) ahead of its
// natural expiry. Revoking an already-revoked or expired-and-gone token is
// not an error.
func (e *Engine) Revoke(ctx context.Context, tokenStr string) error {
	if e == nil || e.tokens == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr, token.KindAccess)
	if err != nil {
		claims, err = e.tokens.Parse(tokenStr, token.KindRefresh)
	}
	if err != nil {
		// an expired token's record has already been TTL-collected, so
		// there is nothing left to revoke
		if errors.Is(err, token.ErrTokenExpired) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	return e.RevokeToken(ctx, claims.TokenID())
}

// RevokeToken invalidates a session record by token id. Idempotent: unknown
// ids succeed, so a revoke raced against TTL expiry stays clean.
func (e *Engine) RevokeToken(ctx context.Context, tokenID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		return e.sessionStore.Revoke(opCtx, tokenID)
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventRevoke, true, "", tokenID, nil, nil)

	return nil
}

// RevokeAllForPrincipal invalidates every live session record for the
// principal, access and refresh alike. Returns the number of records
// touched.
func (e *Engine) RevokeAllForPrincipal(ctx context.Context, principalID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	if principalID == "" {
		return 0, ErrPrincipalNotFound
	}

	var revoked int
	err := e.withStoreRetry(ctx, func(opCtx context.Context) error {
		var opErr error
		revoked, opErr = e.sessionStore.RevokeAllForPrincipal(opCtx, principalID)
		return opErr
	})
	if err != nil {
		return 0, err
	}

	e.metricInc(MetricRevokeAll)
	e.emitAudit(ctx, auditEventRevokeAll, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(revoked)}
	})

	return revoked, nil
}
