package fastauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastauth/fastauth/session"
	"github.com/fastauth/fastauth/token"
)

// Introspect validates an access token end to end: signature, expiry, kind,
// and the server-side session record. A revoked or unknown session rejects
// the token even when the signature is still good.
func (e *Engine) Introspect(ctx context.Context, accessToken string) (*Claims, error) {
	if e == nil || e.tokens == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(accessToken, token.KindAccess)
	if err != nil {
		e.metricInc(MetricIntrospectFailure)
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	var rec *session.Record
	err = e.withStoreRetry(ctx, func(opCtx context.Context) error {
		var opErr error
		rec, opErr = e.sessionStore.Lookup(opCtx, claims.TokenID())
		return opErr
	})
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		// not found or corrupt: the signature was valid and unexpired, so
		// the record was revoked-and-collected or never issued by us
		e.metricInc(MetricIntrospectFailure)
		return nil, fmt.Errorf("%w: no session record", ErrSessionInvalid)
	}

	if rec.Revoked {
		e.metricInc(MetricIntrospectFailure)
		return nil, fmt.Errorf("%w: session revoked", ErrSessionInvalid)
	}

	e.metricInc(MetricIntrospectSuccess)

	return &Claims{
		PrincipalID: claims.PrincipalID(),
		TokenID:     claims.TokenID(),
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Health reports whether the session store is reachable, without running a
// full auth operation. Cheap enough for liveness probes.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Store.OpTimeout)
	defer cancel()

	latency, err := e.sessionStore.Ping(opCtx)
	if err != nil {
		return HealthStatus{StoreAvailable: false}
	}

	return HealthStatus{
		StoreAvailable: true,
		StoreLatency:   latency,
	}
}

// IsHealthy describes the ishealthy operation and its observable behavior.
//
// IsHealthy may return an error when input validation, dependency calls, or security checks fail.
// IsHealthy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IsHealthy(ctx context.Context) bool {
	return e.Health(ctx).StoreAvailable
}
