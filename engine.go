package fastauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastauth/fastauth/internal/rate"
	"github.com/fastauth/fastauth/password"
	"github.com/fastauth/fastauth/session"
	"github.com/fastauth/fastauth/token"
)

// Engine defines a public type used by fastauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	clock          func() time.Time
	hasher         *password.Hasher
	tokens         *token.Manager
	sessionStore   *session.Store
	loginLimiter   *rate.Limiter
	accountLimiter *rate.Limiter
	audit          *auditDispatcher
	metrics        *Metrics
	provider       PrincipalProvider
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
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

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID, tokenID string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:   e.now(),
		EventType:   eventType,
		PrincipalID: principalID,
		TokenID:     tokenID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

func isStoreUnavailable(err error) bool {
	return errors.Is(err, session.ErrRedisUnavailable) ||
		errors.Is(err, rate.ErrRedisUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// withStoreRetry runs a store operation under the configured per-call
// timeout, retrying once after a short backoff on transient failures before
// surfacing ErrStoreUnavailable.
func (e *Engine) withStoreRetry(ctx context.Context, op func(context.Context) error) error {
	run := func() error {
		opCtx, cancel := context.WithTimeout(ctx, e.config.Store.OpTimeout)
		defer cancel()
		return op(opCtx)
	}

	err := run()
	if err == nil || !isStoreUnavailable(err) {
		return err
	}

	if e.config.Store.RetryBackoff > 0 {
		select {
		case <-time.After(e.config.Store.RetryBackoff):
		case <-ctx.Done():
			e.metricInc(MetricStoreUnavailable)
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
		}
	}

	err = run()
	if err != nil && isStoreUnavailable(err) {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// issueRecordedPair mints an access+refresh pair and records both in the
// session store. Used by login and auto-login; refresh rotation records its
// pair atomically inside the store instead.
func (e *Engine) issueRecordedPair(ctx context.Context, principalID string) (*TokenPair, error) {
	pair, accessRec, refreshRec, err := e.mintPair(principalID, "")
	if err != nil {
		return nil, err
	}

	err = e.withStoreRetry(ctx, func(opCtx context.Context) error {
		if err := e.sessionStore.Record(opCtx, accessRec, e.config.Token.AccessTTL); err != nil {
			return err
		}
		return e.sessionStore.Record(opCtx, refreshRec, e.config.Token.RefreshTTL)
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	return pair, nil
}

// mintPair issues the two signed tokens and their session records without
// touching the store.
func (e *Engine) mintPair(principalID, parentRefreshID string) (*TokenPair, *session.Record, *session.Record, error) {
	accessToken, accessClaims, err := e.tokens.Issue(principalID, token.KindAccess, "")
	if err != nil {
		return nil, nil, nil, err
	}
	refreshToken, refreshClaims, err := e.tokens.Issue(principalID, token.KindRefresh, parentRefreshID)
	if err != nil {
		return nil, nil, nil, err
	}

	pair := &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessTokenID:    accessClaims.TokenID(),
		RefreshTokenID:   refreshClaims.TokenID(),
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}

	accessRec := &session.Record{
		TokenID:     accessClaims.TokenID(),
		PrincipalID: principalID,
		Kind:        session.KindAccess,
		IssuedAt:    accessClaims.IssuedAt.Unix(),
		ExpiresAt:   accessClaims.ExpiresAt.Unix(),
	}
	refreshRec := &session.Record{
		TokenID:     refreshClaims.TokenID(),
		PrincipalID: principalID,
		Kind:        session.KindRefresh,
		ParentID:    parentRefreshID,
		IssuedAt:    refreshClaims.IssuedAt.Unix(),
		ExpiresAt:   refreshClaims.ExpiresAt.Unix(),
	}

	return pair, accessRec, refreshRec, nil
}
