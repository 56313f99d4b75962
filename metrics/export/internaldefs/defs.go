package internaldefs

import (
	"github.com/fastauth/fastauth"
)

// CounterDef defines a public type used by fastauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   fastauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: fastauth.MetricLoginSuccess, Name: "fastauth_login_success_total", Help: "Successful login attempts."},
	{ID: fastauth.MetricLoginFailure, Name: "fastauth_login_failure_total", Help: "Failed login attempts."},
	{ID: fastauth.MetricLoginRateLimited, Name: "fastauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: fastauth.MetricRefreshSuccess, Name: "fastauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: fastauth.MetricRefreshFailure, Name: "fastauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: fastauth.MetricRefreshReuseDetected, Name: "fastauth_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: fastauth.MetricIntrospectSuccess, Name: "fastauth_introspect_success_total", Help: "Successful introspections."},
	{ID: fastauth.MetricIntrospectFailure, Name: "fastauth_introspect_failure_total", Help: "Failed introspections."},
	{ID: fastauth.MetricRevoke, Name: "fastauth_revoke_total", Help: "Single-session revocations."},
	{ID: fastauth.MetricRevokeAll, Name: "fastauth_revoke_all_total", Help: "Revoke-all operations."},
	{ID: fastauth.MetricSessionCreated, Name: "fastauth_session_created_total", Help: "Created session records."},
	{ID: fastauth.MetricAccountCreationSuccess, Name: "fastauth_account_creation_success_total", Help: "Successful account creations."},
	{ID: fastauth.MetricAccountCreationDuplicate, Name: "fastauth_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: fastauth.MetricAccountCreationRateLimited, Name: "fastauth_account_creation_rate_limited_total", Help: "Rate-limited account creation attempts."},
	{ID: fastauth.MetricStoreUnavailable, Name: "fastauth_store_unavailable_total", Help: "Operations failed because the session store was unreachable."},
}
