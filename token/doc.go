// Package token implements the signed-token codec for the fastauth core.
//
// Both access and refresh tokens are JWTs carrying {sub, jti, kind, pjti,
// iat, exp}. The jti is unique per issuance; pjti links a refresh token to
// the refresh token it rotated from. Signing keys live in an ordered keyring
// of {kid, material, validity window}: issuance always uses the newest
// currently-valid signing key, verification resolves the kid header against
// every key whose window still covers the moment, which is how a retired key
// keeps validating already-issued tokens through its grace period.
//
// # What this package must NOT do
//
//   - Consult the session store. Revocation is the orchestrator's concern;
//     a token that parses here can still be rejected upstream.
//   - Hold mutable state. A Manager is immutable after NewManager.
package token
