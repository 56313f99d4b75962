// Package session implements the Redis-backed session record store for the
// fastauth core.
//
// Every issued token (access and refresh) gets a record keyed by its token
// id so the orchestrator can revoke it before natural expiry. Records are
// compact versioned binary blobs with the revoked flag at a fixed offset,
// which lets the Lua scripts flip it in place without a decode round-trip.
// Key TTLs equal the token expiry, so Redis garbage-collects dead records
// on its own; a lookup miss after expiry is indistinguishable from a record
// that never existed, which is the contract the orchestrator relies on.
//
// Refresh rotation is a single Lua script: verify the parent refresh record
// is live and unrevoked, flip it revoked, and write the replacement pair.
// Redis executes scripts serially, so two concurrent rotations of the same
// parent cannot both succeed.
package session
