// Package rate provides internal primitives for Redis-backed fixed-window
// failure counters guarding security-sensitive authentication operations.
//
// # Window semantics
//
// Fixed window: INCR + conditional PEXPIRE on first hit, so the window
// starts at the first failure and resets when the key expires. A gate check
// rejects once the counter has reached the failure budget and reports the
// remaining window as retry-after (taken from the key PTTL). A successful
// operation deletes the counter immediately.
//
// # What this package must NOT do
//
//   - Distinguish lockout from bad credentials in anything it returns to
//     the credential path.
//   - Be imported outside the fastauth module.
package rate
