// Package password implements credential hashing for the fastauth core.
//
// Hashes are argon2id digests encoded as PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so the algorithm tag, cost
// parameters, and salt travel with the stored credential. Verification
// recomputes the digest with the stored parameters and compares with
// crypto/subtle so a mismatch takes the same time regardless of where the
// bytes diverge.
//
// # What this package must NOT do
//
//   - Perform any I/O or touch the session store.
//   - Track failed attempts (that is the orchestrator's job).
package password
