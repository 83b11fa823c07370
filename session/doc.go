// Package session holds the cached marketplace identity and the two-tier
// store that persists it between access checks.
//
// # Tiers
//
// The persistent tier lives in Redis and survives process restarts; it backs
// the "remember me" login preference. The ephemeral tier is an in-process
// holder that disappears when the process exits. A session and its bearer
// token always live in exactly one tier, chosen at write time.
//
// # Invariants
//
//   - Both-or-neither: a tier never holds a session without its token, or a
//     token without its session. Reads treat a half-present tier as absent
//     and clear it.
//   - Corrupt stored JSON is absence, never an error: the tier is cleared,
//     a warning is logged, and the caller sees a nil session.
//
// # Architecture boundaries
//
// This package owns storage and encoding only. It never talks to the verify
// endpoint and never decides whether a session is acceptable — that is the
// guard's job.
//
// # What this package must NOT do
//
//   - Perform HTTP calls.
//   - Interpret routes or redirect targets.
//   - Panic on malformed stored state.
package session
