// Package middleware is the HTTP reveal gate: protected content stays
// hidden until the guard grants access, and every denial ends in a
// navigation away.
//
// # Outcome mapping
//
//   - Granted — the wrapped handler is served; the validated session is
//     available via [SessionFromContext].
//   - Denied to login — 303 See Other to the login page, empty body.
//   - Denied on role mismatch — a self-contained overlay page naming the
//     required and actual roles, with a timed redirect to the caller's own
//     dashboard. The originally requested page is never served.
//   - Signed-in user on an auth page — 303 to their dashboard; the login
//     form is never rendered.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard calls. It makes no
// access decisions of its own — everything is delegated to
// [sessionguard.Guard.CheckAccess].
//
// # What this package must NOT do
//
//   - Read or write the session store directly.
//   - Call the verify endpoint.
//   - Leak protected content on any denied path.
package middleware
