// Package sessionguard is the access gatekeeper for a video marketplace:
// it decides, per page load, whether a cached bearer session may see a
// protected area, must be bounced to login, or must be bounced to the
// dashboard matching its actual role.
//
// The package is designed for concurrent use: Guard methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionguard is the public surface. It exposes [Guard], [Builder],
// [Config], [Decision], and the audit/metrics value types. Storage lives in
// the session subpackage, the verify-endpoint client in verify, path
// classification in route, and the HTTP reveal gate in middleware.
//
// # What this package must NOT do
//
//   - Issue or refresh credentials — login is the backend's job; the guard
//     only consumes its result.
//   - Expose Redis clients or storage encoding details in its public API.
//   - Let an access check escape as a panic: every check ends in a
//     [Decision], never an unhandled failure.
//
// # Decision contract
//
// CheckAccess is the single entry point. Its outcome is always one of
// granted, granted-but-redirect (signed-in user on an auth page), denied to
// login, or denied on role mismatch. Callers render or redirect; they never
// need to interpret errors.
package sessionguard
