// Package verify answers one question: does the backend still accept this
// bearer token? It wraps the marketplace verify endpoint behind a tagged
// result type so callers never probe response shapes.
//
// # Result classification
//
//   - [StatusOK] — HTTP 2xx with a well-formed success body; carries the
//     server's current view of the identity.
//   - [StatusRejected] — the server answered and said no: non-2xx status,
//     success=false, or an unusable body. Not retried.
//   - [StatusNetworkError] — the request never got an answer (connection
//     refused, DNS failure, timeout). Retried with linear backoff up to the
//     configured attempt budget.
//
// # Concurrency
//
// Concurrent validations of the same token collapse into a single in-flight
// request via singleflight; every caller observes the one shared outcome.
//
// # Architecture boundaries
//
// This package performs network I/O and nothing else. It never reads or
// writes the session store and never decides what a failure means for the
// cached session — the guard owns that policy.
package verify
