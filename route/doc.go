// Package route classifies marketplace URL paths into auth pages, protected
// areas, and the role each area requires, and maps roles to their dashboard
// redirect targets.
//
// All functions are pure: no state, no I/O, no side effects. The guard calls
// [Classify] once per access check; everything else is a convenience view of
// the same mapping.
//
// # What this package must NOT do
//
//   - Read sessions or tokens.
//   - Make allow/deny decisions (that is the guard's job).
package route
