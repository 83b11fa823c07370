package sessionguard

import (
	"time"

	"github.com/kovrenik/sessionguard/session"
	"github.com/kovrenik/sessionguard/verify"
)

// Re-exports so integrators usually import only this package.
type (
	// UserSession is the authenticated identity cached by the guard.
	UserSession = session.UserSession
	// Role is the marketplace access level: admin, creator, or viewer.
	Role = session.Role
	// Tier identifies which storage tier holds the cached session.
	Tier = session.Tier
	// VerifyResult is the tagged outcome of one validator call.
	VerifyResult = verify.Result
)

const (
	// RoleAdmin moderates the marketplace.
	RoleAdmin = session.RoleAdmin
	// RoleCreator uploads and sells videos.
	RoleCreator = session.RoleCreator
	// RoleViewer browses and purchases videos.
	RoleViewer = session.RoleViewer
)

// DecisionKind enumerates the terminal states of one access check.
type DecisionKind uint8

const (
	// DecisionGranted reveals the page.
	DecisionGranted DecisionKind = iota
	// DecisionGrantedRedirect is a valid session landing on an auth page:
	// access is fine, but the login form is never shown — the caller is
	// sent to their own dashboard instead.
	DecisionGrantedRedirect
	// DecisionDeniedLogin sends the caller to the login page.
	DecisionDeniedLogin
	// DecisionDeniedRole shows the role-mismatch overlay, then sends the
	// caller to the dashboard matching their actual role.
	DecisionDeniedRole
)

// String returns the kind name used in logs and audit events.
func (k DecisionKind) String() string {
	switch k {
	case DecisionGranted:
		return "granted"
	case DecisionGrantedRedirect:
		return "granted_redirect"
	case DecisionDeniedLogin:
		return "denied_login"
	case DecisionDeniedRole:
		return "denied_role"
	default:
		return "unknown"
	}
}

// Decision is the outcome of [Guard.CheckAccess].
//
// Session is set on both granted kinds and on DecisionDeniedRole (the
// session is valid, just on the wrong page). RedirectTo is set on every
// kind except DecisionGranted. Reason explains denials for audit and tests;
// callers never need it to act.
type Decision struct {
	Kind    DecisionKind
	Session *UserSession

	RedirectTo string
	// RedirectDelay is how long the role-mismatch overlay stays visible
	// before navigation. Zero on all other kinds.
	RedirectDelay time.Duration

	// RequiredRole and ActualRole are set only on DecisionDeniedRole.
	RequiredRole Role
	ActualRole   Role

	Reason error
}
