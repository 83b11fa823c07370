package sessionguard

import (
	"errors"

	"github.com/kovrenik/sessionguard/session"
)

var (
	// ErrNoSession means no cached session/token pair exists. Treated as
	// plain unauthenticated state, never logged as an anomaly.
	ErrNoSession = errors.New("no cached session")
	// ErrSessionRejected means the server answered and denied the token.
	ErrSessionRejected = errors.New("session rejected by verify endpoint")
	// ErrVerifyUnavailable means the verify endpoint stayed unreachable
	// after all retries.
	ErrVerifyUnavailable = errors.New("verify endpoint unavailable")
	// ErrRoleMismatch means the session is valid but lacks the role the
	// requested area demands. Authorization failure, not authentication:
	// the session survives.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrCheckPanicked marks a decision produced by the top-level recover
	// path rather than the normal state machine.
	ErrCheckPanicked = errors.New("access check recovered from panic")
	// ErrGuardClosed is returned by methods called after Close.
	ErrGuardClosed = errors.New("guard closed")

	// ErrStoreUnavailable mirrors session.ErrUnavailable at the root so
	// integrators can errors.Is without importing the subpackage.
	ErrStoreUnavailable = session.ErrUnavailable
	// ErrInvalidRole mirrors session.ErrInvalidRole.
	ErrInvalidRole = session.ErrInvalidRole
)
