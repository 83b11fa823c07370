package session

import (
	"errors"
	"fmt"
)

// Role is the marketplace access level carried by a session. The backend is
// the source of truth; unknown role strings are rejected at decode time.
type Role string

const (
	// RoleAdmin moderates the marketplace.
	RoleAdmin Role = "admin"
	// RoleCreator uploads and sells videos.
	RoleCreator Role = "creator"
	// RoleViewer browses and purchases videos.
	RoleViewer Role = "viewer"
)

// ErrInvalidRole is returned by [ParseRole] for unknown role strings.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts a backend role string into a [Role].
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleCreator, RoleViewer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// UserSession is the authenticated identity cached by the guard. It mirrors
// the user object returned by the verify endpoint, plus freshness fields
// maintained locally.
type UserSession struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	// IssuedAt is when the session was first cached; RefreshedAt is updated
	// each time the verify endpoint confirms it. Unix seconds.
	IssuedAt    int64 `json:"issued_at,omitempty"`
	RefreshedAt int64 `json:"refreshed_at,omitempty"`
}

// Clone returns a copy so callers can hand sessions across goroutines
// without sharing the stored value.
func (u *UserSession) Clone() *UserSession {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
