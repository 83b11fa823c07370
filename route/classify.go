package route

import (
	"strings"

	"github.com/kovrenik/sessionguard/session"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/auth/login.html"

// Class is the derived classification of one URL path. It is computed on
// demand and never persisted.
type Class struct {
	IsAuthPage      bool
	IsProtectedPage bool
	// RequiredRole is empty for auth pages and unprotected paths.
	RequiredRole session.Role
}

var areaRoles = []struct {
	prefix string
	role   session.Role
}{
	{"/admin", session.RoleAdmin},
	{"/creator", session.RoleCreator},
	{"/viewer", session.RoleViewer},
}

var dashboards = map[session.Role]string{
	session.RoleAdmin:   "/admin/dashboard.html",
	session.RoleCreator: "/creator/dashboard.html",
	session.RoleViewer:  "/viewer/dashboard.html",
}

// Classify maps a URL path to its access requirements.
func Classify(path string) Class {
	return Class{
		IsAuthPage:      IsAuthPage(path),
		IsProtectedPage: IsProtectedPage(path),
		RequiredRole:    RequiredRole(path),
	}
}

// IsAuthPage reports whether path denotes a login or signup page.
func IsAuthPage(path string) bool {
	return inArea(path, "/auth")
}

// IsProtectedPage reports whether path falls under an admin, creator, or
// viewer area.
func IsProtectedPage(path string) bool {
	return RequiredRole(path) != ""
}

// RequiredRole returns the one role a protected area demands, or empty for
// auth pages and unprotected paths.
func RequiredRole(path string) session.Role {
	for _, area := range areaRoles {
		if inArea(path, area.prefix) {
			return area.role
		}
	}
	return ""
}

// DashboardPath returns the dashboard for a role; unknown roles fall back to
// the login page so a bad redirect can never land on someone else's area.
func DashboardPath(role session.Role) string {
	if p, ok := dashboards[role]; ok {
		return p
	}
	return LoginPath
}

func inArea(path, prefix string) bool {
	path = normalize(path)
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
