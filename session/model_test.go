package session

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "creator", "viewer"} {
		role, err := ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", s, err)
		}
		if string(role) != s || !role.Valid() {
			t.Fatalf("ParseRole(%q) = %q", s, role)
		}
	}

	for _, s := range []string{"", "Admin", "superuser", "viewer "} {
		if _, err := ParseRole(s); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("ParseRole(%q) err = %v, want ErrInvalidRole", s, err)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := testUserSession()
	c := orig.Clone()
	c.Name = "changed"
	if orig.Name == "changed" {
		t.Fatal("clone shares storage with the original")
	}

	var nilSess *UserSession
	if nilSess.Clone() != nil {
		t.Fatal("nil clone must stay nil")
	}
}
