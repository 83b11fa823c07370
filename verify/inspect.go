package verify

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether token is a JWT whose exp claim is already in
// the past. The signature is deliberately not checked: this is a fast-path
// filter to skip a doomed network round-trip, never an acceptance decision.
// Opaque or malformed tokens return false and go to the server as usual.
func tokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(now)
}
