// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"

	"rdm-service/internal/domain/user"
)

// Claims is the signed identity assertion embedded in every access token.
// Role is captured at issuance time; staleness after a role change is
// tolerated until the token expires.
type Claims struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	jwt.RegisteredClaims
}

// HasRole checks the embedded role against a required role using the role
// hierarchy.
func (c *Claims) HasRole(required user.Role) bool {
	return c.Role.Satisfies(required)
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}
