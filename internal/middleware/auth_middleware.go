// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"rdm-service/internal/domain/user"
	"rdm-service/internal/pkg/authz"
	"rdm-service/internal/pkg/response"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// TokenValidator resolves a bearer token to a live identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*user.Identity, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth validates the bearer token and stores the resolved identity on the
// request context. Every failure reads the same to the caller.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Unauthorized(c, "unauthorized")
			return
		}

		identity, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "unauthorized")
			return
		}

		c.Set(identityKey, identity)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireRole gates a route on the role hierarchy: admin satisfies every
// requirement, operator satisfies operator and viewer. Must run after Auth.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		switch authz.Check(identity, required) {
		case authz.Allowed:
			c.Next()
		case authz.DenyUnauthenticated:
			response.Unauthorized(c, "unauthorized")
		default:
			response.Forbidden(c, "forbidden")
		}
	}
}

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter for websocket upgrades where browsers
// cannot set headers.
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// GetToken returns the raw bearer token the request authenticated with, or
// empty when the request never passed Auth.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// GetIdentity returns the authenticated identity, or nil when the request
// never passed Auth.
func GetIdentity(c *gin.Context) *user.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*user.Identity)
	if !ok {
		return nil
	}
	return identity
}
