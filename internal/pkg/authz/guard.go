// internal/pkg/authz/guard.go

// Package authz holds the transport-free authorization predicate. The HTTP
// middleware turns a Decision into 401/403; a UI caller can turn the same
// Decision into redirects. Keeping the decision separate from its rendering
// is what lets both exist.
package authz

import "rdm-service/internal/domain/user"

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allowed Decision = iota
	// DenyUnauthenticated means no identity was presented at all.
	DenyUnauthenticated
	// DenyInsufficientRole means the identity exists but its role does not
	// satisfy the requirement.
	DenyInsufficientRole
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyInsufficientRole:
		return "deny_insufficient_role"
	}
	return "unknown"
}

// Check decides whether identity (nil when unauthenticated) may perform an
// action requiring the given role. Inactive identities are treated as
// unauthenticated.
func Check(identity *user.Identity, required user.Role) Decision {
	if identity == nil || !identity.IsActive {
		return DenyUnauthenticated
	}
	if !identity.Role.Satisfies(required) {
		return DenyInsufficientRole
	}
	return Allowed
}

// PublicRoutes are the transport paths reachable without an identity.
var PublicRoutes = map[string]bool{
	"/api/v1/auth/login": true,
	"/api/v1/health":     true,
}

// IsPublic reports whether path needs no identity.
func IsPublic(path string) bool {
	return PublicRoutes[path]
}
