// internal/domain/user/role.go
package user

// Role is the action-level role of an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// rank orders roles: a role satisfies every role at or below its own rank.
var rank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Satisfies reports whether r grants everything required demands.
// admin satisfies admin/operator/viewer, operator satisfies operator/viewer,
// viewer satisfies viewer only. Unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	rr, ok := rank[r]
	if !ok {
		return false
	}
	nr, ok := rank[required]
	if !ok {
		return false
	}
	return rr >= nr
}
