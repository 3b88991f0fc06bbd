package authz

import (
	"testing"

	"rdm-service/internal/domain/user"
)

func active(role user.Role) *user.Identity {
	return &user.Identity{ID: 1, Role: role, IsActive: true}
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name     string
		identity *user.Identity
		required user.Role
		want     Decision
	}{
		{"nil identity", nil, user.RoleViewer, DenyUnauthenticated},
		{"inactive admin", &user.Identity{ID: 1, Role: user.RoleAdmin}, user.RoleViewer, DenyUnauthenticated},
		{"viewer needs operator", active(user.RoleViewer), user.RoleOperator, DenyInsufficientRole},
		{"operator needs admin", active(user.RoleOperator), user.RoleAdmin, DenyInsufficientRole},
		{"operator needs viewer", active(user.RoleOperator), user.RoleViewer, Allowed},
		{"admin needs admin", active(user.RoleAdmin), user.RoleAdmin, Allowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Check(tc.identity, tc.required); got != tc.want {
				t.Errorf("Check() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsPublic(t *testing.T) {
	if !IsPublic("/api/v1/auth/login") || !IsPublic("/api/v1/health") {
		t.Error("login and health must be public")
	}
	if IsPublic("/api/v1/devices") {
		t.Error("devices must not be public")
	}
}
