// internal/domain/audit/entity.go
package audit

import "time"

// Action is the kind of security-relevant event being recorded.
type Action string

const (
	ActionLogin      Action = "login"
	ActionLogout     Action = "logout"
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
)

// Entry is one append-only audit log row. Entries are never updated or
// deleted by this service.
type Entry struct {
	ID           int                    `json:"id"`
	UserID       *int                   `json:"userId"`
	Action       Action                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   *int                   `json:"resourceId"`
	Details      map[string]interface{} `json:"details,omitempty"`
	IPAddress    string                 `json:"ipAddress,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
