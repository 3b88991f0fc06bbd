// internal/domain/permission/entity.go
package permission

import "time"

// Level is a device-scoped permission, independent of the role hierarchy.
type Level string

const (
	LevelView    Level = "view"
	LevelRead    Level = "read"
	LevelWrite   Level = "write"
	LevelControl Level = "control"
)

// levelRank orders permissions: control > write > read > view.
var levelRank = map[Level]int{
	LevelView:    1,
	LevelRead:    2,
	LevelWrite:   3,
	LevelControl: 4,
}

// Valid reports whether l is a known permission level.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Covers reports whether a grant at level l satisfies a requirement of
// required. Every level covers view.
func (l Level) Covers(required Level) bool {
	lr, ok := levelRank[l]
	if !ok {
		return false
	}
	rr, ok := levelRank[required]
	if !ok {
		return false
	}
	return lr >= rr
}

// Grant gives a user direct access to a device at a permission level.
type Grant struct {
	UserID    int       `json:"userId"`
	DeviceID  int       `json:"deviceId"`
	Level     Level     `json:"permission"`
	GrantedAt time.Time `json:"grantedAt"`
	GrantedBy *int      `json:"grantedBy"`
}

// GroupGrant gives every member of a group access to a device.
type GroupGrant struct {
	GroupID   int       `json:"groupId"`
	DeviceID  int       `json:"deviceId"`
	Level     Level     `json:"permission"`
	GrantedAt time.Time `json:"grantedAt"`
}
