// internal/domain/connection/entity.go
package connection

import "time"

// Status is the outcome recorded on a connection log.
type Status string

const (
	// StatusPending marks a log created before the gateway handle is known.
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Valid reports whether s is a status a caller may supply when ending a
// connection. Pending is internal and not accepted from callers.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// Log is the durable record of one attempted, active, or completed remote
// session. A log with a non-nil ConnectionEnd is terminal and never mutated
// again.
type Log struct {
	ID            int       `json:"id"`
	UserID        int       `json:"userId"`
	DeviceID      int       `json:"deviceId"`
	GatewayConnID string    `json:"gatewayConnId,omitempty"`
	Start         time.Time `json:"connectionStart"`
	End           *time.Time `json:"connectionEnd"`
	// Duration in whole seconds, derived from End-Start when the log closes.
	Duration  *int   `json:"duration"`
	Status    Status `json:"status"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Open reports whether the log still represents a live or pending session.
func (l *Log) Open() bool {
	return l.End == nil
}
