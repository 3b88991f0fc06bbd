// internal/domain/device/entity.go
package device

import "time"

// Protocol is the remote access protocol a device speaks.
type Protocol string

const (
	ProtocolRDP Protocol = "rdp"
	ProtocolVNC Protocol = "vnc"
	ProtocolSSH Protocol = "ssh"
)

// Valid reports whether p is a supported protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolRDP, ProtocolVNC, ProtocolSSH:
		return true
	}
	return false
}

// Status is the last known reachability of a device. The core never probes
// devices itself; status is written by an external health checker.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Device is a catalogued remote-access target.
type Device struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Protocol    Protocol  `json:"protocol"`
	Username    string    `json:"username,omitempty"`
	Status      Status    `json:"status"`
	Tags        []string  `json:"tags"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   *int      `json:"createdBy,omitempty"`
}

// Secrets are the connection credentials handed to the gateway. Kept out of
// Device so they are never serialized into API responses.
type Secrets struct {
	Password   string
	PrivateKey string
}
