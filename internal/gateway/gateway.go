// internal/gateway/gateway.go
package gateway

import (
	"context"

	"rdm-service/internal/domain/device"
)

// Handle identifies a live connection on the remote-desktop gateway.
type Handle struct {
	ID  string `json:"connectionId"`
	URL string `json:"connectionUrl"`
}

// Gateway brokers remote-desktop sessions. The broker calls it exactly once
// per initiation attempt; a failure is recorded, never retried.
type Gateway interface {
	// RequestConnection asks the gateway to open a session to the device.
	RequestConnection(ctx context.Context, d *device.Device, secrets *device.Secrets) (*Handle, error)

	// ReleaseConnection tells the gateway to tear a session down. The
	// broker treats a failure here as best effort: the log is closed
	// either way.
	ReleaseConnection(ctx context.Context, connID string) error
}
