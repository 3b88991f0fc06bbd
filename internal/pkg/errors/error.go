package xerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these to HTTP codes;
// services never speak HTTP.
var (
	// ErrInvalidCredentials covers unknown-username and wrong-password alike so
	// login failures are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("conflict: resource already exists")
	ErrAlreadyConnected   = errors.New("an open connection already exists for this device")
	ErrAlreadyClosed      = errors.New("connection already closed")
	ErrGatewayUnavailable = errors.New("remote desktop gateway unavailable")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many requests")
	ErrInternal           = errors.New("internal server error")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
