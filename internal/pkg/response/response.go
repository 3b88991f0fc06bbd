// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "rdm-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	c.Abort()

	resp := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// FromError maps a service sentinel error to its HTTP status and responds.
// Credential and token failures collapse to a generic 401 so the transport
// never leaks which check failed.
func FromError(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, xerrors.ErrInvalidCredentials),
		xerrors.Is(err, xerrors.ErrTokenExpired),
		xerrors.Is(err, xerrors.ErrTokenMalformed),
		xerrors.Is(err, xerrors.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, "unauthorized", xerrors.ErrUnauthorized)
	case xerrors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, "forbidden", err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, "not found", err)
	case xerrors.Is(err, xerrors.ErrAlreadyConnected),
		xerrors.Is(err, xerrors.ErrAlreadyClosed),
		xerrors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, "conflict", err)
	case xerrors.Is(err, xerrors.ErrGatewayUnavailable):
		Error(c, http.StatusBadGateway, "gateway unavailable", err)
	case xerrors.Is(err, xerrors.ErrRateLimited):
		Error(c, http.StatusTooManyRequests, "too many requests", err)
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		Error(c, http.StatusBadRequest, "invalid request", err)
	case xerrors.Is(err, xerrors.ErrStorageUnavailable):
		Error(c, http.StatusServiceUnavailable, "service unavailable", err)
	default:
		Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
