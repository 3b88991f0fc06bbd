// internal/handlers/connection/connection_handler.go
package connection

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/domain/connection"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	connService "rdm-service/internal/service/connection"
)

type ConnectionHandler struct {
	service *connService.Service
	logger  *zap.Logger
}

func NewConnectionHandler(service *connService.Service, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{service: service, logger: logger}
}

// Initiate opens a remote session to a device.
func (h *ConnectionHandler) Initiate(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	identity := middleware.GetIdentity(c)
	resp, err := h.service.Initiate(c.Request.Context(), identity, deviceID,
		c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		h.logger.Warn("connection initiate failed",
			zap.Int("device_id", deviceID),
			zap.Int("user_id", identity.ID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	h.logger.Info("connection established",
		zap.Int("device_id", deviceID),
		zap.Int("user_id", identity.ID),
		zap.Int("log_id", resp.ConnectionLogID),
	)
	response.Success(c, http.StatusCreated, "connection established", resp)
}

// End closes an open session.
func (h *ConnectionHandler) End(c *gin.Context) {
	logID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid connection log id", err)
		return
	}

	// The body is optional; absence means a normal close.
	var req connection.EndRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid request", err)
			return
		}
	}

	closed, err := h.service.End(c.Request.Context(), middleware.GetIdentity(c), logID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "connection closed", closed)
}

// List returns connection logs: the caller's own, or any user's for
// operators and admins via the userId query parameter.
func (h *ConnectionHandler) List(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	page := intQuery(c, "page", 0)
	size := intQuery(c, "size", 20)

	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationError(c, "invalid user id", err)
			return
		}
		logs, err := h.service.ListByUser(c.Request.Context(), identity, userID, page, size)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, "connection logs", logs)
		return
	}

	logs, err := h.service.ListOwn(c.Request.Context(), identity, page, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "connection logs", logs)
}

// DeviceLogs returns the connection history of one device.
func (h *ConnectionHandler) DeviceLogs(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	logs, err := h.service.ListByDevice(c.Request.Context(), middleware.GetIdentity(c),
		deviceID, intQuery(c, "page", 0), intQuery(c, "size", 20))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "connection logs", logs)
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
