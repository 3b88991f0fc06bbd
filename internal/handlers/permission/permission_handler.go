// internal/handlers/permission/permission_handler.go
package permission

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/domain/permission"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	permService "rdm-service/internal/service/permission"
)

type PermissionHandler struct {
	service *permService.Service
	logger  *zap.Logger
}

func NewPermissionHandler(service *permService.Service, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{service: service, logger: logger}
}

type grantRequest struct {
	UserID int              `json:"userId" binding:"required"`
	Level  permission.Level `json:"permission" binding:"required"`
}

// Grant gives a user access to a device.
func (h *PermissionHandler) Grant(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	actor := middleware.GetIdentity(c)
	grant := &permission.Grant{
		UserID:   req.UserID,
		DeviceID: deviceID,
		Level:    req.Level,
	}
	if err := h.service.GrantAccess(c.Request.Context(), actor, grant); err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("permission granted",
		zap.Int("device_id", deviceID),
		zap.Int("user_id", req.UserID),
		zap.String("level", string(req.Level)),
		zap.Int("actor_id", actor.ID),
	)
	response.Success(c, http.StatusCreated, "permission granted", grant)
}

// Revoke removes a user's access to a device.
func (h *PermissionHandler) Revoke(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "invalid user id", err)
		return
	}

	if err := h.service.RevokeAccess(c.Request.Context(), middleware.GetIdentity(c), userID, deviceID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "permission revoked", nil)
}

// List returns every direct grant on a device.
func (h *PermissionHandler) List(c *gin.Context) {
	deviceID, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	grants, err := h.service.ListDeviceGrants(c.Request.Context(), middleware.GetIdentity(c), deviceID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "permissions", grants)
}
