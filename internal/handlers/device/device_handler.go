// internal/handlers/device/device_handler.go
package device

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/domain/device"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	deviceService "rdm-service/internal/service/device"
)

type DeviceHandler struct {
	service *deviceService.Service
	logger  *zap.Logger
}

func NewDeviceHandler(service *deviceService.Service, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{service: service, logger: logger}
}

// List returns the devices the caller may see, paginated.
func (h *DeviceHandler) List(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	filters := &device.ListFilters{
		Search:   c.Query("search"),
		Protocol: device.Protocol(c.Query("protocol")),
		Status:   device.Status(c.Query("status")),
		Page:     intQuery(c, "page", 0),
		Size:     intQuery(c, "size", 20),
	}

	page, err := h.service.List(c.Request.Context(), identity, filters)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "devices", page)
}

// Get returns one device.
func (h *DeviceHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	d, err := h.service.Get(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "device", d)
}

// Create registers a new device in the catalog.
func (h *DeviceHandler) Create(c *gin.Context) {
	var req device.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	identity := middleware.GetIdentity(c)
	d, err := h.service.Create(c.Request.Context(), identity, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("device created",
		zap.Int("device_id", d.ID),
		zap.String("name", d.Name),
		zap.Int("user_id", identity.ID),
	)
	response.Success(c, http.StatusCreated, "device created", d)
}

// Update patches a device.
func (h *DeviceHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	var req device.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	d, err := h.service.Update(c.Request.Context(), middleware.GetIdentity(c), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "device updated", d)
}

// Delete retires a device.
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("deviceId"))
	if err != nil {
		response.ValidationError(c, "invalid device id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "device deleted", nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
