// internal/handlers/user/user_handler.go
package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/domain/user"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	userService "rdm-service/internal/service/user"
)

// UserHandler exposes account administration. Every route behind it already
// requires the admin role.
type UserHandler struct {
	service *userService.Service
	logger  *zap.Logger
}

func NewUserHandler(service *userService.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// Create provisions an account.
func (h *UserHandler) Create(c *gin.Context) {
	var req user.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	actor := middleware.GetIdentity(c)
	identity, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("user created",
		zap.Int("user_id", identity.ID),
		zap.Int("actor_id", actor.ID),
	)
	response.Success(c, http.StatusCreated, "user created", identity)
}

// Get returns one account.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "invalid user id", err)
		return
	}

	identity, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user", identity)
}

// Update patches an account.
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "invalid user id", err)
		return
	}

	var req user.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	identity, err := h.service.Update(c.Request.Context(), middleware.GetIdentity(c), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user updated", identity)
}

// Deactivate disables an account.
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		response.ValidationError(c, "invalid user id", err)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user deactivated", nil)
}

// List returns one page of accounts.
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		size = 20
	}

	users, total, err := h.service.List(c.Request.Context(), page, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "users", gin.H{
		"items": users,
		"total": total,
		"page":  page,
		"size":  size,
	})
}
