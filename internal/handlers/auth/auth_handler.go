// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/domain/user"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	authService "rdm-service/internal/service/auth"
)

type AuthHandler struct {
	service *authService.Service
	logger  *zap.Logger
}

func NewAuthHandler(service *authService.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Login authenticates a username/password pair and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	h.logger.Info("user logged in",
		zap.Int("user_id", resp.User.ID),
		zap.String("username", resp.User.Username),
	)
	response.Success(c, http.StatusOK, "login successful", resp)
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	profile, err := h.service.Me(c.Request.Context(), identity.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "profile", profile)
}

// Logout revokes the caller's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}

	h.service.Logout(c.Request.Context(), identity, middleware.GetToken(c), c.ClientIP())
	response.Success(c, http.StatusOK, "logged out", nil)
}
