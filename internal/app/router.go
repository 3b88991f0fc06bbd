// internal/app/router.go
package app

import (
	"github.com/gin-gonic/gin"

	"rdm-service/internal/domain/user"
	auditHandler "rdm-service/internal/handlers/audit"
	authHandler "rdm-service/internal/handlers/auth"
	connectionHandler "rdm-service/internal/handlers/connection"
	deviceHandler "rdm-service/internal/handlers/device"
	permissionHandler "rdm-service/internal/handlers/permission"
	userHandler "rdm-service/internal/handlers/user"
	wsHandler "rdm-service/internal/handlers/ws"
	"rdm-service/internal/middleware"
)

type Handlers struct {
	AuthHandler       *authHandler.AuthHandler
	UserHandler       *userHandler.UserHandler
	DeviceHandler     *deviceHandler.DeviceHandler
	ConnectionHandler *connectionHandler.ConnectionHandler
	PermissionHandler *permissionHandler.PermissionHandler
	AuditHandler      *auditHandler.AuditHandler
	WSHandler         *wsHandler.WSHandler
	AuthMiddleware    *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ==================== Public Auth Routes ====================
	api.POST("/auth/login", h.AuthHandler.Login)

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.GET("/me", h.AuthHandler.Me)
		authProtected.POST("/logout", h.AuthHandler.Logout)
	}

	// ==================== Devices ====================
	devices := api.Group("/devices")
	devices.Use(h.AuthMiddleware.Auth())
	{
		devices.GET("", h.DeviceHandler.List)
		devices.GET("/:deviceId", h.DeviceHandler.Get)

		manage := devices.Group("")
		manage.Use(h.AuthMiddleware.RequireRole(user.RoleOperator))
		{
			manage.POST("", h.DeviceHandler.Create)
			manage.PUT("/:deviceId", h.DeviceHandler.Update)
		}

		admin := devices.Group("")
		admin.Use(h.AuthMiddleware.RequireRole(user.RoleAdmin))
		{
			admin.DELETE("/:deviceId", h.DeviceHandler.Delete)
			admin.GET("/:deviceId/permissions", h.PermissionHandler.List)
			admin.POST("/:deviceId/permissions", h.PermissionHandler.Grant)
			admin.DELETE("/:deviceId/permissions/:userId", h.PermissionHandler.Revoke)
		}
	}

	// ==================== Connections ====================
	connections := api.Group("/connections")
	connections.Use(h.AuthMiddleware.Auth())
	{
		connections.GET("", h.ConnectionHandler.List)
		// One param name per segment position; gin rejects mixed names.
		connections.POST("/:id/initiate", h.ConnectionHandler.Initiate)
		connections.POST("/:id/end", h.ConnectionHandler.End)
		connections.GET("/device/:id/logs", h.ConnectionHandler.DeviceLogs)
	}

	// ==================== Admin: Users & Audit ====================
	adminAPI := api.Group("")
	adminAPI.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole(user.RoleAdmin))
	{
		adminAPI.GET("/users", h.UserHandler.List)
		adminAPI.POST("/users", h.UserHandler.Create)
		adminAPI.GET("/users/:userId", h.UserHandler.Get)
		adminAPI.PUT("/users/:userId", h.UserHandler.Update)
		adminAPI.DELETE("/users/:userId", h.UserHandler.Deactivate)

		adminAPI.GET("/audit", h.AuditHandler.List)
	}

	// ==================== WebSocket ====================
	r.GET("/ws", h.AuthMiddleware.Auth(), h.WSHandler.Feed)
}
