// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rdm-service/internal/config"
	"rdm-service/internal/db"
	"rdm-service/internal/gateway"
	auditHandler "rdm-service/internal/handlers/audit"
	authHandler "rdm-service/internal/handlers/auth"
	connectionHandler "rdm-service/internal/handlers/connection"
	deviceHandler "rdm-service/internal/handlers/device"
	permissionHandler "rdm-service/internal/handlers/permission"
	userHandler "rdm-service/internal/handlers/user"
	wsHandler "rdm-service/internal/handlers/ws"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/jwt"
	"rdm-service/internal/pkg/session"
	"rdm-service/internal/repository/postgres"
	auditService "rdm-service/internal/service/audit"
	authSvc "rdm-service/internal/service/auth"
	connectionService "rdm-service/internal/service/connection"
	deviceService "rdm-service/internal/service/device"
	permissionService "rdm-service/internal/service/permission"
	userService "rdm-service/internal/service/user"
	"rdm-service/internal/websocket"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	return &Server{
		cfg:    config.Load(),
		engine: gin.New(),
	}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectPostgres(ctx, s.cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to postgres")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(s.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis")

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Rate Limiter & Session Store -----
	rateLimiter := session.NewRateLimiter(redisClient)
	sessionStorage := session.NewRedisStorage(redisClient, s.cfg.JWT.TTL)
	sessions := session.NewSessions(sessionStorage)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	userRepo := postgres.NewUserRepository(pool)
	deviceRepo := postgres.NewDeviceRepository(pool)
	permissionRepo := postgres.NewPermissionRepository(pool)
	connectionRepo := postgres.NewConnectionRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	// ----- Gateway -----
	gw := gateway.NewHTTPClient(s.cfg.GatewayURL, s.cfg.GatewayToken, s.cfg.GatewayTimeout, logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services -----
	auditSvc := auditService.NewService(auditRepo, logger)
	permissionSvc := permissionService.NewService(permissionRepo)
	authService := authSvc.NewService(userRepo, jwtManager, rateLimiter, auditSvc, sessions, logger)
	deviceSvc := deviceService.NewService(deviceRepo, permissionSvc, auditSvc, logger)
	userSvc := userService.NewService(userRepo, auditRepo, dbWrapper, auditSvc, logger)
	connectionSvc := connectionService.NewService(
		connectionRepo,
		deviceRepo,
		permissionSvc,
		gw,
		auditSvc,
		hub,
		s.cfg.GatewayTimeout,
		logger,
	)

	// ----- Bootstrap admin -----
	if err := s.initializeAdmin(userSvc); err != nil {
		logger.Error("failed to bootstrap admin account", zap.Error(err))
	}

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:       authHandler.NewAuthHandler(authService, logger),
		UserHandler:       userHandler.NewUserHandler(userSvc, logger),
		DeviceHandler:     deviceHandler.NewDeviceHandler(deviceSvc, logger),
		ConnectionHandler: connectionHandler.NewConnectionHandler(connectionSvc, logger),
		PermissionHandler: permissionHandler.NewPermissionHandler(permissionSvc, logger),
		AuditHandler:      auditHandler.NewAuditHandler(auditSvc),
		WSHandler:         wsHandler.NewWSHandler(hub, s.cfg.AllowedOrigins, logger),
		AuthMiddleware:    middleware.NewAuthMiddleware(authService),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	SetupRouter(s.engine, handlers)

	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}

// initializeAdmin provisions the bootstrap administrator when configured.
func (s *Server) initializeAdmin(userSvc *userService.Service) error {
	if s.cfg.AdminPassword == "" {
		s.logger.Warn("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}
	if len(s.cfg.AdminPassword) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return userSvc.EnsureAdminExists(ctx, s.cfg.AdminUsername, s.cfg.AdminEmail, s.cfg.AdminPassword)
}
