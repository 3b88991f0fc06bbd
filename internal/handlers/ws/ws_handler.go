// internal/handlers/ws/ws_handler.go
package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rdm-service/internal/domain/user"
	"rdm-service/internal/middleware"
	"rdm-service/internal/pkg/response"
	"rdm-service/internal/websocket"
)

// WSHandler upgrades dashboard clients onto the live connection feed. The
// feed exposes other users' session activity, so viewers are kept off it.
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *websocket.Hub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger,
	}
}

// Feed handles GET /ws/connections. Auth middleware has already resolved the
// identity; only the role gate is left here.
func (h *WSHandler) Feed(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Unauthorized(c, "unauthorized")
		return
	}
	if !identity.Role.Satisfies(user.RoleOperator) {
		response.Forbidden(c, "forbidden")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, identity.ID)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
