// internal/handlers/audit/audit_handler.go
package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/pkg/response"
	auditService "rdm-service/internal/service/audit"
)

// AuditHandler exposes the audit trail, read-only and admin-only.
type AuditHandler struct {
	service *auditService.Service
}

func NewAuditHandler(service *auditService.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns one page of the trail, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	var userID *int
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationError(c, "invalid user id", err)
			return
		}
		userID = &id
	}

	page, _ := strconv.Atoi(c.Query("page"))
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		size = 20
	}

	entries, total, err := h.service.List(c.Request.Context(), userID,
		audit.Action(c.Query("action")), page, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "audit log", gin.H{
		"items": entries,
		"total": total,
		"page":  page,
		"size":  size,
	})
}
