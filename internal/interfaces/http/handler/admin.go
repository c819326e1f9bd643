package handler

import (
	financeapp "github.com/finledger/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operational endpoints that act on a whole tenant
type AdminHandler struct {
	BaseHandler
	rebuild *financeapp.ProjectionRebuildService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(rebuild *financeapp.ProjectionRebuildService) *AdminHandler {
	return &AdminHandler{rebuild: rebuild}
}

// RegisterRoutes registers admin routes on the given group
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/system/projections/rebuild", h.RebuildProjections)
}

// RebuildProjections handles POST /system/projections/rebuild. It wipes the
// calling tenant's read models and replays its event history. Queries against
// the tenant see partial data until the call returns.
func (h *AdminHandler) RebuildProjections(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Missing tenant identity")
		return
	}

	if err := h.rebuild.RebuildTenant(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"status": "rebuilt"})
}
