package handler

import (
	"context"

	"inspection_portal_backend/internal/rejectedorders/repository"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Lister reads the rejection archive.
type Lister interface {
	List(ctx context.Context, branchID string) ([]repository.RejectedOrder, error)
}

// Handler serves the rejected-order report.
type Handler struct {
	orders Lister
}

func New(orders Lister) *Handler {
	return &Handler{orders: orders}
}

// RegisterRoutes registers the report route for admins and branch managers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleBranchManager), h.List)
}

// List handles GET /api/v1/rejected-orders. Admins may filter by branchId;
// managers always see their own branch.
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	branchID := c.Query("branchId")
	if !identity.HasRole(httpkit.RoleAdmin) {
		branchID = identity.BranchID()
		if branchID == "" {
			httpkit.HandleError(c, apperr.Forbidden("branch manager has no branch"))
			return
		}
	}

	items, err := h.orders.List(c.Request.Context(), branchID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": len(items)})
}
