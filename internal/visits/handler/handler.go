package handler

import (
	"context"
	"net/http"

	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/internal/visits/transport"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Reader is the visit lookup used by staff routes.
type Reader interface {
	GetByID(ctx context.Context, id string) (*visitrepo.Visit, error)
	ListByBranch(ctx context.Context, branchID string) ([]visitrepo.Visit, error)
}

// Handler serves staff read access to scheduled visits.
type Handler struct {
	visits Reader
}

// New creates a staff visits handler.
func New(visits Reader) *Handler {
	return &Handler{visits: visits}
}

// RegisterRoutes registers the staff visit routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

// List handles GET /api/v1/visits. Admins may pick a branch, everyone else
// sees their own branch and inspectors only their assignments.
func (h *Handler) List(c *gin.Context) {
	var req transport.ListVisitsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	branchID := identity.BranchID()
	if identity.HasRole(httpkit.RoleAdmin) && req.BranchID != "" {
		branchID = req.BranchID
	}
	if branchID == "" {
		httpkit.HandleError(c, apperr.Validation("branchId is required"))
		return
	}

	items, err := h.visits.ListByBranch(c.Request.Context(), branchID)
	if httpkit.HandleError(c, err) {
		return
	}
	if !seesWholeBranch(identity) {
		userID := identity.UserID().String()
		own := make([]visitrepo.Visit, 0, len(items))
		for _, v := range items {
			if v.InspectorID == userID || v.CreatedBy == userID {
				own = append(own, v)
			}
		}
		items = own
	}
	if items == nil {
		items = []visitrepo.Visit{}
	}

	httpkit.OK(c, transport.VisitListResponse{Items: items, Total: len(items)})
}

// GetByID handles GET /api/v1/visits/:id
func (h *Handler) GetByID(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	visit, err := h.visits.GetByID(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	if !canView(identity, *visit) {
		httpkit.HandleError(c, apperr.Forbidden("not allowed to access this visit"))
		return
	}

	httpkit.OK(c, visit)
}

func seesWholeBranch(identity httpkit.Identity) bool {
	return identity.HasRole(httpkit.RoleAdmin) ||
		identity.HasRole(httpkit.RoleBranchManager) ||
		identity.HasRole(httpkit.RoleScheduler)
}

func canView(identity httpkit.Identity, v visitrepo.Visit) bool {
	if identity.HasRole(httpkit.RoleAdmin) {
		return true
	}
	if seesWholeBranch(identity) {
		return identity.BranchID() != "" && identity.BranchID() == v.BranchID
	}
	userID := identity.UserID().String()
	return v.InspectorID == userID || v.CreatedBy == userID
}
