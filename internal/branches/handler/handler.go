package handler

import (
	"context"
	"net/http"

	"inspection_portal_backend/internal/branches/repository"
	"inspection_portal_backend/platform/httpkit"
	"inspection_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Store reads and writes branches.
type Store interface {
	Upsert(ctx context.Context, b repository.Branch) (*repository.Branch, error)
	GetByID(ctx context.Context, id string) (*repository.Branch, error)
}

// UpsertBranchRequest is the body of PUT /admin/branches/:id.
type UpsertBranchRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	ManagerID    string `json:"managerId" validate:"omitempty,max=100"`
	ManagerName  string `json:"managerName" validate:"omitempty,max=200"`
	ManagerEmail string `json:"managerEmail" validate:"omitempty,email,max=254"`
}

// Handler serves the branch directory to admins.
type Handler struct {
	store Store
	val   *validator.Validator
}

func New(store Store, val *validator.Validator) *Handler {
	return &Handler{store: store, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Upsert)
}

// Get handles GET /api/v1/admin/branches/:id
func (h *Handler) Get(c *gin.Context) {
	branch, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, branch)
}

// Upsert handles PUT /api/v1/admin/branches/:id
func (h *Handler) Upsert(c *gin.Context) {
	var req UpsertBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	branch, err := h.store.Upsert(c.Request.Context(), repository.Branch{
		ID:           c.Param("id"),
		Name:         req.Name,
		ManagerID:    req.ManagerID,
		ManagerName:  req.ManagerName,
		ManagerEmail: req.ManagerEmail,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, branch)
}
