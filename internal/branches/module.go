// Package branches maintains the branch directory used to route customer
// rejections to the responsible manager.
package branches

import (
	"inspection_portal_backend/internal/branches/handler"
	"inspection_portal_backend/internal/branches/repository"
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/platform/validator"
)

// Module represents the branches module
type Module struct {
	handler *handler.Handler
}

func NewModule(repo *repository.Repository, val *validator.Validator) *Module {
	return &Module{handler: handler.New(repo, val)}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "branches"
}

// RegisterRoutes registers the admin routes under /api/v1/admin/branches
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/branches"))
}

var _ apphttp.Module = (*Module)(nil)
