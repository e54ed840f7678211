// Package rejectedorders exposes the archive of customer-rejected visits.
package rejectedorders

import (
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/internal/rejectedorders/handler"
	"inspection_portal_backend/internal/rejectedorders/repository"
)

// Module represents the rejected orders module
type Module struct {
	handler *handler.Handler
}

// NewModule creates the module over the archive the workflow writes to.
func NewModule(repo *repository.Repository) *Module {
	return &Module{handler: handler.New(repo)}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "rejected-orders"
}

// RegisterRoutes registers the module's routes under /api/v1/rejected-orders
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/rejected-orders"))
}

var _ apphttp.Module = (*Module)(nil)
