// Package visits exposes scheduled visits to staff and to customers through
// the token-based portal.
package visits

import (
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/internal/visits/handler"
	"inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/internal/workflow"
	"inspection_portal_backend/platform/validator"
)

// Module represents the visits domain module
type Module struct {
	handler *handler.Handler
	portal  *handler.PortalHandler
}

// NewModule creates the visits module. Customer responses are delegated to
// the workflow orchestrator.
func NewModule(repo *repository.Repository, wf *workflow.Service, val *validator.Validator, baseURL string) *Module {
	return &Module{
		handler: handler.New(repo),
		portal:  handler.NewPortal(repo, wf, val, baseURL),
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "visits"
}

// RegisterRoutes registers staff routes under /api/v1/visits and portal
// routes under /api/v1/public/visits.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/visits"))
	if ctx.Public != nil {
		m.portal.RegisterRoutes(ctx.Public.Group("/visits"))
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
