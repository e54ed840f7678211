// Package appointments provides the appointments domain module.
package appointments

import (
	"inspection_portal_backend/internal/appointments/handler"
	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/appointments/service"
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/internal/workflow"
	"inspection_portal_backend/platform/validator"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module. State changes are delegated
// to the workflow orchestrator, which shares repo.
func NewModule(repo *repository.Repository, wf *workflow.Service, val *validator.Validator) *Module {
	svc := service.New(repo)
	h := handler.New(svc, wf, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appointments := ctx.Protected.Group("/appointments")
	m.handler.RegisterRoutes(appointments)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
