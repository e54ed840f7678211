// Package notification owns in-app notifications, their live SSE stream and
// the email outbox.
package notification

import (
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/internal/notification/handler"
	"inspection_portal_backend/internal/notification/inapp"
	"inspection_portal_backend/internal/notification/sse"
	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/httpkit"
	"inspection_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module wires the in-app notification service to HTTP.
type Module struct {
	handler *handler.HTTPHandler
	SSE     *sse.Service
	InApp   *inapp.Service
}

// NewModule creates the notification module.
func NewModule(store docstore.Repository, log *logger.Logger) *Module {
	stream := sse.New(log)
	svc := inapp.NewService(inapp.NewRepository(store), log)
	svc.SetSSE(stream)

	return &Module{
		handler: handler.NewHTTPHandler(svc),
		SSE:     stream,
		InApp:   svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes under /api/v1/notifications
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
	group.GET("/stream", m.SSE.Handler(streamIdentity))
}

func streamIdentity(c *gin.Context) (string, string, bool) {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return "", "", false
	}
	return id.UserID().String(), id.BranchID(), true
}

var _ apphttp.Module = (*Module)(nil)
