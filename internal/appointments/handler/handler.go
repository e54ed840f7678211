package handler

import (
	"net/http"

	"inspection_portal_backend/internal/appointments/conflict"
	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/appointments/service"
	"inspection_portal_backend/internal/appointments/transport"
	"inspection_portal_backend/internal/workflow"
	"inspection_portal_backend/platform/httpkit"
	"inspection_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	svc      *service.Service
	workflow *workflow.Service
	val      *validator.Validator
}

// New creates a new appointments handler
func New(svc *service.Service, wf *workflow.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, workflow: wf, val: val}
}

// RegisterRoutes registers the appointment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	schedulers := httpkit.RequireAnyRole(httpkit.RoleAdmin, httpkit.RoleBranchManager, httpkit.RoleScheduler)

	rg.GET("", h.List)
	rg.POST("", schedulers, h.Create)
	rg.GET("/conflicts", h.Conflicts)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", schedulers, h.Update)
	rg.DELETE("/:id", httpkit.RequireRole(httpkit.RoleAdmin), h.Delete)
	rg.POST("/:id/cancel", schedulers, h.Cancel)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/complete", h.Complete)
}

func viewerOf(identity httpkit.Identity) service.Viewer {
	return service.Viewer{
		UserID:   identity.UserID().String(),
		BranchID: identity.BranchID(),
		Admin:    identity.HasRole(httpkit.RoleAdmin),
		Manager:  identity.HasRole(httpkit.RoleBranchManager) || identity.HasRole(httpkit.RoleScheduler),
	}
}

func actorOf(identity httpkit.Identity) workflow.Actor {
	return workflow.Actor{UserID: identity.UserID().String()}
}

// List handles GET /api/v1/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.List(c.Request.Context(), viewerOf(identity), repository.ListFilter{
		BranchID: req.BranchID,
		Date:     req.Date,
		Status:   repository.Status(req.Status),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AppointmentListResponse{Items: items, Total: len(items)})
}

// Create handles POST /api/v1/appointments
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.workflow.CreateAppointment(c.Request.Context(), actorOf(identity), req.ToWorkflow(identity.BranchID()))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// Conflicts handles GET /api/v1/appointments/conflicts
func (h *Handler) Conflicts(c *gin.Context) {
	var req transport.ConflictsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	found, err := h.workflow.CheckConflicts(c.Request.Context(), req.ToConflict())
	if httpkit.HandleError(c, err) {
		return
	}

	summaries := conflict.Summarize(found)
	httpkit.OK(c, transport.ConflictsResponse{HasConflicts: len(summaries) > 0, Conflicts: summaries})
}

// GetByID handles GET /api/v1/appointments/:id
func (h *Handler) GetByID(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	appt, err := h.svc.GetByID(c.Request.Context(), viewerOf(identity), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, appt)
}

// Update handles PATCH /api/v1/appointments/:id
func (h *Handler) Update(c *gin.Context) {
	var req transport.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity, id, ok := h.authorize(c)
	if !ok {
		return
	}

	result, err := h.workflow.UpdateAppointment(c.Request.Context(), actorOf(identity), id, req.ToWorkflow())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/appointments/:id
func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), viewerOf(identity), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "appointment deleted"})
}

// Cancel handles POST /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req transport.CancelAppointmentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity, id, ok := h.authorize(c)
	if !ok {
		return
	}

	result, err := h.workflow.CancelAppointment(c.Request.Context(), actorOf(identity), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Start handles POST /api/v1/appointments/:id/start
func (h *Handler) Start(c *gin.Context) {
	identity, id, ok := h.authorize(c)
	if !ok {
		return
	}

	result, err := h.workflow.StartAppointment(c.Request.Context(), actorOf(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles POST /api/v1/appointments/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	var req transport.CompleteAppointmentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity, id, ok := h.authorize(c)
	if !ok {
		return
	}

	result, err := h.workflow.CompleteAppointment(c.Request.Context(), actorOf(identity), id, workflow.CompleteRequest{
		ReportID: req.ReportID,
		Notes:    req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// authorize resolves the caller and checks they may see the appointment
// named in the path before it is changed.
func (h *Handler) authorize(c *gin.Context) (httpkit.Identity, string, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return nil, "", false
	}
	id := c.Param("id")
	if _, err := h.svc.GetByID(c.Request.Context(), viewerOf(identity), id); httpkit.HandleError(c, err) {
		return nil, "", false
	}
	return identity, id, true
}

// bindOptionalJSON binds a body if one was sent.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
