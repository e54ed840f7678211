package handler

import (
	"context"
	"net/http"

	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/internal/visits/transport"
	"inspection_portal_backend/internal/workflow"
	"inspection_portal_backend/platform/httpkit"
	"inspection_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Responder records customer answers by public token.
type Responder interface {
	RespondByToken(ctx context.Context, token string, accept bool, reason string) (*workflow.VisitResult, error)
}

// TokenReader resolves visits by public token.
type TokenReader interface {
	GetByToken(ctx context.Context, token string) (*visitrepo.Visit, error)
}

// PortalHandler serves the unauthenticated customer portal. The public
// token in the path is the only credential.
type PortalHandler struct {
	visits    TokenReader
	responder Responder
	val       *validator.Validator
	baseURL   string
}

// NewPortal creates the customer portal handler.
func NewPortal(visits TokenReader, responder Responder, val *validator.Validator, baseURL string) *PortalHandler {
	return &PortalHandler{visits: visits, responder: responder, val: val, baseURL: baseURL}
}

// RegisterRoutes registers the portal routes.
func (h *PortalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:token", h.Get)
	rg.POST("/:token/accept", h.Accept)
	rg.POST("/:token/reject", h.Reject)
	rg.GET("/:token/qr.png", h.QRCode)
}

// Get handles GET /api/v1/public/visits/:token
func (h *PortalHandler) Get(c *gin.Context) {
	visit, err := h.visits.GetByToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPortalVisit(*visit))
}

// Accept handles POST /api/v1/public/visits/:token/accept
func (h *PortalHandler) Accept(c *gin.Context) {
	result, err := h.responder.RespondByToken(c.Request.Context(), c.Param("token"), true, "")
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPortalVisit(result.Visit))
}

// Reject handles POST /api/v1/public/visits/:token/reject
func (h *PortalHandler) Reject(c *gin.Context) {
	var req transport.RejectVisitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.responder.RespondByToken(c.Request.Context(), c.Param("token"), false, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPortalVisit(result.Visit))
}

// QRCode handles GET /api/v1/public/visits/:token/qr.png. It encodes the
// portal link so printed letters can point at the visit.
func (h *PortalHandler) QRCode(c *gin.Context) {
	visit, err := h.visits.GetByToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}

	png, err := qrcode.Encode(h.baseURL+"/portal/visits/"+visit.PublicToken, qrcode.Medium, qrSize)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
