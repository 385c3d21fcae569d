package handler

import (
	"net/http"

	"storefront_backend/internal/payment/service"
	"storefront_backend/internal/payment/transport"
	"storefront_backend/platform/httpkit"
	"storefront_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for payments. The public routes are the ones
// the buyer's payment page talks to; the direct-link route is operator only.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payment handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes registers the buyer-facing payment routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/:slug/orders", h.CreateProcessorOrder)
	rg.POST("/:slug/capture", h.Capture)
}

// RegisterRoutes registers the operator payment routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateDirectPaymentLink)
}

// CreateProcessorOrder handles POST /api/v1/public/pay/:slug/orders
func (h *Handler) CreateProcessorOrder(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		httpkit.Error(c, http.StatusBadRequest, "slug is required", nil)
		return
	}

	result, err := h.svc.CreateProcessorOrder(c.Request.Context(), slug)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Capture handles POST /api/v1/public/pay/:slug/capture
func (h *Handler) Capture(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		httpkit.Error(c, http.StatusBadRequest, "slug is required", nil)
		return
	}

	var req transport.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Capture(c.Request.Context(), slug, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// CreateDirectPaymentLink handles POST /api/v1/payment-links
func (h *Handler) CreateDirectPaymentLink(c *gin.Context) {
	var req transport.DirectPaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateDirectPaymentLink(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}
