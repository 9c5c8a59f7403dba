// Package handler exposes the status workflow endpoints: reversion
// pre-checks, reversions and the audit history of a diligence.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/internal/statusflow/service"
	"jurisconnect_backend/internal/statusflow/transport"
	"jurisconnect_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the status workflow routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/can-revert", h.CanRevert)
	rg.POST("/revert", h.Revert)
	rg.GET("/history/:entityId", h.History)
}

func actorFrom(c *gin.Context) service.Actor {
	identity := httpkit.MustGetIdentity(c)
	return service.Actor{
		UserID:  identity.UserID(),
		IsAdmin: identity.HasRole(httpkit.RoleAdmin),
	}
}

// CanRevert handles GET /api/v1/status/can-revert
func (h *Handler) CanRevert(c *gin.Context) {
	var q transport.CanRevertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	entityID, err := uuid.Parse(q.EntityID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "entityId must be a uuid")
		return
	}
	ref := transport.EntityRef{EntityID: entityID, EntityType: q.EntityType, PaymentType: q.PaymentType}
	kind, paymentKind, ok := ref.Resolve()
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "entityType and paymentType do not form a valid entity reference")
		return
	}

	resp, err := h.svc.CanRevert(c.Request.Context(), entityID, kind, paymentKind, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Revert handles POST /api/v1/status/revert
func (h *Handler) Revert(c *gin.Context) {
	var req transport.RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	kind, paymentKind, ok := req.Resolve()
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "entityType and paymentType do not form a valid entity reference")
		return
	}

	in := service.RevertInput{
		EntityID:    req.EntityID,
		Kind:        kind,
		PaymentKind: paymentKind,
		Reason:      req.Reason,
		Actor:       actorFrom(c),
	}
	if req.TargetStatus != "" {
		target := domain.Status(req.TargetStatus)
		in.TargetStatus = &target
	}

	resp, err := h.svc.Revert(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// History handles GET /api/v1/status/history/:entityId
func (h *Handler) History(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("entityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "entityId must be a uuid")
		return
	}
	var q transport.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	entries, err := h.svc.History(c.Request.Context(), entityID,
		domain.EntityKind(q.EntityType), domain.PaymentKind(q.PaymentType))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entries)
}
