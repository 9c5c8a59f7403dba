// Package handler exposes the diligence endpoints: CRUD-lite reads,
// creation, forward transitions and both assignment paths.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jurisconnect_backend/internal/diligences/service"
	"jurisconnect_backend/internal/diligences/transport"
	"jurisconnect_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the protected diligence routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transition", h.Transition)
}

// RegisterAdminRoutes registers the admin-only assignment routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/assign/auto", h.AutoAssign)
}

func actorFrom(c *gin.Context) service.Actor {
	identity := httpkit.MustGetIdentity(c)
	return service.Actor{
		UserID:          identity.UserID(),
		IsAdmin:         identity.HasRole(httpkit.RoleAdmin),
		IsCorrespondent: identity.HasRole(httpkit.RoleCorrespondent),
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "id must be a uuid")
		return uuid.UUID{}, false
	}
	return id, true
}

// Create handles POST /api/v1/diligences
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actorFrom(c).UserID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, resp)
}

// List handles GET /api/v1/diligences
func (h *Handler) List(c *gin.Context) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	resp, err := h.svc.List(c.Request.Context(), q, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Get handles GET /api/v1/diligences/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Transition handles POST /api/v1/diligences/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	resp, err := h.svc.Transition(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Assign handles POST /api/v1/admin/diligences/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	resp, err := h.svc.Assign(c.Request.Context(), id, req.CorrespondentID, actorFrom(c).UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// AutoAssign handles POST /api/v1/admin/diligences/:id/assign/auto
func (h *Handler) AutoAssign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.AutoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	resp, err := h.svc.AutoAssign(c.Request.Context(), id, req, actorFrom(c).UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
