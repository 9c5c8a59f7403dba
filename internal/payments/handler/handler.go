// Package handler exposes the payment endpoints: status pair, admin
// confirmations, proof submission/verification and the PIX QR code.
package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/payments/service"
	"jurisconnect_backend/internal/payments/transport"
	"jurisconnect_backend/platform/httpkit"
)

const (
	msgInvalidRequest = "invalid request"

	// maxProofImageSize caps proof uploads at 8 MiB.
	maxProofImageSize = 8 << 20
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the protected payment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:diligenceId", h.GetPayment)
	rg.GET("/:diligenceId/pix-qr", h.PixQR)
	rg.POST("/:diligenceId/proof", h.SubmitProof)
}

// RegisterAdminRoutes registers the admin-only payment routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/:diligenceId/client/paid", h.MarkClientPaid)
	rg.POST("/:diligenceId/correspondent/paid", h.MarkCorrespondentPaid)
	rg.GET("/proofs/:id", h.GetProof)
	rg.POST("/proofs/:id/verify", h.VerifyProof)
}

func actorFrom(c *gin.Context) service.Actor {
	identity := httpkit.MustGetIdentity(c)
	return service.Actor{
		UserID:  identity.UserID(),
		IsAdmin: identity.HasRole(httpkit.RoleAdmin),
	}
}

func diligenceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("diligenceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "diligenceId must be a uuid")
		return uuid.UUID{}, false
	}
	return id, true
}

// GetPayment handles GET /api/v1/payments/:diligenceId
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := diligenceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetPayment(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// MarkClientPaid handles POST /api/v1/admin/payments/:diligenceId/client/paid
func (h *Handler) MarkClientPaid(c *gin.Context) {
	id, ok := diligenceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.MarkClientPaid(c.Request.Context(), id, actorFrom(c).UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// MarkCorrespondentPaid handles POST /api/v1/admin/payments/:diligenceId/correspondent/paid
func (h *Handler) MarkCorrespondentPaid(c *gin.Context) {
	id, ok := diligenceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.MarkCorrespondentPaid(c.Request.Context(), id, actorFrom(c).UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// SubmitProof handles POST /api/v1/payments/:diligenceId/proof
func (h *Handler) SubmitProof(c *gin.Context) {
	id, ok := diligenceID(c)
	if !ok {
		return
	}
	var req transport.SubmitProofRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "amount must be a decimal number")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "proof image file is required")
		return
	}
	if file.Size > maxProofImageSize {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "proof image exceeds the size limit")
		return
	}
	src, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "cannot read proof image")
		return
	}
	defer src.Close()
	content, err := io.ReadAll(io.LimitReader(src, maxProofImageSize))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "cannot read proof image")
		return
	}

	resp, err := h.svc.SubmitProof(c.Request.Context(), service.SubmitProofInput{
		DiligenceID: id,
		PixKey:      req.PixKey,
		Amount:      amount,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Image:       content,
		Actor:       actorFrom(c),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, resp)
}

// GetProof handles GET /api/v1/admin/payments/proofs/:id
func (h *Handler) GetProof(c *gin.Context) {
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "proof id must be a uuid")
		return
	}
	resp, err := h.svc.GetProofDetail(c.Request.Context(), proofID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// VerifyProof handles POST /api/v1/admin/payments/proofs/:id/verify
func (h *Handler) VerifyProof(c *gin.Context) {
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "proof id must be a uuid")
		return
	}
	var req transport.VerifyProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	resp, err := h.svc.VerifyProof(c.Request.Context(), proofID, req.Approved, req.RejectionReason, actorFrom(c).UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// PixQR handles GET /api/v1/payments/:diligenceId/pix-qr
func (h *Handler) PixQR(c *gin.Context) {
	id, ok := diligenceID(c)
	if !ok {
		return
	}
	png, err := h.svc.PixQR(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
