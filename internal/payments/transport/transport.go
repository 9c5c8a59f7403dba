package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/payments/repository"
)

type PaymentResponse struct {
	ID                  uuid.UUID       `json:"id"`
	DiligenceID         uuid.UUID       `json:"diligenceId"`
	ClientStatus        string          `json:"clientStatus"`
	CorrespondentStatus string          `json:"correspondentStatus"`
	ClientAmount        decimal.Decimal `json:"clientAmount"`
	CorrespondentAmount decimal.Decimal `json:"correspondentAmount"`
	PixKey              *string         `json:"pixKey,omitempty"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func ToPaymentResponse(p *repository.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  p.ID,
		DiligenceID:         p.DiligenceID,
		ClientStatus:        string(p.ClientStatus),
		CorrespondentStatus: string(p.CorrespondentStatus),
		ClientAmount:        p.ClientAmount,
		CorrespondentAmount: p.CorrespondentAmount,
		PixKey:              p.PixKey,
		UpdatedAt:           p.UpdatedAt,
	}
}

// SubmitProofRequest is the multipart form accompanying the proof image.
type SubmitProofRequest struct {
	PixKey string `form:"pixKey" binding:"required"`
	Amount string `form:"amount" binding:"required"`
}

type ProofResponse struct {
	ID              uuid.UUID       `json:"id"`
	DiligenceID     uuid.UUID       `json:"diligenceId"`
	PixKey          string          `json:"pixKey"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	SubmittedBy     uuid.UUID       `json:"submittedBy"`
	VerifiedBy      *uuid.UUID      `json:"verifiedBy,omitempty"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func ToProofResponse(p *repository.Proof) ProofResponse {
	return ProofResponse{
		ID:              p.ID,
		DiligenceID:     p.DiligenceID,
		PixKey:          p.PixKey,
		Amount:          p.Amount,
		Status:          p.Status,
		SubmittedBy:     p.SubmittedBy,
		VerifiedBy:      p.VerifiedBy,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
	}
}

// ProofDetailResponse adds a time-limited download URL for the proof image
// to the base proof fields.
type ProofDetailResponse struct {
	ProofResponse
	ImageURL       string    `json:"imageUrl"`
	ImageExpiresAt time.Time `json:"imageExpiresAt"`
}

type VerifyProofRequest struct {
	Approved        bool   `json:"approved"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}
