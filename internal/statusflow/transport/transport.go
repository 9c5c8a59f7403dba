// Package transport defines the request and response shapes for the status
// workflow endpoints. Entity references are a closed tagged union: a
// diligence, or one payment leg of a diligence identified by paymentType.
package transport

import (
	"time"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/statusflow/domain"
)

// EntityRef identifies the revertible entity a request targets.
type EntityRef struct {
	EntityID    uuid.UUID `json:"entityId" binding:"required"`
	EntityType  string    `json:"entityType" binding:"required,oneof=diligence payment"`
	PaymentType string    `json:"paymentType,omitempty" binding:"omitempty,oneof=client correspondent"`
}

// Resolve narrows the wire shape into domain kinds. Payment refs must carry
// a payment type; diligence refs must not.
func (r EntityRef) Resolve() (domain.EntityKind, domain.PaymentKind, bool) {
	kind := domain.EntityKind(r.EntityType)
	if !kind.Valid() {
		return "", "", false
	}
	if kind == domain.EntityPayment {
		pk := domain.PaymentKind(r.PaymentType)
		if !pk.Valid() {
			return "", "", false
		}
		return kind, pk, true
	}
	if r.PaymentType != "" {
		return "", "", false
	}
	return kind, "", true
}

type CanRevertQuery struct {
	EntityID    string `form:"entityId" binding:"required,uuid"`
	EntityType  string `form:"entityType" binding:"required,oneof=diligence payment"`
	PaymentType string `form:"paymentType" binding:"omitempty,oneof=client correspondent"`
}

type CanRevertResponse struct {
	Possible bool     `json:"possible"`
	Message  string   `json:"message"`
	Targets  []string `json:"targets,omitempty"`
}

type RevertRequest struct {
	EntityRef
	TargetStatus string `json:"targetStatus,omitempty"`
	Reason       string `json:"reason" binding:"required"`
}

type HistoryQuery struct {
	EntityType  string `form:"entityType" binding:"omitempty,oneof=diligence payment"`
	PaymentType string `form:"paymentType" binding:"omitempty,oneof=client correspondent"`
}

type StatusHistoryEntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	DiligenceID    uuid.UUID  `json:"diligenceId"`
	PaymentID      *uuid.UUID `json:"paymentId,omitempty"`
	EntityType     string     `json:"entityType"`
	PaymentType    string     `json:"paymentType,omitempty"`
	PreviousStatus string     `json:"previousStatus"`
	NewStatus      string     `json:"newStatus"`
	UserID         uuid.UUID  `json:"userId"`
	Reason         string     `json:"reason"`
	Timestamp      time.Time  `json:"timestamp"`
}

func ToHistoryEntryResponse(e domain.LedgerEntry) StatusHistoryEntryResponse {
	return StatusHistoryEntryResponse{
		ID:             e.ID,
		DiligenceID:    e.DiligenceID,
		PaymentID:      e.PaymentID,
		EntityType:     string(e.EntityType),
		PaymentType:    string(e.PaymentType),
		PreviousStatus: string(e.PreviousStatus),
		NewStatus:      string(e.NewStatus),
		UserID:         e.UserID,
		Reason:         e.Reason,
		Timestamp:      e.CreatedAt,
	}
}

// RevertedEntityResponse is the updated entity returned by a successful
// reversion. For diligences PaymentType is empty and Status carries the new
// diligence status; for payments both legs are reported.
type RevertedEntityResponse struct {
	EntityID            uuid.UUID `json:"entityId"`
	EntityType          string    `json:"entityType"`
	PaymentType         string    `json:"paymentType,omitempty"`
	Status              string    `json:"status"`
	ClientStatus        string    `json:"clientStatus,omitempty"`
	CorrespondentStatus string    `json:"correspondentStatus,omitempty"`
	PreviousStatus      string    `json:"previousStatus"`
}
