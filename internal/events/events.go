// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"jurisconnect_backend/platform/events"
	"jurisconnect_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Diligence Domain Events
// =============================================================================

// DiligenceCreated is published when a client files a new diligence.
type DiligenceCreated struct {
	BaseEvent
	DiligenceID uuid.UUID `json:"diligenceId"`
	ClientID    uuid.UUID `json:"clientId"`
	Title       string    `json:"title"`
	City        string    `json:"city"`
	State       string    `json:"state"`
}

func (e DiligenceCreated) EventName() string { return "diligence.created" }

// DiligenceAssigned is published when a correspondent is attached to a
// diligence, either manually or through the matcher.
type DiligenceAssigned struct {
	BaseEvent
	DiligenceID     uuid.UUID `json:"diligenceId"`
	CorrespondentID uuid.UUID `json:"correspondentId"`
	AssignedBy      uuid.UUID `json:"assignedBy"`
	AutoMatched     bool      `json:"autoMatched"`
}

func (e DiligenceAssigned) EventName() string { return "diligence.assigned" }

// DiligenceStatusChanged is published after any forward diligence transition.
type DiligenceStatusChanged struct {
	BaseEvent
	DiligenceID    uuid.UUID `json:"diligenceId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      uuid.UUID `json:"changedBy"`
}

func (e DiligenceStatusChanged) EventName() string { return "diligence.status_changed" }

// StatusReverted fires for both diligence and payment reversions so the
// notification module can alert the affected parties.
type StatusReverted struct {
	BaseEvent
	DiligenceID    uuid.UUID `json:"diligenceId"`
	EntityType     string    `json:"entityType"`
	PaymentType    string    `json:"paymentType,omitempty"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	RevertedBy     uuid.UUID `json:"revertedBy"`
	Reason         string    `json:"reason"`
}

func (e StatusReverted) EventName() string { return "status.reverted" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// ClientPaymentPaid is published when the client leg of a payment reaches paid.
type ClientPaymentPaid struct {
	BaseEvent
	DiligenceID uuid.UUID `json:"diligenceId"`
	PaymentID   uuid.UUID `json:"paymentId"`
	MarkedBy    uuid.UUID `json:"markedBy"`
}

func (e ClientPaymentPaid) EventName() string { return "payment.client_paid" }

// CorrespondentPaymentPaid is published when the correspondent payout is
// confirmed. It can only follow a paid client leg.
type CorrespondentPaymentPaid struct {
	BaseEvent
	DiligenceID     uuid.UUID `json:"diligenceId"`
	PaymentID       uuid.UUID `json:"paymentId"`
	CorrespondentID uuid.UUID `json:"correspondentId"`
	MarkedBy        uuid.UUID `json:"markedBy"`
}

func (e CorrespondentPaymentPaid) EventName() string { return "payment.correspondent_paid" }

// ProofSubmitted is published when a client uploads a payment proof image.
type ProofSubmitted struct {
	BaseEvent
	DiligenceID uuid.UUID `json:"diligenceId"`
	ProofID     uuid.UUID `json:"proofId"`
	SubmittedBy uuid.UUID `json:"submittedBy"`
}

func (e ProofSubmitted) EventName() string { return "payment.proof_submitted" }

// ProofVerified is published when an admin approves or rejects a proof.
type ProofVerified struct {
	BaseEvent
	DiligenceID uuid.UUID `json:"diligenceId"`
	ProofID     uuid.UUID `json:"proofId"`
	Approved    bool      `json:"approved"`
	VerifiedBy  uuid.UUID `json:"verifiedBy"`
}

func (e ProofVerified) EventName() string { return "payment.proof_verified" }
