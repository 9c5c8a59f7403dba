package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one append-only record in the status history. Entries are
// never updated or deleted; corrections happen by appending a reversion
// entry with its own reason.
type LedgerEntry struct {
	ID             uuid.UUID   `json:"id"`
	DiligenceID    uuid.UUID   `json:"diligenceId"`
	PaymentID      *uuid.UUID  `json:"paymentId,omitempty"`
	EntityType     EntityKind  `json:"entityType"`
	PaymentType    PaymentKind `json:"paymentType,omitempty"`
	PreviousStatus Status      `json:"previousStatus"`
	NewStatus      Status      `json:"newStatus"`
	UserID         uuid.UUID   `json:"userId"`
	Reason         string      `json:"reason"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// DiligenceRow is the status-bearing slice of a diligence that the workflow
// locks and mutates inside a transaction. The diligences module owns the
// full entity. CorrespondentID is the correspondent profile id;
// CorrespondentUserID is the account behind it, which authorization checks
// compare against the authenticated caller.
type DiligenceRow struct {
	ID                  uuid.UUID
	ClientID            uuid.UUID
	CorrespondentID     *uuid.UUID
	CorrespondentUserID *uuid.UUID
	Status              Status
}

// PaymentRow carries the two independent payment legs of a diligence.
type PaymentRow struct {
	ID                  uuid.UUID
	DiligenceID         uuid.UUID
	ClientStatus        Status
	CorrespondentStatus Status
}
