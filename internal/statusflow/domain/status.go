// Package domain provides the core status workflow rules: entity kinds,
// status enumerations, and the legal transition graph.
package domain

// EntityKind identifies which lifecycle an entity follows.
type EntityKind string

const (
	// EntityDiligence is a unit of legal work.
	EntityDiligence EntityKind = "diligence"
	// EntityPayment is the per-diligence payment record.
	EntityPayment EntityKind = "payment"
)

// Valid reports whether the kind is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	return k == EntityDiligence || k == EntityPayment
}

// PaymentKind identifies which party's payment sub-record is addressed.
type PaymentKind string

const (
	// PaymentClient is the law firm's payment to the platform.
	PaymentClient PaymentKind = "client"
	// PaymentCorrespondent is the platform's payout to the correspondent.
	PaymentCorrespondent PaymentKind = "correspondent"
)

// Valid reports whether the kind is one of the known payment kinds.
func (k PaymentKind) Valid() bool {
	return k == PaymentClient || k == PaymentCorrespondent
}

// Status is a lifecycle state, shared between diligences and payments.
type Status string

// Diligence statuses.
const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDisputed   Status = "disputed"
)

// Payment statuses. StatusPending is shared with diligences.
const (
	StatusPendingVerification Status = "pending_verification"
	StatusPaid                Status = "paid"
)

// DiligenceStatuses enumerates every legal diligence status.
var DiligenceStatuses = []Status{
	StatusPending, StatusAssigned, StatusInProgress,
	StatusCompleted, StatusCancelled, StatusDisputed,
}

// ClientPaymentStatuses enumerates every legal client payment status.
var ClientPaymentStatuses = []Status{
	StatusPending, StatusPendingVerification, StatusPaid,
}

// CorrespondentPaymentStatuses enumerates every legal correspondent payment status.
var CorrespondentPaymentStatuses = []Status{StatusPending, StatusPaid}

// ValidDiligence reports whether the status belongs to the diligence
// lifecycle.
func (s Status) ValidDiligence() bool {
	for _, d := range DiligenceStatuses {
		if s == d {
			return true
		}
	}
	return false
}

// RequiresCorrespondent reports whether a diligence in this status must have
// a correspondent reference. Cancelled and disputed diligences may retain a
// stale reference for audit purposes; pending must not have one.
func RequiresCorrespondent(s Status) bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusCompleted
}
