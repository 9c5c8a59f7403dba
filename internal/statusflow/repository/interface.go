package repository

import (
	"context"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/statusflow/domain"
)

// Store is the set of operations available inside one workflow transaction.
// Services compose locked reads, status writes and ledger appends through a
// single InTx closure so every transition commits atomically with its
// history entry.
type Store interface {
	GetDiligenceForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiligenceRow, error)
	UpdateDiligenceStatus(ctx context.Context, id uuid.UUID, status domain.Status, correspondentID *uuid.UUID) error

	GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error)
	UpdateClientPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error
	UpdateCorrespondentPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error

	AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error
	LatestBefore(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind, offset int) (*domain.LedgerEntry, error)
	CountEntries(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind) (int, error)
}

// Repository exposes transactional access plus the read-only queries the
// handlers need outside a transaction.
type Repository interface {
	InTx(ctx context.Context, fn func(Store) error) error

	GetDiligence(ctx context.Context, id uuid.UUID) (*domain.DiligenceRow, error)
	GetPayment(ctx context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error)

	History(ctx context.Context, diligenceID uuid.UUID) ([]domain.LedgerEntry, error)
	LatestBefore(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind, offset int) (*domain.LedgerEntry, error)
	CountEntries(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind) (int, error)
}
