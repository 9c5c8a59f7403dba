// Package repository persists payment records and payment proofs. Status
// mutations always travel together with their status_history entry inside
// one transaction.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/statusflow/domain"
)

var ErrNotFound = errors.New("not found")

// Payment is the two-leg payment record owned by a diligence.
type Payment struct {
	ID                  uuid.UUID
	DiligenceID         uuid.UUID
	ClientStatus        domain.Status
	CorrespondentStatus domain.Status
	ClientAmount        decimal.Decimal
	CorrespondentAmount decimal.Decimal
	PixKey              *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Proof is one payment proof submission. Verification mutates it exactly
// once; a resubmission creates a new row.
type Proof struct {
	ID              uuid.UUID
	DiligenceID     uuid.UUID
	PaymentID       uuid.UUID
	PixKey          string
	Amount          decimal.Decimal
	ImageKey        string
	Status          string
	SubmittedBy     uuid.UUID
	VerifiedBy      *uuid.UUID
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Proof statuses.
const (
	ProofPendingVerification = "pending_verification"
	ProofVerified            = "verified"
	ProofRejected            = "rejected"
)

// DiligenceParty carries the ownership and workflow fields policy checks
// need. CorrespondentID is the correspondent profile id; CorrespondentUserID
// is the account behind it, compared against the authenticated caller.
type DiligenceParty struct {
	ID                  uuid.UUID
	ClientID            uuid.UUID
	CorrespondentID     *uuid.UUID
	CorrespondentUserID *uuid.UUID
	Status              domain.Status
}

// Store is the transactional surface of the payments repository.
type Store interface {
	GetDiligenceParty(ctx context.Context, diligenceID uuid.UUID) (*DiligenceParty, error)
	GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*Payment, error)
	UpdateClientStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error
	UpdateCorrespondentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error
	UpdatePixKey(ctx context.Context, paymentID uuid.UUID, pixKey string) error

	CreateProof(ctx context.Context, proof *Proof) error
	GetProofForUpdate(ctx context.Context, proofID uuid.UUID) (*Proof, error)
	HasPendingProof(ctx context.Context, paymentID uuid.UUID) (bool, error)
	ApplyVerification(ctx context.Context, proofID uuid.UUID, status string, verifiedBy uuid.UUID, rejectionReason *string) error

	AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error
}

type Repository interface {
	InTx(ctx context.Context, fn func(Store) error) error
	GetDiligenceParty(ctx context.Context, diligenceID uuid.UUID) (*DiligenceParty, error)
	GetPayment(ctx context.Context, diligenceID uuid.UUID) (*Payment, error)
	GetProof(ctx context.Context, proofID uuid.UUID) (*Proof, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgxRepository struct {
	queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{queries: queries{q: pool}, pool: pool}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{queries: queries{q: tx}}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	queries
}

var _ Store = (*txStore)(nil)

func (s *txStore) GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*Payment, error) {
	return scanPayment(s.q.QueryRow(ctx, selectPayment+` WHERE diligence_id = $1 FOR UPDATE`, diligenceID))
}

func (s *txStore) GetProofForUpdate(ctx context.Context, proofID uuid.UUID) (*Proof, error) {
	return scanProof(s.q.QueryRow(ctx, selectProof+` WHERE id = $1 FOR UPDATE`, proofID))
}

type queries struct {
	q querier
}

const selectPayment = `
	SELECT id, diligence_id, client_status, correspondent_status,
	       client_amount, correspondent_amount, pix_key, created_at, updated_at
	FROM payments`

const selectProof = `
	SELECT id, diligence_id, payment_id, pix_key, amount, image_key, status,
	       submitted_by, verified_by, rejection_reason, created_at, updated_at
	FROM payment_proofs`

func (r queries) GetPayment(ctx context.Context, diligenceID uuid.UUID) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, selectPayment+` WHERE diligence_id = $1`, diligenceID))
}

func (r queries) GetProof(ctx context.Context, proofID uuid.UUID) (*Proof, error) {
	return scanProof(r.q.QueryRow(ctx, selectProof+` WHERE id = $1`, proofID))
}

func (r queries) GetDiligenceParty(ctx context.Context, diligenceID uuid.UUID) (*DiligenceParty, error) {
	var d DiligenceParty
	err := r.q.QueryRow(ctx, `
		SELECT d.id, d.client_id, d.correspondent_id, cp.user_id, d.status
		FROM diligences d
		LEFT JOIN correspondent_profiles cp ON cp.id = d.correspondent_id
		WHERE d.id = $1
	`, diligenceID).Scan(&d.ID, &d.ClientID, &d.CorrespondentID, &d.CorrespondentUserID, &d.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r queries) UpdateClientStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error {
	return r.updateColumn(ctx, paymentID, "client_status", string(status))
}

func (r queries) UpdateCorrespondentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error {
	return r.updateColumn(ctx, paymentID, "correspondent_status", string(status))
}

func (r queries) UpdatePixKey(ctx context.Context, paymentID uuid.UUID, pixKey string) error {
	return r.updateColumn(ctx, paymentID, "pix_key", pixKey)
}

func (r queries) updateColumn(ctx context.Context, paymentID uuid.UUID, column, value string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE payments SET `+column+` = $2, updated_at = NOW() WHERE id = $1
	`, paymentID, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r queries) CreateProof(ctx context.Context, proof *Proof) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO payment_proofs (diligence_id, payment_id, pix_key, amount,
			image_key, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, proof.DiligenceID, proof.PaymentID, proof.PixKey, proof.Amount,
		proof.ImageKey, proof.Status, proof.SubmittedBy,
	).Scan(&proof.ID, &proof.CreatedAt, &proof.UpdatedAt)
}

func (r queries) HasPendingProof(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_proofs WHERE payment_id = $1 AND status = $2
		)
	`, paymentID, ProofPendingVerification).Scan(&exists)
	return exists, err
}

func (r queries) ApplyVerification(ctx context.Context, proofID uuid.UUID, status string, verifiedBy uuid.UUID, rejectionReason *string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_proofs
		SET status = $2, verified_by = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, proofID, status, verifiedBy, rejectionReason, ProofPendingVerification)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r queries) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	if entry.Reason == "" {
		return errors.New("ledger entry requires a reason")
	}
	var paymentType *string
	if entry.EntityType == domain.EntityPayment {
		pt := string(entry.PaymentType)
		paymentType = &pt
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO status_history (diligence_id, payment_id, entity_type, payment_type,
			previous_status, new_status, user_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, entry.DiligenceID, entry.PaymentID, string(entry.EntityType), paymentType,
		string(entry.PreviousStatus), string(entry.NewStatus), entry.UserID, entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.DiligenceID, &p.ClientStatus, &p.CorrespondentStatus,
		&p.ClientAmount, &p.CorrespondentAmount, &p.PixKey, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProof(row pgx.Row) (*Proof, error) {
	var p Proof
	err := row.Scan(
		&p.ID, &p.DiligenceID, &p.PaymentID, &p.PixKey, &p.Amount, &p.ImageKey,
		&p.Status, &p.SubmittedBy, &p.VerifiedBy, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
