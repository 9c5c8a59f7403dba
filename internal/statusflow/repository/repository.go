package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/statusflow/domain"
)

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same query
// methods serve locked and unlocked reads.
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

// txStore runs every Store operation on one open transaction.
type txStore struct {
	queries
}

var _ Store = (*txStore)(nil)

func (s *txStore) GetDiligenceForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiligenceRow, error) {
	return scanDiligence(s.q.QueryRow(ctx, selectDiligenceRow+`
		WHERE d.id = $1
		FOR UPDATE OF d
	`, id))
}

func (s *txStore) GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error) {
	return scanPayment(s.q.QueryRow(ctx, `
		SELECT id, diligence_id, client_status, correspondent_status
		FROM payments
		WHERE diligence_id = $1
		FOR UPDATE
	`, diligenceID))
}

// queries holds everything that runs the same way inside or outside a
// transaction.
type queries struct {
	q querier
}

// selectDiligenceRow resolves the correspondent profile to its user account
// so ownership checks can compare against the authenticated caller.
const selectDiligenceRow = `
	SELECT d.id, d.client_id, d.correspondent_id, cp.user_id, d.status
	FROM diligences d
	LEFT JOIN correspondent_profiles cp ON cp.id = d.correspondent_id`

func (r queries) GetDiligence(ctx context.Context, id uuid.UUID) (*domain.DiligenceRow, error) {
	return scanDiligence(r.q.QueryRow(ctx, selectDiligenceRow+`
		WHERE d.id = $1
	`, id))
}

func (r queries) GetPayment(ctx context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error) {
	return scanPayment(r.q.QueryRow(ctx, `
		SELECT id, diligence_id, client_status, correspondent_status
		FROM payments
		WHERE diligence_id = $1
	`, diligenceID))
}

func (r queries) UpdateDiligenceStatus(ctx context.Context, id uuid.UUID, status domain.Status, correspondentID *uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE diligences
		SET status = $2, correspondent_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(status), correspondentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r queries) UpdateClientPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error {
	return r.updatePaymentColumn(ctx, paymentID, "client_status", status)
}

func (r queries) UpdateCorrespondentPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.Status) error {
	return r.updatePaymentColumn(ctx, paymentID, "correspondent_status", status)
}

func (r queries) updatePaymentColumn(ctx context.Context, paymentID uuid.UUID, column string, status domain.Status) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE payments SET `+column+` = $2, updated_at = NOW() WHERE id = $1
	`, paymentID, string(status))
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
	if entry.DiligenceID == uuid.Nil {
		return errors.New("ledger entry requires a diligence id")
	}
	if !entry.EntityType.Valid() {
		return fmt.Errorf("ledger entry has invalid entity type %q", entry.EntityType)
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

func (r queries) History(ctx context.Context, diligenceID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, diligence_id, payment_id, entity_type, payment_type,
		       previous_status, new_status, user_id, reason, created_at
		FROM status_history
		WHERE diligence_id = $1
		ORDER BY created_at DESC, id DESC
	`, diligenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// LatestBefore walks the history for one entity backwards: offset 0 is the
// most recent entry, offset 1 the one before it.
func (r queries) LatestBefore(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind, offset int) (*domain.LedgerEntry, error) {
	query := `
		SELECT id, diligence_id, payment_id, entity_type, payment_type,
		       previous_status, new_status, user_id, reason, created_at
		FROM status_history
		WHERE diligence_id = $1 AND entity_type = $2
	`
	args := []any{diligenceID, string(entityType)}
	if entityType == domain.EntityPayment {
		query += ` AND payment_type = $3`
		args = append(args, string(paymentType))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC OFFSET %d LIMIT 1`, offset)

	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r queries) CountEntries(ctx context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind) (int, error) {
	query := `SELECT COUNT(*) FROM status_history WHERE diligence_id = $1 AND entity_type = $2`
	args := []any{diligenceID, string(entityType)}
	if entityType == domain.EntityPayment {
		query += ` AND payment_type = $3`
		args = append(args, string(paymentType))
	}
	var n int
	err := r.q.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var paymentType *string
	if err := row.Scan(
		&e.ID, &e.DiligenceID, &e.PaymentID, &e.EntityType, &paymentType,
		&e.PreviousStatus, &e.NewStatus, &e.UserID, &e.Reason, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if paymentType != nil {
		e.PaymentType = domain.PaymentKind(*paymentType)
	}
	return &e, nil
}

func scanDiligence(row pgx.Row) (*domain.DiligenceRow, error) {
	var d domain.DiligenceRow
	err := row.Scan(&d.ID, &d.ClientID, &d.CorrespondentID, &d.CorrespondentUserID, &d.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanPayment(row pgx.Row) (*domain.PaymentRow, error) {
	var p domain.PaymentRow
	err := row.Scan(&p.ID, &p.DiligenceID, &p.ClientStatus, &p.CorrespondentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
