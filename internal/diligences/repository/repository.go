// Package repository persists diligences. Creation writes the diligence,
// its payment record and the opening status_history entries in one
// transaction, so every diligence and both payment legs are born with a
// consistent audit trail.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/statusflow/domain"
)

var ErrNotFound = errors.New("not found")

// Diligence is the full diligence entity. CorrespondentID references the
// correspondent profile; CorrespondentUserID is the account behind it,
// resolved on load so ownership checks can compare against the caller.
type Diligence struct {
	ID                  uuid.UUID
	Title               string
	Description         string
	Priority            string
	Value               decimal.Decimal
	Deadline            time.Time
	City                string
	State               string
	ClientID            uuid.UUID
	CorrespondentID     *uuid.UUID
	CorrespondentUserID *uuid.UUID
	Status              domain.Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// CreateParams carries a new diligence. CorrespondentAmount is the payout
// leg recorded on the payment row.
type CreateParams struct {
	Title               string
	Description         string
	Priority            string
	Value               decimal.Decimal
	CorrespondentAmount decimal.Decimal
	Deadline            time.Time
	City                string
	State               string
	ClientID            uuid.UUID
}

// ListFilters narrows and pages the listing. CorrespondentUserID scopes to
// the diligences assigned to that user's correspondent profile.
type ListFilters struct {
	Status              domain.Status
	State               string
	City                string
	ClientID            *uuid.UUID
	CorrespondentUserID *uuid.UUID
	Limit               int
	Offset              int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fromDiligences = `
	FROM diligences d
	LEFT JOIN correspondent_profiles cp ON cp.id = d.correspondent_id`

const selectDiligence = `
	SELECT d.id, d.title, d.description, d.priority, d.value, d.deadline, d.city,
	       d.state, d.client_id, d.correspondent_id, cp.user_id, d.status,
	       d.created_at, d.updated_at` + fromDiligences

// Create inserts the diligence, its payment record and the opening history
// entry atomically.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*Diligence, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var d Diligence
	err = tx.QueryRow(ctx, `
		INSERT INTO diligences (title, description, priority, value, deadline,
			city, state, client_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, title, description, priority, value, deadline, city, state,
		          client_id, correspondent_id, status, created_at, updated_at
	`, p.Title, p.Description, p.Priority, p.Value, p.Deadline,
		p.City, p.State, p.ClientID, string(domain.StatusPending),
	).Scan(
		&d.ID, &d.Title, &d.Description, &d.Priority, &d.Value, &d.Deadline,
		&d.City, &d.State, &d.ClientID, &d.CorrespondentID, &d.Status,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var paymentID uuid.UUID
	if err = tx.QueryRow(ctx, `
		INSERT INTO payments (diligence_id, client_status, correspondent_status,
			client_amount, correspondent_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.ID, string(domain.StatusPending), string(domain.StatusPending),
		p.Value, p.CorrespondentAmount).Scan(&paymentID); err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO status_history (diligence_id, entity_type, previous_status,
			new_status, user_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, string(domain.EntityDiligence), "", string(domain.StatusPending),
		p.ClientID, "diligence created"); err != nil {
		return nil, err
	}

	// Each payment leg opens its own trail so a later reversion can resolve
	// the status before the first real transition.
	for _, leg := range []domain.PaymentKind{domain.PaymentClient, domain.PaymentCorrespondent} {
		if _, err = tx.Exec(ctx, `
			INSERT INTO status_history (diligence_id, payment_id, entity_type,
				payment_type, previous_status, new_status, user_id, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, d.ID, paymentID, string(domain.EntityPayment), string(leg), "",
			string(domain.StatusPending), p.ClientID, "payment record created"); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Diligence, error) {
	return scanDiligence(r.pool.QueryRow(ctx, selectDiligence+` WHERE d.id = $1`, id))
}

func (r *Repository) List(ctx context.Context, f ListFilters) ([]Diligence, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += ` AND d.status = $` + strconv.Itoa(len(args))
	}
	if f.State != "" {
		args = append(args, f.State)
		where += ` AND d.state = $` + strconv.Itoa(len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		where += ` AND d.city ILIKE $` + strconv.Itoa(len(args))
	}
	if f.ClientID != nil {
		args = append(args, *f.ClientID)
		where += ` AND d.client_id = $` + strconv.Itoa(len(args))
	}
	if f.CorrespondentUserID != nil {
		args = append(args, *f.CorrespondentUserID)
		where += ` AND cp.user_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+fromDiligences+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectDiligence + where + ` ORDER BY d.created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Diligence
	for rows.Next() {
		d, err := scanDiligence(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func scanDiligence(row pgx.Row) (*Diligence, error) {
	var d Diligence
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Priority, &d.Value, &d.Deadline,
		&d.City, &d.State, &d.ClientID, &d.CorrespondentID, &d.CorrespondentUserID,
		&d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
