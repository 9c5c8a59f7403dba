package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jurisconnect_backend/internal/statusflow/domain"
)

// recordingQuerier captures the last statement and arguments instead of
// touching a database.
type recordingQuerier struct {
	sql  string
	args []any
}

func (r *recordingQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (r *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (r *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	r.sql = sql
	r.args = args
	return stubRow{}
}

type stubRow struct{}

func (stubRow) Scan(dest ...any) error {
	for _, d := range dest {
		switch v := d.(type) {
		case *uuid.UUID:
			*v = uuid.New()
		case *time.Time:
			*v = time.Now()
		}
	}
	return nil
}

func TestAppendLedgerBindsPaymentTypeOnlyForPaymentEntries(t *testing.T) {
	q := &recordingQuerier{}
	r := queries{q: q}

	err := r.AppendLedger(context.Background(), &domain.LedgerEntry{
		DiligenceID:    uuid.New(),
		EntityType:     domain.EntityPayment,
		PaymentType:    domain.PaymentClient,
		PreviousStatus: domain.StatusPending,
		NewStatus:      domain.StatusPendingVerification,
		UserID:         uuid.New(),
		Reason:         "payment proof submitted",
	})
	if err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}
	pt, ok := q.args[3].(*string)
	if !ok || pt == nil || *pt != string(domain.PaymentClient) {
		t.Errorf("payment_type arg = %v, want client", q.args[3])
	}

	err = r.AppendLedger(context.Background(), &domain.LedgerEntry{
		DiligenceID:    uuid.New(),
		EntityType:     domain.EntityDiligence,
		PreviousStatus: domain.StatusPending,
		NewStatus:      domain.StatusAssigned,
		UserID:         uuid.New(),
		Reason:         "correspondent assigned",
	})
	if err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}
	if pt, _ := q.args[3].(*string); pt != nil {
		t.Errorf("payment_type arg = %q, want NULL for a diligence entry", *pt)
	}
}
