package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/internal/statusflow/repository"
)

var errInvalidEntry = errors.New("invalid ledger entry")

// fakeRepo is an in-memory Repository and Store. InTx snapshots the state so
// a failing closure rolls back like a real transaction.
type fakeRepo struct {
	diligences map[uuid.UUID]*domain.DiligenceRow
	payments   map[uuid.UUID]*domain.PaymentRow
	entries    []domain.LedgerEntry
	seq        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		diligences: make(map[uuid.UUID]*domain.DiligenceRow),
		payments:   make(map[uuid.UUID]*domain.PaymentRow),
	}
}

var (
	_ repository.Repository = (*fakeRepo)(nil)
	_ repository.Store      = (*fakeRepo)(nil)
)

func (f *fakeRepo) snapshot() *fakeRepo {
	c := newFakeRepo()
	for id, d := range f.diligences {
		cp := *d
		c.diligences[id] = &cp
	}
	for id, p := range f.payments {
		cp := *p
		c.payments[id] = &cp
	}
	c.entries = append([]domain.LedgerEntry(nil), f.entries...)
	c.seq = f.seq
	return c
}

func (f *fakeRepo) InTx(_ context.Context, fn func(repository.Store) error) error {
	saved := f.snapshot()
	if err := fn(f); err != nil {
		*f = *saved
		return err
	}
	return nil
}

func (f *fakeRepo) GetDiligence(_ context.Context, id uuid.UUID) (*domain.DiligenceRow, error) {
	d, ok := f.diligences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) GetDiligenceForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiligenceRow, error) {
	return f.GetDiligence(ctx, id)
}

func (f *fakeRepo) UpdateDiligenceStatus(_ context.Context, id uuid.UUID, status domain.Status, correspondentID *uuid.UUID) error {
	d, ok := f.diligences[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	d.CorrespondentID = correspondentID
	if correspondentID == nil {
		d.CorrespondentUserID = nil
	}
	return nil
}

func (f *fakeRepo) GetPayment(_ context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error) {
	p, ok := f.payments[diligenceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*domain.PaymentRow, error) {
	return f.GetPayment(ctx, diligenceID)
}

func (f *fakeRepo) updatePayment(paymentID uuid.UUID, fn func(*domain.PaymentRow)) error {
	for _, p := range f.payments {
		if p.ID == paymentID {
			fn(p)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepo) UpdateClientPaymentStatus(_ context.Context, paymentID uuid.UUID, status domain.Status) error {
	return f.updatePayment(paymentID, func(p *domain.PaymentRow) { p.ClientStatus = status })
}

func (f *fakeRepo) UpdateCorrespondentPaymentStatus(_ context.Context, paymentID uuid.UUID, status domain.Status) error {
	return f.updatePayment(paymentID, func(p *domain.PaymentRow) { p.CorrespondentStatus = status })
}

func (f *fakeRepo) AppendLedger(_ context.Context, entry *domain.LedgerEntry) error {
	if entry.Reason == "" || entry.DiligenceID == uuid.Nil || !entry.EntityType.Valid() {
		return errInvalidEntry
	}
	f.seq++
	entry.ID = uuid.New()
	entry.CreatedAt = time.Unix(int64(f.seq), 0)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) matching(diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind) []domain.LedgerEntry {
	var out []domain.LedgerEntry
	for _, e := range f.entries {
		if e.DiligenceID != diligenceID || e.EntityType != entityType {
			continue
		}
		if entityType == domain.EntityPayment && e.PaymentType != paymentType {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeRepo) LatestBefore(_ context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind, offset int) (*domain.LedgerEntry, error) {
	m := f.matching(diligenceID, entityType, paymentType)
	idx := len(m) - 1 - offset
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	e := m[idx]
	return &e, nil
}

func (f *fakeRepo) CountEntries(_ context.Context, diligenceID uuid.UUID, entityType domain.EntityKind, paymentType domain.PaymentKind) (int, error) {
	return len(f.matching(diligenceID, entityType, paymentType)), nil
}

func (f *fakeRepo) History(_ context.Context, diligenceID uuid.UUID) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].DiligenceID == diligenceID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

// seedLedger appends one diligence entry per status in order, mimicking the
// trail a diligence accumulates as it moves forward.
func (f *fakeRepo) seedLedger(diligenceID, userID uuid.UUID, statuses ...domain.Status) {
	prev := domain.Status("")
	for _, s := range statuses {
		_ = f.AppendLedger(context.Background(), &domain.LedgerEntry{
			DiligenceID:    diligenceID,
			EntityType:     domain.EntityDiligence,
			PreviousStatus: prev,
			NewStatus:      s,
			UserID:         userID,
			Reason:         "seed",
		})
		prev = s
	}
}

// seedPaymentLedger appends one leg entry per status in order, starting with
// the opening entry written at payment creation.
func (f *fakeRepo) seedPaymentLedger(diligenceID uuid.UUID, paymentID uuid.UUID, userID uuid.UUID, kind domain.PaymentKind, statuses ...domain.Status) {
	prev := domain.Status("")
	for _, s := range statuses {
		_ = f.AppendLedger(context.Background(), &domain.LedgerEntry{
			DiligenceID:    diligenceID,
			PaymentID:      &paymentID,
			EntityType:     domain.EntityPayment,
			PaymentType:    kind,
			PreviousStatus: prev,
			NewStatus:      s,
			UserID:         userID,
			Reason:         "seed",
		})
		prev = s
	}
}

// fakeBus records published events.
type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

var _ events.Bus = (*fakeBus)(nil)

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

func (b *fakeBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}
