package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/payments/repository"
	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
	"jurisconnect_backend/platform/validator"
)

// fakeRepo is an in-memory payments repository. InTx snapshots state so a
// failing closure rolls back.
type fakeRepo struct {
	parties  map[uuid.UUID]*repository.DiligenceParty
	payments map[uuid.UUID]*repository.Payment
	proofs   map[uuid.UUID]*repository.Proof
	entries  []domain.LedgerEntry
	seq      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		parties:  make(map[uuid.UUID]*repository.DiligenceParty),
		payments: make(map[uuid.UUID]*repository.Payment),
		proofs:   make(map[uuid.UUID]*repository.Proof),
	}
}

var (
	_ repository.Repository = (*fakeRepo)(nil)
	_ repository.Store      = (*fakeRepo)(nil)
)

func (f *fakeRepo) snapshot() *fakeRepo {
	c := newFakeRepo()
	for id, p := range f.parties {
		cp := *p
		c.parties[id] = &cp
	}
	for id, p := range f.payments {
		cp := *p
		c.payments[id] = &cp
	}
	for id, p := range f.proofs {
		cp := *p
		c.proofs[id] = &cp
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

func (f *fakeRepo) GetDiligenceParty(_ context.Context, diligenceID uuid.UUID) (*repository.DiligenceParty, error) {
	p, ok := f.parties[diligenceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetPayment(_ context.Context, diligenceID uuid.UUID) (*repository.Payment, error) {
	p, ok := f.payments[diligenceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetPaymentForUpdate(ctx context.Context, diligenceID uuid.UUID) (*repository.Payment, error) {
	return f.GetPayment(ctx, diligenceID)
}

func (f *fakeRepo) GetProof(_ context.Context, proofID uuid.UUID) (*repository.Proof, error) {
	p, ok := f.proofs[proofID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetProofForUpdate(ctx context.Context, proofID uuid.UUID) (*repository.Proof, error) {
	return f.GetProof(ctx, proofID)
}

func (f *fakeRepo) byPaymentID(paymentID uuid.UUID) *repository.Payment {
	for _, p := range f.payments {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}

func (f *fakeRepo) UpdateClientStatus(_ context.Context, paymentID uuid.UUID, status domain.Status) error {
	p := f.byPaymentID(paymentID)
	if p == nil {
		return repository.ErrNotFound
	}
	p.ClientStatus = status
	return nil
}

func (f *fakeRepo) UpdateCorrespondentStatus(_ context.Context, paymentID uuid.UUID, status domain.Status) error {
	p := f.byPaymentID(paymentID)
	if p == nil {
		return repository.ErrNotFound
	}
	p.CorrespondentStatus = status
	return nil
}

func (f *fakeRepo) UpdatePixKey(_ context.Context, paymentID uuid.UUID, pixKey string) error {
	p := f.byPaymentID(paymentID)
	if p == nil {
		return repository.ErrNotFound
	}
	p.PixKey = &pixKey
	return nil
}

func (f *fakeRepo) CreateProof(_ context.Context, proof *repository.Proof) error {
	f.seq++
	proof.ID = uuid.New()
	proof.CreatedAt = time.Unix(int64(f.seq), 0)
	proof.UpdatedAt = proof.CreatedAt
	cp := *proof
	f.proofs[proof.ID] = &cp
	return nil
}

func (f *fakeRepo) HasPendingProof(_ context.Context, paymentID uuid.UUID) (bool, error) {
	for _, p := range f.proofs {
		if p.PaymentID == paymentID && p.Status == repository.ProofPendingVerification {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ApplyVerification(_ context.Context, proofID uuid.UUID, status string, verifiedBy uuid.UUID, rejectionReason *string) error {
	p, ok := f.proofs[proofID]
	if !ok || p.Status != repository.ProofPendingVerification {
		return repository.ErrNotFound
	}
	p.Status = status
	p.VerifiedBy = &verifiedBy
	p.RejectionReason = rejectionReason
	return nil
}

func (f *fakeRepo) AppendLedger(_ context.Context, entry *domain.LedgerEntry) error {
	f.seq++
	entry.ID = uuid.New()
	entry.CreatedAt = time.Unix(int64(f.seq), 0)
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeStorage struct {
	uploads  int
	presigns int
}

func (s *fakeStorage) UploadProofImage(_ context.Context, diligenceID uuid.UUID, filename, _ string, _ []byte) (string, error) {
	s.uploads++
	return "proofs/" + diligenceID.String() + "/" + filename, nil
}

func (s *fakeStorage) ProofDownloadURL(_ context.Context, key string) (string, time.Time, error) {
	s.presigns++
	return "https://storage.test/" + key, time.Now().Add(15 * time.Minute), nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

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

type fixture struct {
	repo     *fakeRepo
	svc      *Service
	bus      *fakeBus
	storage  *fakeStorage
	dilID    uuid.UUID
	payID    uuid.UUID
	client   uuid.UUID
	corr     uuid.UUID
	corrUser uuid.UUID
	adminID  uuid.UUID
}

func newFixture(clientStatus, correspondentStatus domain.Status) *fixture {
	f := &fixture{
		repo:     newFakeRepo(),
		bus:      &fakeBus{},
		storage:  &fakeStorage{},
		dilID:    uuid.New(),
		payID:    uuid.New(),
		client:   uuid.New(),
		corr:     uuid.New(),
		corrUser: uuid.New(),
		adminID:  uuid.New(),
	}
	corr, corrUser := f.corr, f.corrUser
	f.repo.parties[f.dilID] = &repository.DiligenceParty{
		ID:                  f.dilID,
		ClientID:            f.client,
		CorrespondentID:     &corr,
		CorrespondentUserID: &corrUser,
		Status:              domain.StatusCompleted,
	}
	f.repo.payments[f.dilID] = &repository.Payment{
		ID:                  f.payID,
		DiligenceID:         f.dilID,
		ClientStatus:        clientStatus,
		CorrespondentStatus: correspondentStatus,
		ClientAmount:        decimal.NewFromInt(500),
		CorrespondentAmount: decimal.NewFromInt(350),
	}
	f.svc = New(f.repo, f.storage, validator.New(), f.bus, logger.New("test"))
	return f
}

func TestMarkCorrespondentPaidAfterClientPaid(t *testing.T) {
	f := newFixture(domain.StatusPaid, domain.StatusPending)

	resp, err := f.svc.MarkCorrespondentPaid(context.Background(), f.dilID, f.adminID)
	if err != nil {
		t.Fatalf("MarkCorrespondentPaid: %v", err)
	}
	if resp.CorrespondentStatus != string(domain.StatusPaid) {
		t.Errorf("correspondent status = %s, want paid", resp.CorrespondentStatus)
	}
	if got := f.repo.payments[f.dilID].CorrespondentStatus; got != domain.StatusPaid {
		t.Errorf("stored correspondent status = %s, want paid", got)
	}
	if len(f.repo.entries) != 1 {
		t.Errorf("ledger length = %d, want 1", len(f.repo.entries))
	}
}

func TestMarkCorrespondentPaidRequiresClientPaid(t *testing.T) {
	f := newFixture(domain.StatusPendingVerification, domain.StatusPending)

	_, err := f.svc.MarkCorrespondentPaid(context.Background(), f.dilID, f.adminID)
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
	if got := f.repo.payments[f.dilID].CorrespondentStatus; got != domain.StatusPending {
		t.Errorf("correspondent status mutated to %s on rejected call", got)
	}
	if len(f.repo.entries) != 0 {
		t.Error("rejected call appended a ledger entry")
	}
}

func TestMarkCorrespondentPaidRequiresCompletedDiligence(t *testing.T) {
	f := newFixture(domain.StatusPaid, domain.StatusPending)
	f.repo.parties[f.dilID].Status = domain.StatusInProgress

	_, err := f.svc.MarkCorrespondentPaid(context.Background(), f.dilID, f.adminID)
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
	if got := f.repo.payments[f.dilID].CorrespondentStatus; got != domain.StatusPending {
		t.Errorf("correspondent status mutated to %s on rejected call", got)
	}
}

func TestGetPaymentVisibleToAssignedCorrespondent(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)

	// The diligence stores the correspondent profile id; the account behind
	// that profile is the party, the profile id itself is not a caller.
	if _, err := f.svc.GetPayment(context.Background(), f.dilID, Actor{UserID: f.corrUser}); err != nil {
		t.Fatalf("GetPayment as assigned correspondent: %v", err)
	}
	_, err := f.svc.GetPayment(context.Background(), f.dilID, Actor{UserID: f.corr})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden for profile-id caller", err)
	}
}

func TestMarkClientPaidFromPendingVerification(t *testing.T) {
	f := newFixture(domain.StatusPendingVerification, domain.StatusPending)

	resp, err := f.svc.MarkClientPaid(context.Background(), f.dilID, f.adminID)
	if err != nil {
		t.Fatalf("MarkClientPaid: %v", err)
	}
	if resp.ClientStatus != string(domain.StatusPaid) {
		t.Errorf("client status = %s, want paid", resp.ClientStatus)
	}
}

func TestMarkClientPaidRejectsFromPaid(t *testing.T) {
	f := newFixture(domain.StatusPaid, domain.StatusPending)

	_, err := f.svc.MarkClientPaid(context.Background(), f.dilID, f.adminID)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func submit(f *fixture, actor Actor) (SubmitProofInput, context.Context) {
	return SubmitProofInput{
		DiligenceID: f.dilID,
		PixKey:      "pix@firm.com.br",
		Amount:      decimal.NewFromInt(500),
		Filename:    "receipt.png",
		ContentType: "image/png",
		Image:       []byte{0x89, 'P', 'N', 'G'},
		Actor:       actor,
	}, context.Background()
}

func TestSubmitProofMovesClientToPendingVerification(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.client})

	proof, err := f.svc.SubmitProof(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if proof.Status != repository.ProofPendingVerification {
		t.Errorf("proof status = %s", proof.Status)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPendingVerification {
		t.Errorf("client status = %s, want pending_verification", got)
	}
	if f.storage.uploads != 1 {
		t.Errorf("uploads = %d, want 1", f.storage.uploads)
	}
}

func TestSubmitProofForbiddenForNonClient(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.corr})

	_, err := f.svc.SubmitProof(ctx, in)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestSubmitProofRejectsDuplicatePending(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.client})

	if _, err := f.svc.SubmitProof(ctx, in); err != nil {
		t.Fatalf("first SubmitProof: %v", err)
	}
	_, err := f.svc.SubmitProof(ctx, in)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestVerifyProofApproval(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.client})
	proof, err := f.svc.SubmitProof(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	verified, err := f.svc.VerifyProof(ctx, proof.ID, true, "", f.adminID)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if verified.Status != repository.ProofVerified {
		t.Errorf("proof status = %s, want verified", verified.Status)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPaid {
		t.Errorf("client status = %s, want paid", got)
	}
}

func TestVerifyProofRejection(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.client})
	proof, err := f.svc.SubmitProof(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	rejected, err := f.svc.VerifyProof(ctx, proof.ID, false, "amount does not match", f.adminID)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if rejected.Status != repository.ProofRejected {
		t.Errorf("proof status = %s, want rejected", rejected.Status)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPending {
		t.Errorf("client status = %s, want pending", got)
	}

	// A rejected proof can be resubmitted as a fresh instance.
	resubmitted, err := f.svc.SubmitProof(ctx, in)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.ID == proof.ID {
		t.Error("resubmission reused the rejected proof row")
	}
}

func TestGetProofDetailPresignsImage(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	in, ctx := submit(f, Actor{UserID: f.client})
	proof, err := f.svc.SubmitProof(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	detail, err := f.svc.GetProofDetail(ctx, proof.ID)
	if err != nil {
		t.Fatalf("GetProofDetail: %v", err)
	}
	if detail.ID != proof.ID {
		t.Errorf("proof id = %s, want %s", detail.ID, proof.ID)
	}
	if detail.ImageURL == "" || f.storage.presigns != 1 {
		t.Errorf("image url = %q with %d presigns, want presigned url", detail.ImageURL, f.storage.presigns)
	}
	if detail.ImageExpiresAt.IsZero() {
		t.Error("image url carries no expiry")
	}
}

func TestGetProofDetailUnknownProof(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)

	_, err := f.svc.GetProofDetail(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestVerifyProofRejectionRequiresReason(t *testing.T) {
	f := newFixture(domain.StatusPendingVerification, domain.StatusPending)

	_, err := f.svc.VerifyProof(context.Background(), uuid.New(), false, "", f.adminID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestPaymentOrderingInvariantHolds(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	ctx := context.Background()

	check := func(step string) {
		p := f.repo.payments[f.dilID]
		if p.CorrespondentStatus == domain.StatusPaid && p.ClientStatus != domain.StatusPaid {
			t.Fatalf("after %s: correspondent paid while client is %s", step, p.ClientStatus)
		}
	}

	_, _ = f.svc.MarkCorrespondentPaid(ctx, f.dilID, f.adminID)
	check("premature correspondent payout")

	if _, err := f.svc.MarkClientPaid(ctx, f.dilID, f.adminID); err != nil {
		t.Fatalf("MarkClientPaid: %v", err)
	}
	check("client paid")

	if _, err := f.svc.MarkCorrespondentPaid(ctx, f.dilID, f.adminID); err != nil {
		t.Fatalf("MarkCorrespondentPaid: %v", err)
	}
	check("correspondent paid")
}

func TestPixQR(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)
	key := "pix@firm.com.br"
	f.repo.payments[f.dilID].PixKey = &key

	png, err := f.svc.PixQR(context.Background(), f.dilID, Actor{UserID: f.client})
	if err != nil {
		t.Fatalf("PixQR: %v", err)
	}
	if len(png) == 0 || string(png[1:4]) != "PNG" {
		t.Error("output is not a PNG")
	}
}

func TestPixQRWithoutKey(t *testing.T) {
	f := newFixture(domain.StatusPending, domain.StatusPending)

	_, err := f.svc.PixQR(context.Background(), f.dilID, Actor{UserID: f.client})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}
