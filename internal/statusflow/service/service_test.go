package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
)

func newTestService(repo *fakeRepo) (*Service, *fakeBus) {
	bus := &fakeBus{}
	return New(repo, bus, logger.New("test")), bus
}

type fixture struct {
	repo    *fakeRepo
	svc     *Service
	bus     *fakeBus
	dilID    uuid.UUID
	payID    uuid.UUID
	client   uuid.UUID
	corr     uuid.UUID
	corrUser uuid.UUID
	adminID  uuid.UUID
}

// completedDiligence builds a diligence that walked the full forward path
// pending → assigned → in_progress → completed, with a payment record.
func completedDiligence(t *testing.T, clientStatus domain.Status) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeRepo(),
		dilID:    uuid.New(),
		payID:    uuid.New(),
		client:   uuid.New(),
		corr:     uuid.New(),
		corrUser: uuid.New(),
		adminID:  uuid.New(),
	}
	corr, corrUser := f.corr, f.corrUser
	f.repo.diligences[f.dilID] = &domain.DiligenceRow{
		ID:                  f.dilID,
		ClientID:            f.client,
		CorrespondentID:     &corr,
		CorrespondentUserID: &corrUser,
		Status:              domain.StatusCompleted,
	}
	f.repo.payments[f.dilID] = &domain.PaymentRow{
		ID:                  f.payID,
		DiligenceID:         f.dilID,
		ClientStatus:        clientStatus,
		CorrespondentStatus: domain.StatusPending,
	}
	f.repo.seedLedger(f.dilID, f.adminID,
		domain.StatusPending, domain.StatusAssigned, domain.StatusInProgress, domain.StatusCompleted)
	f.svc, f.bus = newTestService(f.repo)
	return f
}

func admin(f *fixture) Actor  { return Actor{UserID: f.adminID, IsAdmin: true} }
func client(f *fixture) Actor { return Actor{UserID: f.client} }

func TestRevertCompletedDiligenceToInProgress(t *testing.T) {
	f := completedDiligence(t, domain.StatusPendingVerification)
	ctx := context.Background()

	resp, err := f.svc.Revert(ctx, RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "wrong report",
		Actor:    admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if resp.Status != string(domain.StatusInProgress) {
		t.Errorf("status = %s, want in_progress", resp.Status)
	}
	if resp.PreviousStatus != string(domain.StatusCompleted) {
		t.Errorf("previousStatus = %s, want completed", resp.PreviousStatus)
	}

	dil := f.repo.diligences[f.dilID]
	if dil.Status != domain.StatusInProgress {
		t.Errorf("stored status = %s, want in_progress", dil.Status)
	}
	if dil.CorrespondentID == nil {
		t.Error("correspondent cleared on revert to in_progress")
	}

	// The diligence trail grew by one and the client payment reset added
	// its own payment entry.
	dilCount, _ := f.repo.CountEntries(ctx, f.dilID, domain.EntityDiligence, "")
	if dilCount != 5 {
		t.Errorf("diligence ledger length = %d, want 5", dilCount)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPending {
		t.Errorf("client payment = %s, want pending", got)
	}
	payCount, _ := f.repo.CountEntries(ctx, f.dilID, domain.EntityPayment, domain.PaymentClient)
	if payCount != 1 {
		t.Errorf("payment ledger length = %d, want 1", payCount)
	}
}

func TestRevertFromCompletedLeavesPaidPaymentAlone(t *testing.T) {
	f := completedDiligence(t, domain.StatusPaid)

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "hearing rescheduled",
		Actor:    admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPaid {
		t.Errorf("client payment = %s, want paid untouched", got)
	}
}

func TestRevertRequiresReason(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)

	before, _ := f.repo.CountEntries(context.Background(), f.dilID, domain.EntityDiligence, "")
	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "",
		Actor:    admin(f),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	after, _ := f.repo.CountEntries(context.Background(), f.dilID, domain.EntityDiligence, "")
	if before != after {
		t.Error("rejected revert changed the ledger")
	}
}

func TestRevertDiligenceForbiddenForNonAdmin(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "trying anyway",
		Actor:    client(f),
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if f.repo.diligences[f.dilID].Status != domain.StatusCompleted {
		t.Error("status changed by forbidden revert")
	}
}

func TestCanRevertDeniedForForeignClient(t *testing.T) {
	f := completedDiligence(t, domain.StatusPendingVerification)
	f.repo.seedPaymentLedger(f.dilID, f.payID, f.client, domain.PaymentClient,
		domain.StatusPending, domain.StatusPendingVerification)

	otherClient := Actor{UserID: uuid.New()}
	resp, err := f.svc.CanRevert(context.Background(), f.dilID, domain.EntityPayment, domain.PaymentClient, otherClient)
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if resp.Possible {
		t.Error("foreign client may revert another client's payment")
	}
}

func TestCanRevertOwnUnverifiedClientPayment(t *testing.T) {
	f := completedDiligence(t, domain.StatusPendingVerification)
	f.repo.seedPaymentLedger(f.dilID, f.payID, f.client, domain.PaymentClient,
		domain.StatusPending, domain.StatusPendingVerification)

	resp, err := f.svc.CanRevert(context.Background(), f.dilID, domain.EntityPayment, domain.PaymentClient, client(f))
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if !resp.Possible {
		t.Fatalf("own unverified payment not revertible: %s", resp.Message)
	}
	if len(resp.Targets) != 1 || resp.Targets[0] != string(domain.StatusPending) {
		t.Errorf("targets = %v, want [pending]", resp.Targets)
	}
}

// The client leg of a fresh diligence carries only the opening entry plus the
// proof-submission transition. That trail alone must let the submitting
// client walk their submission back.
func TestClientRevertsFirstProofSubmission(t *testing.T) {
	f := completedDiligence(t, domain.StatusPendingVerification)
	f.repo.seedPaymentLedger(f.dilID, f.payID, f.client, domain.PaymentClient,
		domain.StatusPending, domain.StatusPendingVerification)

	resp, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:    f.dilID,
		Kind:        domain.EntityPayment,
		PaymentKind: domain.PaymentClient,
		Reason:      "wrong receipt attached",
		Actor:       client(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if resp.Status != string(domain.StatusPending) {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if got := f.repo.payments[f.dilID].ClientStatus; got != domain.StatusPending {
		t.Errorf("stored client status = %s, want pending", got)
	}
	count, _ := f.repo.CountEntries(context.Background(), f.dilID, domain.EntityPayment, domain.PaymentClient)
	if count != 3 {
		t.Errorf("payment ledger length = %d, want 3", count)
	}
}

func TestCanRevertIsIdempotent(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	ctx := context.Background()

	before, _ := f.repo.CountEntries(ctx, f.dilID, domain.EntityDiligence, "")
	var first string
	for i := 0; i < 3; i++ {
		resp, err := f.svc.CanRevert(ctx, f.dilID, domain.EntityDiligence, "", admin(f))
		if err != nil {
			t.Fatalf("CanRevert: %v", err)
		}
		if i == 0 {
			first = resp.Message
		} else if resp.Message != first {
			t.Errorf("answer changed between calls: %q vs %q", first, resp.Message)
		}
	}
	after, _ := f.repo.CountEntries(ctx, f.dilID, domain.EntityDiligence, "")
	if before != after {
		t.Error("CanRevert mutated the ledger")
	}
}

func TestCanRevertRejectsThinLedger(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	fresh := uuid.New()
	f.repo.diligences[fresh] = &domain.DiligenceRow{
		ID:       fresh,
		ClientID: f.client,
		Status:   domain.StatusPending,
	}
	f.repo.seedLedger(fresh, f.adminID, domain.StatusPending)

	resp, err := f.svc.CanRevert(context.Background(), fresh, domain.EntityDiligence, "", admin(f))
	if err != nil {
		t.Fatalf("CanRevert: %v", err)
	}
	if resp.Possible {
		t.Error("single-entry ledger reported revertible")
	}
}

func TestRevertExplicitTargetMustBeLegal(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	target := domain.StatusPending // completed only reverts to in_progress

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:     f.dilID,
		Kind:         domain.EntityDiligence,
		TargetStatus: &target,
		Reason:       "skip back to the start",
		Actor:        admin(f),
	})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestUncancelRecoveryPath(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusCancelled
	f.repo.seedLedger(f.dilID, f.adminID, domain.StatusCancelled)

	target := domain.StatusAssigned
	resp, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:     f.dilID,
		Kind:         domain.EntityDiligence,
		TargetStatus: &target,
		Reason:       "cancelled by mistake",
		Actor:        admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if resp.Status != string(domain.StatusAssigned) {
		t.Errorf("status = %s, want assigned", resp.Status)
	}
}

func TestRevertToAssignedNeedsCorrespondent(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusCancelled
	f.repo.diligences[f.dilID].CorrespondentID = nil
	f.repo.seedLedger(f.dilID, f.adminID, domain.StatusCancelled)

	target := domain.StatusAssigned
	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:     f.dilID,
		Kind:         domain.EntityDiligence,
		TargetStatus: &target,
		Reason:       "cancelled by mistake",
		Actor:        admin(f),
	})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}

func TestRevertToPendingClearsCorrespondent(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusAssigned

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "correspondent unavailable",
		Actor:    admin(f),
	})
	// Implicit target from the trail [... in_progress, completed] does not
	// match assigned's target set, so pick it explicitly.
	if err == nil {
		t.Fatal("implicit target unexpectedly legal")
	}
	target := domain.StatusPending
	resp, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:     f.dilID,
		Kind:         domain.EntityDiligence,
		TargetStatus: &target,
		Reason:       "correspondent unavailable",
		Actor:        admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if resp.Status != string(domain.StatusPending) {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if f.repo.diligences[f.dilID].CorrespondentID != nil {
		t.Error("correspondent not cleared on revert to pending")
	}
}

func TestRevertClientPaidBlockedByPaidCorrespondent(t *testing.T) {
	f := completedDiligence(t, domain.StatusPaid)
	f.repo.payments[f.dilID].CorrespondentStatus = domain.StatusPaid
	f.repo.seedPaymentLedger(f.dilID, f.payID, f.adminID, domain.PaymentClient,
		domain.StatusPending, domain.StatusPendingVerification, domain.StatusPaid)

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:    f.dilID,
		Kind:        domain.EntityPayment,
		PaymentKind: domain.PaymentClient,
		Reason:      "chargeback",
		Actor:       admin(f),
	})
	if !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
	if f.repo.payments[f.dilID].ClientStatus != domain.StatusPaid {
		t.Error("client payment changed despite precondition failure")
	}
}

func TestRevertClientPaymentToPendingVerification(t *testing.T) {
	f := completedDiligence(t, domain.StatusPaid)
	f.repo.seedPaymentLedger(f.dilID, f.payID, f.adminID, domain.PaymentClient,
		domain.StatusPending, domain.StatusPendingVerification, domain.StatusPaid)

	resp, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID:    f.dilID,
		Kind:        domain.EntityPayment,
		PaymentKind: domain.PaymentClient,
		Reason:      "verification was premature",
		Actor:       admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if resp.Status != string(domain.StatusPendingVerification) {
		t.Errorf("status = %s, want pending_verification", resp.Status)
	}
	if f.repo.payments[f.dilID].ClientStatus != domain.StatusPendingVerification {
		t.Error("stored client status not reverted")
	}

	// Payment ordering invariant still holds.
	p := f.repo.payments[f.dilID]
	if p.CorrespondentStatus == domain.StatusPaid && p.ClientStatus != domain.StatusPaid {
		t.Error("correspondent paid while client is not")
	}
}

func TestRevertPublishesStatusReverted(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)

	_, err := f.svc.Revert(context.Background(), RevertInput{
		EntityID: f.dilID,
		Kind:     domain.EntityDiligence,
		Reason:   "wrong report",
		Actor:    admin(f),
	})
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	names := f.bus.names()
	if len(names) != 1 || names[0] != "status.reverted" {
		t.Errorf("published events = %v, want [status.reverted]", names)
	}
}

func TestApplyDiligenceTransition(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusInProgress

	updated, err := f.svc.ApplyDiligenceTransition(context.Background(), TransitionInput{
		DiligenceID: f.dilID,
		To:          domain.StatusCompleted,
		ActorID:     f.corr,
		Reason:      "work delivered",
	})
	if err != nil {
		t.Fatalf("ApplyDiligenceTransition: %v", err)
	}
	if updated.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}
}

func TestApplyDiligenceTransitionRejectsIllegalEdge(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusPending

	_, err := f.svc.ApplyDiligenceTransition(context.Background(), TransitionInput{
		DiligenceID: f.dilID,
		To:          domain.StatusCompleted,
		ActorID:     f.adminID,
	})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestAssignmentPublishesDiligenceAssigned(t *testing.T) {
	f := completedDiligence(t, domain.StatusPending)
	f.repo.diligences[f.dilID].Status = domain.StatusPending
	f.repo.diligences[f.dilID].CorrespondentID = nil
	corr := uuid.New()

	_, err := f.svc.ApplyDiligenceTransition(context.Background(), TransitionInput{
		DiligenceID:     f.dilID,
		To:              domain.StatusAssigned,
		CorrespondentID: &corr,
		ActorID:         f.adminID,
		AutoMatched:     true,
	})
	if err != nil {
		t.Fatalf("ApplyDiligenceTransition: %v", err)
	}
	names := f.bus.names()
	if len(names) != 2 || names[1] != "diligence.assigned" {
		t.Errorf("published events = %v, want status change then assignment", names)
	}
}
