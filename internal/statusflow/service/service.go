// Package service implements the status workflow: forward transitions and
// permissioned reversions for diligences and payment legs. Every mutation
// runs in one transaction that re-reads the entity with a row lock,
// re-validates legality against the fresh state and writes the entity
// together with its ledger entry.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/internal/statusflow/repository"
	"jurisconnect_backend/internal/statusflow/transport"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
)

// Actor is the authenticated caller of a workflow operation. Ownership
// checks compare UserID against the diligence record, so no role beyond the
// admin flag is needed here.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// CanRevert answers whether the actor could revert the entity right now. It
// never mutates state and reports policy failures as possible=false rather
// than errors; only an unresolvable entity is an error.
func (s *Service) CanRevert(ctx context.Context, entityID uuid.UUID, kind domain.EntityKind, paymentKind domain.PaymentKind, actor Actor) (transport.CanRevertResponse, error) {
	dil, err := s.repo.GetDiligence(ctx, entityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.CanRevertResponse{}, apperr.NotFound("diligence not found")
		}
		return transport.CanRevertResponse{}, apperr.Persistence("load diligence", err)
	}

	current := dil.Status
	if kind == domain.EntityPayment {
		pay, err := s.repo.GetPayment(ctx, entityID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return transport.CanRevertResponse{}, apperr.NotFound("payment record not found")
			}
			return transport.CanRevertResponse{}, apperr.Persistence("load payment", err)
		}
		current = paymentLeg(pay, paymentKind)
	}

	count, err := s.repo.CountEntries(ctx, entityID, kind, paymentKind)
	if err != nil {
		return transport.CanRevertResponse{}, apperr.Persistence("count history entries", err)
	}

	targets, fail := assess(kind, paymentKind, current, count, actor, dil)
	if fail != nil {
		return transport.CanRevertResponse{Possible: false, Message: fail.message}, nil
	}

	resp := transport.CanRevertResponse{Possible: true, Message: "reversion available"}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, string(t))
	}
	return resp, nil
}

// RevertInput carries one reversion request. TargetStatus nil means "the
// status before the current one", resolved from the ledger.
type RevertInput struct {
	EntityID     uuid.UUID
	Kind         domain.EntityKind
	PaymentKind  domain.PaymentKind
	TargetStatus *domain.Status
	Reason       string
	Actor        Actor
}

// Revert undoes the most recent transition of the entity. All checks from
// CanRevert re-run inside the transaction against a locked row; a stale
// client-side answer never wins a race.
func (s *Service) Revert(ctx context.Context, in RevertInput) (*transport.RevertedEntityResponse, error) {
	if in.Reason == "" {
		return nil, apperr.Validation("a reason is required to revert a status")
	}
	if !in.Kind.Valid() {
		return nil, apperr.Validation("unknown entity type")
	}
	if in.Kind == domain.EntityPayment && !in.PaymentKind.Valid() {
		return nil, apperr.Validation("payment reversion requires a payment type")
	}

	var (
		resp  *transport.RevertedEntityResponse
		event events.StatusReverted
	)
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		if in.Kind == domain.EntityDiligence {
			resp, err = s.revertDiligence(ctx, store, in)
		} else {
			resp, err = s.revertPayment(ctx, store, in)
		}
		if err != nil {
			return err
		}
		event = events.StatusReverted{
			BaseEvent:      events.NewBaseEvent(),
			DiligenceID:    in.EntityID,
			EntityType:     string(in.Kind),
			PaymentType:    string(in.PaymentKind),
			PreviousStatus: resp.PreviousStatus,
			NewStatus:      resp.Status,
			RevertedBy:     in.Actor.UserID,
			Reason:         in.Reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, event)
	s.log.StatusReverted(string(in.Kind), in.EntityID.String(), resp.PreviousStatus, resp.Status, in.Actor.UserID.String(), in.Reason)
	return resp, nil
}

func (s *Service) revertDiligence(ctx context.Context, store repository.Store, in RevertInput) (*transport.RevertedEntityResponse, error) {
	dil, err := store.GetDiligenceForUpdate(ctx, in.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("diligence not found")
		}
		return nil, apperr.Persistence("load diligence", err)
	}

	count, err := store.CountEntries(ctx, in.EntityID, domain.EntityDiligence, "")
	if err != nil {
		return nil, apperr.Persistence("count history entries", err)
	}

	targets, fail := assess(domain.EntityDiligence, "", dil.Status, count, in.Actor, dil)
	if fail != nil {
		return nil, fail.toError()
	}

	target, err := s.resolveTarget(ctx, store, in, dil.Status, targets)
	if err != nil {
		return nil, err
	}

	// Referential invariant: assigned/in_progress/completed demand a
	// correspondent on the record.
	if domain.RequiresCorrespondent(target) && dil.CorrespondentID == nil {
		return nil, apperr.Precondition(fmt.Sprintf("cannot revert to %s without an assigned correspondent", target))
	}

	correspondentID := dil.CorrespondentID
	if target == domain.StatusPending {
		correspondentID = nil
	}

	if err := store.UpdateDiligenceStatus(ctx, dil.ID, target, correspondentID); err != nil {
		return nil, apperr.Persistence("update diligence status", err)
	}
	if err := store.AppendLedger(ctx, &domain.LedgerEntry{
		DiligenceID:    dil.ID,
		EntityType:     domain.EntityDiligence,
		PreviousStatus: dil.Status,
		NewStatus:      target,
		UserID:         in.Actor.UserID,
		Reason:         in.Reason,
	}); err != nil {
		return nil, apperr.Persistence("append history entry", err)
	}

	// Leaving completed walks back the billing step that completion
	// triggered, but only for a submission still awaiting verification. A
	// paid record needs its own explicit payment reversion.
	if dil.Status == domain.StatusCompleted {
		if err := s.resetClientIfUnpaid(ctx, store, dil.ID, in.Actor.UserID); err != nil {
			return nil, err
		}
	}

	return &transport.RevertedEntityResponse{
		EntityID:       dil.ID,
		EntityType:     string(domain.EntityDiligence),
		Status:         string(target),
		PreviousStatus: string(dil.Status),
	}, nil
}

func (s *Service) revertPayment(ctx context.Context, store repository.Store, in RevertInput) (*transport.RevertedEntityResponse, error) {
	dil, err := store.GetDiligenceForUpdate(ctx, in.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("diligence not found")
		}
		return nil, apperr.Persistence("load diligence", err)
	}
	pay, err := store.GetPaymentForUpdate(ctx, in.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("payment record not found")
		}
		return nil, apperr.Persistence("load payment", err)
	}

	current := paymentLeg(pay, in.PaymentKind)

	count, err := store.CountEntries(ctx, in.EntityID, domain.EntityPayment, in.PaymentKind)
	if err != nil {
		return nil, apperr.Persistence("count history entries", err)
	}

	targets, fail := assess(domain.EntityPayment, in.PaymentKind, current, count, in.Actor, dil)
	if fail != nil {
		return nil, fail.toError()
	}

	target, err := s.resolveTarget(ctx, store, in, current, targets)
	if err != nil {
		return nil, err
	}

	// Payment ordering invariant: the client leg may not drop below paid
	// while the correspondent payout stands.
	if in.PaymentKind == domain.PaymentClient &&
		current == domain.StatusPaid &&
		pay.CorrespondentStatus == domain.StatusPaid {
		return nil, apperr.Precondition("client payment cannot be reverted while the correspondent payout is paid")
	}

	switch in.PaymentKind {
	case domain.PaymentClient:
		err = store.UpdateClientPaymentStatus(ctx, pay.ID, target)
	case domain.PaymentCorrespondent:
		err = store.UpdateCorrespondentPaymentStatus(ctx, pay.ID, target)
	}
	if err != nil {
		return nil, apperr.Persistence("update payment status", err)
	}

	if err := store.AppendLedger(ctx, &domain.LedgerEntry{
		DiligenceID:    dil.ID,
		PaymentID:      &pay.ID,
		EntityType:     domain.EntityPayment,
		PaymentType:    in.PaymentKind,
		PreviousStatus: current,
		NewStatus:      target,
		UserID:         in.Actor.UserID,
		Reason:         in.Reason,
	}); err != nil {
		return nil, apperr.Persistence("append history entry", err)
	}

	resp := &transport.RevertedEntityResponse{
		EntityID:            dil.ID,
		EntityType:          string(domain.EntityPayment),
		PaymentType:         string(in.PaymentKind),
		Status:              string(target),
		PreviousStatus:      string(current),
		ClientStatus:        string(pay.ClientStatus),
		CorrespondentStatus: string(pay.CorrespondentStatus),
	}
	if in.PaymentKind == domain.PaymentClient {
		resp.ClientStatus = string(target)
	} else {
		resp.CorrespondentStatus = string(target)
	}
	return resp, nil
}

// resolveTarget picks the effective reversion target: an explicit one must
// be in the legal set, an implicit one is the status before the current one
// per the ledger.
func (s *Service) resolveTarget(ctx context.Context, store repository.Store, in RevertInput, current domain.Status, targets []domain.Status) (domain.Status, error) {
	if in.TargetStatus != nil {
		if !containsStatus(targets, *in.TargetStatus) {
			return "", apperr.InvalidTransition(fmt.Sprintf("cannot revert %s from %s to %s", in.Kind, current, *in.TargetStatus))
		}
		return *in.TargetStatus, nil
	}

	prev, err := store.LatestBefore(ctx, in.EntityID, in.Kind, in.PaymentKind, 1)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.InvalidTransition("no earlier status recorded to revert to")
		}
		return "", apperr.Persistence("resolve reversion target", err)
	}
	if !containsStatus(targets, prev.NewStatus) {
		return "", apperr.InvalidTransition(fmt.Sprintf("cannot revert %s from %s to %s", in.Kind, current, prev.NewStatus))
	}
	return prev.NewStatus, nil
}

// resetClientIfUnpaid flips a pending_verification client payment back to
// pending with its own ledger entry. Pending is left alone (nothing to walk
// back) and paid is never touched automatically.
func (s *Service) resetClientIfUnpaid(ctx context.Context, store repository.Store, diligenceID, actorID uuid.UUID) error {
	pay, err := store.GetPaymentForUpdate(ctx, diligenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperr.Persistence("load payment", err)
	}
	if pay.ClientStatus != domain.StatusPendingVerification {
		return nil
	}
	if err := store.UpdateClientPaymentStatus(ctx, pay.ID, domain.StatusPending); err != nil {
		return apperr.Persistence("reset client payment", err)
	}
	if err := store.AppendLedger(ctx, &domain.LedgerEntry{
		DiligenceID:    diligenceID,
		PaymentID:      &pay.ID,
		EntityType:     domain.EntityPayment,
		PaymentType:    domain.PaymentClient,
		PreviousStatus: domain.StatusPendingVerification,
		NewStatus:      domain.StatusPending,
		UserID:         actorID,
		Reason:         "client payment verification reset by diligence reversion",
	}); err != nil {
		return apperr.Persistence("append history entry", err)
	}
	return nil
}

// History returns the full audit trail of a diligence, newest first,
// optionally filtered to one entity kind or payment leg.
func (s *Service) History(ctx context.Context, diligenceID uuid.UUID, kind domain.EntityKind, paymentKind domain.PaymentKind) ([]transport.StatusHistoryEntryResponse, error) {
	if _, err := s.repo.GetDiligence(ctx, diligenceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("diligence not found")
		}
		return nil, apperr.Persistence("load diligence", err)
	}

	entries, err := s.repo.History(ctx, diligenceID)
	if err != nil {
		return nil, apperr.Persistence("load history", err)
	}

	resp := make([]transport.StatusHistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.EntityType != kind {
			continue
		}
		if paymentKind != "" && e.PaymentType != paymentKind {
			continue
		}
		resp = append(resp, transport.ToHistoryEntryResponse(e))
	}
	return resp, nil
}

// TransitionInput drives one forward diligence transition. CorrespondentID
// may only accompany a transition to assigned.
type TransitionInput struct {
	DiligenceID     uuid.UUID
	To              domain.Status
	CorrespondentID *uuid.UUID
	ActorID         uuid.UUID
	Reason          string
	AutoMatched     bool
}

// ApplyDiligenceTransition is the single entry point for forward diligence
// transitions, shared by the transition endpoint and both assignment paths.
func (s *Service) ApplyDiligenceTransition(ctx context.Context, in TransitionInput) (*domain.DiligenceRow, error) {
	if !in.To.ValidDiligence() {
		return nil, apperr.Validation(fmt.Sprintf("unknown diligence status %q", in.To))
	}
	if in.CorrespondentID != nil && in.To != domain.StatusAssigned {
		return nil, apperr.Validation("a correspondent can only be set when transitioning to assigned")
	}
	reason := in.Reason
	if reason == "" {
		reason = fmt.Sprintf("status changed to %s", in.To)
	}

	var updated *domain.DiligenceRow
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		dil, err := store.GetDiligenceForUpdate(ctx, in.DiligenceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("diligence not found")
			}
			return apperr.Persistence("load diligence", err)
		}

		if !domain.ForwardLegal(domain.EntityDiligence, dil.Status, in.To) {
			return apperr.InvalidTransition(fmt.Sprintf("cannot transition diligence from %s to %s", dil.Status, in.To))
		}

		correspondentID := dil.CorrespondentID
		if in.CorrespondentID != nil {
			correspondentID = in.CorrespondentID
		}
		if domain.RequiresCorrespondent(in.To) && correspondentID == nil {
			return apperr.Precondition(fmt.Sprintf("cannot transition to %s without a correspondent", in.To))
		}

		if err := store.UpdateDiligenceStatus(ctx, dil.ID, in.To, correspondentID); err != nil {
			return apperr.Persistence("update diligence status", err)
		}
		if err := store.AppendLedger(ctx, &domain.LedgerEntry{
			DiligenceID:    dil.ID,
			EntityType:     domain.EntityDiligence,
			PreviousStatus: dil.Status,
			NewStatus:      in.To,
			UserID:         in.ActorID,
			Reason:         reason,
		}); err != nil {
			return apperr.Persistence("append history entry", err)
		}

		updated = &domain.DiligenceRow{
			ID:              dil.ID,
			ClientID:        dil.ClientID,
			CorrespondentID: correspondentID,
			Status:          in.To,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := ""
	if prev, err := s.repo.LatestBefore(ctx, in.DiligenceID, domain.EntityDiligence, "", 1); err == nil {
		from = string(prev.NewStatus)
	}
	s.bus.Publish(ctx, events.DiligenceStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		DiligenceID:    in.DiligenceID,
		PreviousStatus: from,
		NewStatus:      string(in.To),
		ChangedBy:      in.ActorID,
	})
	if in.To == domain.StatusAssigned && updated.CorrespondentID != nil {
		s.bus.Publish(ctx, events.DiligenceAssigned{
			BaseEvent:       events.NewBaseEvent(),
			DiligenceID:     in.DiligenceID,
			CorrespondentID: *updated.CorrespondentID,
			AssignedBy:      in.ActorID,
			AutoMatched:     in.AutoMatched,
		})
	}
	s.log.StatusTransition(string(domain.EntityDiligence), in.DiligenceID.String(), "", string(in.To), in.ActorID.String())
	return updated, nil
}

func paymentLeg(pay *domain.PaymentRow, kind domain.PaymentKind) domain.Status {
	if kind == domain.PaymentCorrespondent {
		return pay.CorrespondentStatus
	}
	return pay.ClientStatus
}

func containsStatus(targets []domain.Status, s domain.Status) bool {
	for _, t := range targets {
		if t == s {
			return true
		}
	}
	return false
}
