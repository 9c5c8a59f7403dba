// Package service implements the payment status coordinator: the two-party
// payment dependency rule, proof verification and the PIX charge helpers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/payments/pix"
	"jurisconnect_backend/internal/payments/repository"
	"jurisconnect_backend/internal/payments/transport"
	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/platform/apperr"
	"jurisconnect_backend/platform/logger"
	"jurisconnect_backend/platform/validator"
)

// ProofStorage stores proof images outside the database.
type ProofStorage interface {
	UploadProofImage(ctx context.Context, diligenceID uuid.UUID, filename, contentType string, content []byte) (string, error)
	ProofDownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// Actor mirrors the workflow actor: ownership is checked against the
// diligence record, admin overrides ownership.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type Service struct {
	repo         repository.Repository
	storage      ProofStorage
	val          *validator.Validator
	bus          events.Bus
	log          *logger.Logger
	merchantName string
	merchantCity string
}

func New(repo repository.Repository, storage ProofStorage, val *validator.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		storage:      storage,
		val:          val,
		bus:          bus,
		log:          log,
		merchantName: "JurisConnect",
		merchantCity: "Sao Paulo",
	}
}

// GetPayment returns both payment legs of a diligence. Only the parties to
// the diligence and admins may read it.
func (s *Service) GetPayment(ctx context.Context, diligenceID uuid.UUID, actor Actor) (transport.PaymentResponse, error) {
	party, err := s.repo.GetDiligenceParty(ctx, diligenceID)
	if err != nil {
		return transport.PaymentResponse{}, notFoundOr(err, "diligence not found")
	}
	if !actor.IsAdmin && !isParty(party, actor.UserID) {
		return transport.PaymentResponse{}, apperr.Forbidden("not a party to this diligence")
	}
	pay, err := s.repo.GetPayment(ctx, diligenceID)
	if err != nil {
		return transport.PaymentResponse{}, notFoundOr(err, "payment record not found")
	}
	return transport.ToPaymentResponse(pay), nil
}

// MarkClientPaid confirms the client payment. Legal from pending (a direct
// confirmation without proof) or pending_verification.
func (s *Service) MarkClientPaid(ctx context.Context, diligenceID uuid.UUID, actorID uuid.UUID) (transport.PaymentResponse, error) {
	var (
		resp  transport.PaymentResponse
		payID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		pay, err := store.GetPaymentForUpdate(ctx, diligenceID)
		if err != nil {
			return notFoundOr(err, "payment record not found")
		}
		if pay.ClientStatus != domain.StatusPending && pay.ClientStatus != domain.StatusPendingVerification {
			return apperr.InvalidTransition(fmt.Sprintf("cannot mark client payment paid from %s", pay.ClientStatus))
		}
		if err := store.UpdateClientStatus(ctx, pay.ID, domain.StatusPaid); err != nil {
			return apperr.Persistence("update client payment", err)
		}
		if err := store.AppendLedger(ctx, &domain.LedgerEntry{
			DiligenceID:    diligenceID,
			PaymentID:      &pay.ID,
			EntityType:     domain.EntityPayment,
			PaymentType:    domain.PaymentClient,
			PreviousStatus: pay.ClientStatus,
			NewStatus:      domain.StatusPaid,
			UserID:         actorID,
			Reason:         "client payment confirmed",
		}); err != nil {
			return apperr.Persistence("append history entry", err)
		}
		pay.ClientStatus = domain.StatusPaid
		resp = transport.ToPaymentResponse(pay)
		payID = pay.ID
		return nil
	})
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.bus.Publish(ctx, events.ClientPaymentPaid{
		BaseEvent:   events.NewBaseEvent(),
		DiligenceID: diligenceID,
		PaymentID:   payID,
		MarkedBy:    actorID,
	})
	return resp, nil
}

// MarkCorrespondentPaid confirms the correspondent payout. The dependency
// rules are checked against the freshly locked row: the client leg must
// already be paid and the diligence must be completed.
func (s *Service) MarkCorrespondentPaid(ctx context.Context, diligenceID uuid.UUID, actorID uuid.UUID) (transport.PaymentResponse, error) {
	var (
		resp   transport.PaymentResponse
		payID  uuid.UUID
		corrID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		party, err := store.GetDiligenceParty(ctx, diligenceID)
		if err != nil {
			return notFoundOr(err, "diligence not found")
		}
		pay, err := store.GetPaymentForUpdate(ctx, diligenceID)
		if err != nil {
			return notFoundOr(err, "payment record not found")
		}
		if pay.ClientStatus != domain.StatusPaid {
			return apperr.Precondition("correspondent payout requires the client payment to be paid")
		}
		if party.Status != domain.StatusCompleted {
			return apperr.Precondition("correspondent payout requires the diligence to be completed")
		}
		if pay.CorrespondentStatus != domain.StatusPending {
			return apperr.InvalidTransition(fmt.Sprintf("cannot mark correspondent payment paid from %s", pay.CorrespondentStatus))
		}
		if party.CorrespondentID == nil {
			return apperr.Precondition("diligence has no correspondent to pay")
		}
		if err := store.UpdateCorrespondentStatus(ctx, pay.ID, domain.StatusPaid); err != nil {
			return apperr.Persistence("update correspondent payment", err)
		}
		if err := store.AppendLedger(ctx, &domain.LedgerEntry{
			DiligenceID:    diligenceID,
			PaymentID:      &pay.ID,
			EntityType:     domain.EntityPayment,
			PaymentType:    domain.PaymentCorrespondent,
			PreviousStatus: pay.CorrespondentStatus,
			NewStatus:      domain.StatusPaid,
			UserID:         actorID,
			Reason:         "correspondent payout confirmed",
		}); err != nil {
			return apperr.Persistence("append history entry", err)
		}
		pay.CorrespondentStatus = domain.StatusPaid
		resp = transport.ToPaymentResponse(pay)
		payID = pay.ID
		corrID = *party.CorrespondentID
		return nil
	})
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.bus.Publish(ctx, events.CorrespondentPaymentPaid{
		BaseEvent:       events.NewBaseEvent(),
		DiligenceID:     diligenceID,
		PaymentID:       payID,
		CorrespondentID: corrID,
		MarkedBy:        actorID,
	})
	return resp, nil
}

// SubmitProofInput carries a client proof submission. The image is uploaded
// to object storage before the transaction opens; only the object key enters
// the database.
type SubmitProofInput struct {
	DiligenceID uuid.UUID
	PixKey      string
	Amount      decimal.Decimal
	Filename    string
	ContentType string
	Image       []byte
	Actor       Actor
}

// SubmitProof records a payment proof and moves the client leg to
// pending_verification. A rejected proof may be resubmitted; it creates a
// new proof row.
func (s *Service) SubmitProof(ctx context.Context, in SubmitProofInput) (transport.ProofResponse, error) {
	if err := s.val.Var(in.PixKey, "required,min=5,max=140"); err != nil {
		return transport.ProofResponse{}, apperr.Validation("pix key is required and must be between 5 and 140 characters")
	}
	if !in.Amount.IsPositive() {
		return transport.ProofResponse{}, apperr.Validation("amount must be positive")
	}
	if len(in.Image) == 0 {
		return transport.ProofResponse{}, apperr.Validation("proof image is required")
	}

	imageKey, err := s.storage.UploadProofImage(ctx, in.DiligenceID, in.Filename, in.ContentType, in.Image)
	if err != nil {
		return transport.ProofResponse{}, apperr.Persistence("upload proof image", err)
	}

	var proof *repository.Proof
	err = s.repo.InTx(ctx, func(store repository.Store) error {
		party, err := store.GetDiligenceParty(ctx, in.DiligenceID)
		if err != nil {
			return notFoundOr(err, "diligence not found")
		}
		if !in.Actor.IsAdmin && in.Actor.UserID != party.ClientID {
			return apperr.Forbidden("only the client may submit a payment proof")
		}
		pay, err := store.GetPaymentForUpdate(ctx, in.DiligenceID)
		if err != nil {
			return notFoundOr(err, "payment record not found")
		}
		if pay.ClientStatus == domain.StatusPaid {
			return apperr.InvalidTransition("client payment is already paid")
		}
		pending, err := store.HasPendingProof(ctx, pay.ID)
		if err != nil {
			return apperr.Persistence("check pending proofs", err)
		}
		if pending {
			return apperr.Conflict("a proof is already awaiting verification")
		}

		proof = &repository.Proof{
			DiligenceID: in.DiligenceID,
			PaymentID:   pay.ID,
			PixKey:      in.PixKey,
			Amount:      in.Amount,
			ImageKey:    imageKey,
			Status:      repository.ProofPendingVerification,
			SubmittedBy: in.Actor.UserID,
		}
		if err := store.CreateProof(ctx, proof); err != nil {
			return apperr.Persistence("create proof", err)
		}
		if err := store.UpdatePixKey(ctx, pay.ID, in.PixKey); err != nil {
			return apperr.Persistence("record pix key", err)
		}
		if pay.ClientStatus == domain.StatusPending {
			if err := store.UpdateClientStatus(ctx, pay.ID, domain.StatusPendingVerification); err != nil {
				return apperr.Persistence("update client payment", err)
			}
			if err := store.AppendLedger(ctx, &domain.LedgerEntry{
				DiligenceID:    in.DiligenceID,
				PaymentID:      &pay.ID,
				EntityType:     domain.EntityPayment,
				PaymentType:    domain.PaymentClient,
				PreviousStatus: domain.StatusPending,
				NewStatus:      domain.StatusPendingVerification,
				UserID:         in.Actor.UserID,
				Reason:         "payment proof submitted",
			}); err != nil {
				return apperr.Persistence("append history entry", err)
			}
		}
		return nil
	})
	if err != nil {
		return transport.ProofResponse{}, err
	}

	s.bus.Publish(ctx, events.ProofSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		DiligenceID: in.DiligenceID,
		ProofID:     proof.ID,
		SubmittedBy: in.Actor.UserID,
	})
	return transport.ToProofResponse(proof), nil
}

// VerifyProof applies an admin verdict to a pending proof. Approval marks
// the client payment paid; rejection reverts it to pending with the
// rejection reason on the ledger entry.
func (s *Service) VerifyProof(ctx context.Context, proofID uuid.UUID, approved bool, rejectionReason string, adminID uuid.UUID) (transport.ProofResponse, error) {
	if !approved && rejectionReason == "" {
		return transport.ProofResponse{}, apperr.Validation("a rejection reason is required")
	}

	var proof *repository.Proof
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		proof, err = store.GetProofForUpdate(ctx, proofID)
		if err != nil {
			return notFoundOr(err, "proof not found")
		}
		if proof.Status != repository.ProofPendingVerification {
			return apperr.InvalidTransition("proof has already been verified")
		}
		pay, err := store.GetPaymentForUpdate(ctx, proof.DiligenceID)
		if err != nil {
			return notFoundOr(err, "payment record not found")
		}

		if approved {
			if err := store.ApplyVerification(ctx, proofID, repository.ProofVerified, adminID, nil); err != nil {
				return apperr.Persistence("verify proof", err)
			}
			proof.Status = repository.ProofVerified
			if err := store.UpdateClientStatus(ctx, pay.ID, domain.StatusPaid); err != nil {
				return apperr.Persistence("update client payment", err)
			}
			return store.AppendLedger(ctx, &domain.LedgerEntry{
				DiligenceID:    proof.DiligenceID,
				PaymentID:      &pay.ID,
				EntityType:     domain.EntityPayment,
				PaymentType:    domain.PaymentClient,
				PreviousStatus: pay.ClientStatus,
				NewStatus:      domain.StatusPaid,
				UserID:         adminID,
				Reason:         "payment proof approved",
			})
		}

		reason := rejectionReason
		if err := store.ApplyVerification(ctx, proofID, repository.ProofRejected, adminID, &reason); err != nil {
			return apperr.Persistence("reject proof", err)
		}
		proof.Status = repository.ProofRejected
		proof.RejectionReason = &reason
		if err := store.UpdateClientStatus(ctx, pay.ID, domain.StatusPending); err != nil {
			return apperr.Persistence("update client payment", err)
		}
		return store.AppendLedger(ctx, &domain.LedgerEntry{
			DiligenceID:    proof.DiligenceID,
			PaymentID:      &pay.ID,
			EntityType:     domain.EntityPayment,
			PaymentType:    domain.PaymentClient,
			PreviousStatus: pay.ClientStatus,
			NewStatus:      domain.StatusPending,
			UserID:         adminID,
			Reason:         "payment proof rejected: " + rejectionReason,
		})
	})
	if err != nil {
		return transport.ProofResponse{}, err
	}

	adminUUID := adminID
	proof.VerifiedBy = &adminUUID
	s.bus.Publish(ctx, events.ProofVerified{
		BaseEvent:   events.NewBaseEvent(),
		DiligenceID: proof.DiligenceID,
		ProofID:     proof.ID,
		Approved:    approved,
		VerifiedBy:  adminID,
	})
	return transport.ToProofResponse(proof), nil
}

// GetProofDetail returns a proof record together with a presigned download
// URL for its image, so a reviewer can inspect the evidence before issuing a
// verdict.
func (s *Service) GetProofDetail(ctx context.Context, proofID uuid.UUID) (transport.ProofDetailResponse, error) {
	proof, err := s.repo.GetProof(ctx, proofID)
	if err != nil {
		return transport.ProofDetailResponse{}, notFoundOr(err, "proof not found")
	}
	url, expiresAt, err := s.storage.ProofDownloadURL(ctx, proof.ImageKey)
	if err != nil {
		return transport.ProofDetailResponse{}, apperr.Persistence("presign proof image", err)
	}
	return transport.ProofDetailResponse{
		ProofResponse:  transport.ToProofResponse(proof),
		ImageURL:       url,
		ImageExpiresAt: expiresAt,
	}, nil
}

// PixQR renders the PIX charge for the client leg as a QR code PNG.
func (s *Service) PixQR(ctx context.Context, diligenceID uuid.UUID, actor Actor) ([]byte, error) {
	party, err := s.repo.GetDiligenceParty(ctx, diligenceID)
	if err != nil {
		return nil, notFoundOr(err, "diligence not found")
	}
	if !actor.IsAdmin && actor.UserID != party.ClientID {
		return nil, apperr.Forbidden("only the client may fetch the payment QR code")
	}
	pay, err := s.repo.GetPayment(ctx, diligenceID)
	if err != nil {
		return nil, notFoundOr(err, "payment record not found")
	}
	if pay.PixKey == nil || *pay.PixKey == "" {
		return nil, apperr.Precondition("no pix key recorded for this payment")
	}

	payload, err := pix.Payload(*pay.PixKey, pay.ClientAmount, s.merchantName, s.merchantCity)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	png, err := pix.QRCodePNG(payload, 256)
	if err != nil {
		return nil, apperr.Internal("render qr code")
	}
	return png, nil
}

func isParty(party *repository.DiligenceParty, userID uuid.UUID) bool {
	if userID == party.ClientID {
		return true
	}
	return party.CorrespondentUserID != nil && userID == *party.CorrespondentUserID
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return apperr.Persistence(message, err)
}
