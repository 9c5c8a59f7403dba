package service

import (
	"fmt"

	"jurisconnect_backend/internal/statusflow/domain"
	"jurisconnect_backend/platform/apperr"
)

type failureCode int

const (
	failNoHistory failureCode = iota
	failNoTargets
	failForbidden
)

// failure is a policy verdict that CanRevert reports as possible=false and
// Revert raises as an error.
type failure struct {
	code    failureCode
	message string
}

func (f *failure) toError() *apperr.Error {
	if f.code == failForbidden {
		return apperr.Forbidden(f.message)
	}
	return apperr.InvalidTransition(f.message)
}

// assess runs the shared reversion checks: enough history, a non-empty
// target set, and the role/ownership policy. It returns the legal targets
// for the current status, or the first failing check.
func assess(kind domain.EntityKind, paymentKind domain.PaymentKind, current domain.Status, entryCount int, actor Actor, dil *domain.DiligenceRow) ([]domain.Status, *failure) {
	if entryCount < 2 {
		return nil, &failure{failNoHistory, "no earlier status to revert to"}
	}

	targets := reversionTargetsFor(kind, paymentKind, current)
	if len(targets) == 0 {
		return nil, &failure{failNoTargets, fmt.Sprintf("status %s cannot be reverted", current)}
	}

	if fail := checkRevertPolicy(kind, paymentKind, current, actor, dil); fail != nil {
		return nil, fail
	}
	return targets, nil
}

// checkRevertPolicy: only admins revert diligences. For payments, admins may
// always revert; the party that made the submission may only walk back their
// own still-unverified one.
func checkRevertPolicy(kind domain.EntityKind, paymentKind domain.PaymentKind, current domain.Status, actor Actor, dil *domain.DiligenceRow) *failure {
	if actor.IsAdmin {
		return nil
	}
	if kind == domain.EntityDiligence {
		return &failure{failForbidden, "not allowed to revert this diligence"}
	}

	var owner bool
	switch paymentKind {
	case domain.PaymentClient:
		owner = actor.UserID == dil.ClientID
	case domain.PaymentCorrespondent:
		owner = dil.CorrespondentUserID != nil && actor.UserID == *dil.CorrespondentUserID
	}
	if !owner || current != domain.StatusPendingVerification {
		return &failure{failForbidden, "not allowed to revert this payment"}
	}
	return nil
}

// reversionTargetsFor narrows the shared payment reversion edges to the
// statuses the given leg can actually hold: the correspondent leg never
// passes through pending_verification.
func reversionTargetsFor(kind domain.EntityKind, paymentKind domain.PaymentKind, current domain.Status) []domain.Status {
	targets := domain.ReversionTargets(kind, current)
	if kind != domain.EntityPayment || paymentKind != domain.PaymentCorrespondent {
		return targets
	}
	filtered := targets[:0]
	for _, t := range targets {
		if t != domain.StatusPendingVerification {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
