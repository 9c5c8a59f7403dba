// Package notification turns domain events into outbox rows. Domain modules
// publish events after their transaction commits; this module resolves the
// recipients and queues the email, so no domain service ever touches a mail
// server.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/events"
	"jurisconnect_backend/internal/notification/outbox"
	"jurisconnect_backend/platform/logger"
)

// Email templates drained by the scheduler worker.
const (
	TemplateDiligenceAssigned = "diligence_assigned"
	TemplateStatusReverted    = "status_reverted"
	TemplatePaymentConfirmed  = "payment_confirmed"
	TemplatePayoutConfirmed   = "payout_confirmed"
	TemplateProofReceived     = "proof_received"
	TemplateProofReviewed     = "proof_reviewed"
)

// Payload is the template data stored with each outbox row.
type Payload struct {
	DiligenceID    string `json:"diligenceId"`
	DiligenceTitle string `json:"diligenceTitle,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	NewStatus      string `json:"newStatus,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Approved       *bool  `json:"approved,omitempty"`
}

type contacts struct {
	title              string
	clientEmail        string
	clientName         string
	correspondentEmail *string
	correspondentName  *string
}

type Module struct {
	pool   *pgxpool.Pool
	outbox *outbox.Repository
	log    *logger.Logger
}

// NewModule wires the subscribers onto the bus.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	m := &Module{
		pool:   pool,
		outbox: outbox.New(pool),
		log:    log,
	}

	bus.Subscribe(events.DiligenceAssigned{}.EventName(), m)
	bus.Subscribe(events.StatusReverted{}.EventName(), m)
	bus.Subscribe(events.ClientPaymentPaid{}.EventName(), m)
	bus.Subscribe(events.CorrespondentPaymentPaid{}.EventName(), m)
	bus.Subscribe(events.ProofSubmitted{}.EventName(), m)
	bus.Subscribe(events.ProofVerified{}.EventName(), m)

	return m
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DiligenceAssigned:
		return m.handleDiligenceAssigned(ctx, e)
	case events.StatusReverted:
		return m.handleStatusReverted(ctx, e)
	case events.ClientPaymentPaid:
		return m.handleClientPaymentPaid(ctx, e)
	case events.CorrespondentPaymentPaid:
		return m.handleCorrespondentPaymentPaid(ctx, e)
	case events.ProofSubmitted:
		return m.handleProofSubmitted(ctx, e)
	case events.ProofVerified:
		return m.handleProofVerified(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleDiligenceAssigned(ctx context.Context, e events.DiligenceAssigned) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	if c.correspondentEmail == nil {
		m.log.Warn("assigned diligence has no correspondent contact", "diligence_id", e.DiligenceID)
		return nil
	}
	return m.queue(ctx, *c.correspondentEmail, deref(c.correspondentName), TemplateDiligenceAssigned, Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
	})
}

func (m *Module) handleStatusReverted(ctx context.Context, e events.StatusReverted) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	payload := Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Reason:         e.Reason,
	}
	if err := m.queue(ctx, c.clientEmail, c.clientName, TemplateStatusReverted, payload); err != nil {
		return err
	}
	if c.correspondentEmail != nil {
		return m.queue(ctx, *c.correspondentEmail, deref(c.correspondentName), TemplateStatusReverted, payload)
	}
	return nil
}

func (m *Module) handleClientPaymentPaid(ctx context.Context, e events.ClientPaymentPaid) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	return m.queue(ctx, c.clientEmail, c.clientName, TemplatePaymentConfirmed, Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
	})
}

func (m *Module) handleCorrespondentPaymentPaid(ctx context.Context, e events.CorrespondentPaymentPaid) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	if c.correspondentEmail == nil {
		m.log.Warn("correspondent payout without correspondent contact", "diligence_id", e.DiligenceID)
		return nil
	}
	return m.queue(ctx, *c.correspondentEmail, deref(c.correspondentName), TemplatePayoutConfirmed, Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
	})
}

func (m *Module) handleProofSubmitted(ctx context.Context, e events.ProofSubmitted) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	return m.queue(ctx, c.clientEmail, c.clientName, TemplateProofReceived, Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
	})
}

func (m *Module) handleProofVerified(ctx context.Context, e events.ProofVerified) error {
	c, err := m.diligenceContacts(ctx, e.DiligenceID)
	if err != nil {
		return err
	}
	approved := e.Approved
	return m.queue(ctx, c.clientEmail, c.clientName, TemplateProofReviewed, Payload{
		DiligenceID:    e.DiligenceID.String(),
		DiligenceTitle: c.title,
		Approved:       &approved,
	})
}

func (m *Module) queue(ctx context.Context, email, name, template string, payload Payload) error {
	_, err := m.outbox.Insert(ctx, outbox.InsertParams{
		RecipientEmail: email,
		RecipientName:  name,
		Template:       template,
		Payload:        payload,
	})
	if err != nil {
		m.log.Error("queue notification", "template", template, "error", err)
		return err
	}
	return nil
}

// diligenceContacts resolves the client and correspondent mail contacts of a
// diligence in one query.
func (m *Module) diligenceContacts(ctx context.Context, diligenceID uuid.UUID) (contacts, error) {
	var c contacts
	err := m.pool.QueryRow(ctx, `
		SELECT d.title, cu.email, cu.name, pu.email, pu.name
		FROM diligences d
		JOIN users cu ON cu.id = d.client_id
		LEFT JOIN correspondent_profiles cp ON cp.id = d.correspondent_id
		LEFT JOIN users pu ON pu.id = cp.user_id
		WHERE d.id = $1
	`, diligenceID).Scan(&c.title, &c.clientEmail, &c.clientName, &c.correspondentEmail, &c.correspondentName)
	if errors.Is(err, pgx.ErrNoRows) {
		return contacts{}, fmt.Errorf("diligence %s not found", diligenceID)
	}
	if err != nil {
		return contacts{}, err
	}
	return c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
