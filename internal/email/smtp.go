package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"jurisconnect_backend/platform/config"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendDiligenceAssignedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error {
	content, err := renderEmailTemplate("diligence_assigned.html", diligenceAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectDiligenceAssigned,
			Heading: "Nova diligência atribuída",
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectDiligenceAssigned, content)
}

func (s *SMTPSender) SendStatusRevertedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle, previousStatus, newStatus, reason string) error {
	content, err := renderEmailTemplate("status_reverted.html", statusRevertedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectStatusReverted,
			Heading: "Status revertido",
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		Reason:         reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectStatusReverted, content)
}

func (s *SMTPSender) SendPaymentConfirmedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error {
	content, err := renderEmailTemplate("payment_confirmed.html", paymentEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectPaymentConfirmed,
			Heading: "Pagamento confirmado",
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentConfirmed, content)
}

func (s *SMTPSender) SendPayoutConfirmedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error {
	content, err := renderEmailTemplate("payout_confirmed.html", paymentEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectPayoutConfirmed,
			Heading: "Repasse confirmado",
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPayoutConfirmed, content)
}

func (s *SMTPSender) SendProofReceivedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error {
	content, err := renderEmailTemplate("proof_received.html", paymentEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectProofReceived,
			Heading: "Comprovante recebido",
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectProofReceived, content)
}

func (s *SMTPSender) SendProofReviewedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string, approved bool) error {
	subject := subjectProofApproved
	heading := "Comprovante aprovado"
	if !approved {
		subject = subjectProofRejected
		heading = "Comprovante recusado"
	}
	content, err := renderEmailTemplate("proof_reviewed.html", proofReviewedEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: heading,
			Name:    recipientName,
		},
		DiligenceTitle: diligenceTitle,
		Approved:       approved,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

var _ Sender = (*SMTPSender)(nil)
