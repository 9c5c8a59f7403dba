// Package email sends transactional mail for the notification outbox. The
// SMTP implementation uses go-mail; callers depend on the Sender interface
// so tests and local environments can plug the noop.
package email

import "context"

type Sender interface {
	SendDiligenceAssignedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error
	SendStatusRevertedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle, previousStatus, newStatus, reason string) error
	SendPaymentConfirmedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error
	SendPayoutConfirmedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error
	SendProofReceivedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string) error
	SendProofReviewedEmail(ctx context.Context, toEmail, recipientName, diligenceTitle string, approved bool) error
}

type NoopSender struct{}

func (NoopSender) SendDiligenceAssignedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendStatusRevertedEmail(context.Context, string, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendPaymentConfirmedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendPayoutConfirmedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendProofReceivedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendProofReviewedEmail(context.Context, string, string, string, bool) error {
	return nil
}
