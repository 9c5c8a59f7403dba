package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/email"
	"jurisconnect_backend/internal/notification"
	"jurisconnect_backend/internal/notification/outbox"
	"jurisconnect_backend/platform/config"
	"jurisconnect_backend/platform/logger"
)

// maxSendAttempts before an outbox row is parked as failed.
const maxSendAttempts = 5

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	outbox *outbox.Repository
	sender email.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		outbox: outbox.New(pool),
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	if err := w.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := w.send(ctx, rec); err != nil {
		w.log.Warn("notification send failed",
			"outbox_id", rec.ID, "template", rec.Template, "attempts", rec.Attempts+1, "error", err)
		if rec.Attempts+1 >= maxSendAttempts {
			_ = w.outbox.MarkFailed(ctx, rec.ID, err.Error())
			return nil
		}
		msg := err.Error()
		_ = w.outbox.MarkPending(ctx, rec.ID, &msg)
		return nil
	}

	return w.outbox.MarkSucceeded(ctx, rec.ID)
}

func (w *Worker) send(ctx context.Context, rec outbox.Record) error {
	var p notification.Payload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return fmt.Errorf("decode outbox payload: %w", err)
	}

	switch rec.Template {
	case notification.TemplateDiligenceAssigned:
		return w.sender.SendDiligenceAssignedEmail(ctx, rec.RecipientEmail, rec.RecipientName, p.DiligenceTitle)
	case notification.TemplateStatusReverted:
		return w.sender.SendStatusRevertedEmail(ctx, rec.RecipientEmail, rec.RecipientName,
			p.DiligenceTitle, p.PreviousStatus, p.NewStatus, p.Reason)
	case notification.TemplatePaymentConfirmed:
		return w.sender.SendPaymentConfirmedEmail(ctx, rec.RecipientEmail, rec.RecipientName, p.DiligenceTitle)
	case notification.TemplatePayoutConfirmed:
		return w.sender.SendPayoutConfirmedEmail(ctx, rec.RecipientEmail, rec.RecipientName, p.DiligenceTitle)
	case notification.TemplateProofReceived:
		return w.sender.SendProofReceivedEmail(ctx, rec.RecipientEmail, rec.RecipientName, p.DiligenceTitle)
	case notification.TemplateProofReviewed:
		approved := p.Approved != nil && *p.Approved
		return w.sender.SendProofReviewedEmail(ctx, rec.RecipientEmail, rec.RecipientName, p.DiligenceTitle, approved)
	default:
		return fmt.Errorf("unknown notification template %q", rec.Template)
	}
}
