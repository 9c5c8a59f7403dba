package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"jurisconnect_backend/internal/notification/outbox"
	"jurisconnect_backend/platform/config"
	"jurisconnect_backend/platform/logger"
)

// dispatchParallelism bounds concurrent enqueues per claimed batch.
const dispatchParallelism = 8

// NotificationOutboxDispatcher polls the outbox and enqueues due rows as
// asynq tasks. Enqueue failures put the row back to pending so the next
// poll retries it.
type NotificationOutboxDispatcher struct {
	client *asynq.Client
	queue  string
	repo   *outbox.Repository
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
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

	return &NotificationOutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, 50)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(dispatchParallelism)
		for _, rec := range records {
			rec := rec
			g.Go(func() error {
				d.dispatch(gctx, rec)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (d *NotificationOutboxDispatcher) dispatch(ctx context.Context, rec outbox.Record) {
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID: rec.ID.String(),
	})
	if err != nil {
		msg := err.Error()
		_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		return
	}

	if _, err := d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue)); err != nil {
		msg := err.Error()
		_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		d.log.Warn("outbox enqueue failed", "outbox_id", rec.ID, "error", err)
	}
}
