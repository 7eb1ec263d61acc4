package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager enqueues sweep tasks outside the cron schedule, e.g. the catch-up
// sweep at startup so alerts do not wait for the first cron tick.
type Manager interface {
	EnqueueRateRefresh(ctx context.Context) error
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

// EnqueueRateRefresh queues one rate-refresh sweep for immediate processing.
func (m *manager) EnqueueRateRefresh(ctx context.Context) error {
	task, err := NewRateRefreshTask()
	if err != nil {
		return err
	}

	info, err := m.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	m.log.Info("enqueued rate refresh sweep",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)

	return nil
}

func (m *manager) Close() error {
	return m.client.Close()
}
