package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ratespy/ratespy-bot/internal/jobs"
	"github.com/ratespy/ratespy-bot/internal/notify"
)

// RateRefreshHandler executes one notification sweep per task delivery.
type RateRefreshHandler struct {
	notifier *notify.Notifier
	log      *slog.Logger
}

func NewRateRefreshHandler(notifier *notify.Notifier, log *slog.Logger) *RateRefreshHandler {
	return &RateRefreshHandler{notifier: notifier, log: log}
}

func (h *RateRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.RateRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "rate refresh: failed to decode payload", slog.Any("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	start := time.Now()
	err := h.notifier.Run(ctx)

	if h.log != nil {
		h.log.InfoContext(ctx, "rate refresh sweep finished",
			slog.String("task_type", t.Type()),
			slog.Time("requested_at", payload.RequestedAt),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
	}

	return err
}
