package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/tracker"
	"github.com/ratespy/ratespy-bot/pkg/metrics"
)

// NewRateHandler fetches the current price for the user's tracked currency,
// persists it and replies with the full settings summary. A quote failure is
// reported softly and the summary still goes out with the last stored rate.
func NewRateHandler(service *tracker.Service, locales *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		t := translatorFor(locales, c)
		userID := c.Sender().ID
		ctx := context.Background()

		refreshFailed := false
		if err := service.RefreshRate(ctx, userID); err != nil {
			log.Error("rate refresh failed", slog.Int64("user_id", userID), slog.Any("error", err))
			metrics.RecordQuoteFailure("coinbase")
			refreshFailed = true
			if err := c.Send(t.T("rate.failed")); err != nil {
				return err
			}
		}

		settings, err := service.Settings(ctx, userID)
		if err != nil {
			log.Error("failed to load settings", slog.Int64("user_id", userID), slog.Any("error", err))
			if refreshFailed {
				return nil
			}
			return c.Send(t.T("rate.failed"))
		}

		if settings.LastRate == nil {
			// Never quoted successfully; the failure note above is all we have.
			return nil
		}

		return c.Send(t.Tf("rate.summary",
			settings.Currency, *settings.LastRate, settings.IntervalSeconds, settings.ThresholdPercent))
	}
}
