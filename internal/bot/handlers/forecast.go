package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/forecast"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/tracker"
)

// NewForecastHandler builds a price projection for the user's tracked currency
// and sends the rendered chart with a caption. The chart file is complete
// before the reply goes out.
func NewForecastHandler(service *tracker.Service, forecasts *forecast.Service, horizonDays int, locales *i18n.Manager, log *slog.Logger) Handler {
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

		settings, err := service.Settings(ctx, userID)
		if err != nil {
			log.Error("failed to load settings for forecast", slog.Int64("user_id", userID), slog.Any("error", err))
			return c.Send(t.T("forecast.failed"))
		}

		if err := c.Send(t.T("forecast.working")); err != nil {
			log.Warn("failed to send progress note", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		result, err := forecasts.Forecast(ctx, settings.Currency+"-USD")
		if err != nil {
			log.Error("forecast failed", slog.Int64("user_id", userID), slog.String("currency", settings.Currency), slog.Any("error", err))
			return c.Send(t.T("forecast.failed"))
		}

		trendKey := "forecast.trend_down"
		if result.Trend == forecast.TrendUp {
			trendKey = "forecast.trend_up"
		}

		photo := &telebot.Photo{
			File:    telebot.FromDisk(result.ChartPath),
			Caption: t.Tf("forecast.caption", settings.Currency, horizonDays, result.Predicted, t.T(trendKey)),
		}

		return c.Send(photo)
	}
}
