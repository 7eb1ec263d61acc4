package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/bot/keyboard"
	"github.com/ratespy/ratespy-bot/internal/domain"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/tracker"
)

// NewStartHandler onboards the sender. A first /start creates the settings
// record with defaults; a repeated /start refreshes the stored rate instead,
// and the welcome wording tells the two cases apart.
func NewStartHandler(service *tracker.Service, kb *keyboard.Builder, locales *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		t := translatorFor(locales, c)
		sender := c.Sender()

		created, err := service.Register(context.Background(), sender.ID, displayName(sender), sender.LanguageCode)
		if err != nil {
			log.Error("onboarding failed", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send(t.T("welcome.failed"))
		}

		var welcome string
		if created {
			welcome = t.Tf("welcome.created", displayName(sender), domain.DefaultCurrency)
		} else {
			welcome = t.Tf("welcome.existing", displayName(sender))
		}

		return c.Send(welcome, kb.MainMenu(t))
	}
}
