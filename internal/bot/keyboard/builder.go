// Package keyboard renders the inline menus attached to bot replies.
package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/i18n"
)

// Builder creates inline keyboards for bot replies.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// MainMenu builds the persistent menu offered after onboarding.
func (b *Builder) MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: t.T("menu.currency") + " 💱",
				Data: "menu_currency",
			},
			{
				Text: t.T("menu.interval") + " ⏱",
				Data: "menu_interval",
			},
		},
		{
			{
				Text: t.T("menu.threshold") + " 🔔",
				Data: "menu_threshold",
			},
		},
		{
			{
				Text: t.T("menu.rate") + " 💰",
				Data: "menu_rate",
			},
			{
				Text: t.T("menu.forecast") + " 📈",
				Data: "menu_forecast",
			},
		},
	}
	return markup
}
