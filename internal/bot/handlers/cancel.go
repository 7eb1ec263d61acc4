package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/bot/keyboard"
	"github.com/ratespy/ratespy-bot/internal/dialog"
	"github.com/ratespy/ratespy-bot/internal/i18n"
)

// NewCancelHandler abandons the open dialog, if any, without touching settings,
// and brings the user back to the main menu.
func NewCancelHandler(dialogs dialog.Store, kb *keyboard.Builder, locales *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		t := translatorFor(locales, c)
		userID := c.Sender().ID
		ctx := context.Background()

		current, err := dialog.Current(ctx, dialogs, userID)
		if err != nil {
			log.Error("failed to read dialog for cancel", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		if current == dialog.DialogNone {
			return c.Send(t.T("cancel.nothing"), kb.MainMenu(t))
		}

		if err := dialogs.Clear(ctx, userID); err != nil {
			log.Error("failed to clear dialog", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(t.T("cancel.done"), kb.MainMenu(t))
	}
}
