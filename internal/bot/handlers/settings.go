package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/dialog"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/tracker"
)

// NewFieldPromptHandler starts a two-step settings exchange: it marks the
// dialog step that the next free-text message completes and sends the prompt.
func NewFieldPromptHandler(dialogs dialog.Store, step dialog.Dialog, promptKey string, locales *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("prompt handler invoked without sender")
			return nil
		}

		t := translatorFor(locales, c)
		userID := c.Sender().ID

		if err := dialogs.Set(context.Background(), userID, step); err != nil {
			log.Error("failed to open dialog", slog.Int64("user_id", userID), slog.String("dialog", string(step)), slog.Any("error", err))
			return err
		}

		return c.Send(t.T(promptKey))
	}
}

// NewCurrencyReplyHandler completes the awaiting-currency step. Any non-empty
// code is accepted and uppercased; the dialog closes either way.
func NewCurrencyReplyHandler(service *tracker.Service, dialogs dialog.Store, locales *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		t := translatorFor(locales, c)
		userID := c.Sender().ID

		clearDialog(dialogs, userID, log)

		code := strings.ToUpper(strings.TrimSpace(c.Text()))
		if code == "" {
			return c.Send(t.T("prompt.currency"))
		}

		if err := service.SetCurrency(context.Background(), userID, code); err != nil {
			return err
		}

		return c.Send(t.Tf("confirm.currency", code))
	}
}

// NewIntegerReplyHandler completes an integer-valued settings step. The dialog
// closes on both a stored value and a failed parse, so a stray word does not
// trap the user mid-exchange.
func NewIntegerReplyHandler(
	apply func(ctx context.Context, userID int64, value int) error,
	dialogs dialog.Store,
	confirmKey string,
	locales *i18n.Manager,
	log *slog.Logger,
) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		t := translatorFor(locales, c)
		userID := c.Sender().ID

		clearDialog(dialogs, userID, log)

		value, err := strconv.Atoi(strings.TrimSpace(c.Text()))
		if err != nil {
			return c.Send(t.T("error.not_number"))
		}

		if err := apply(context.Background(), userID, value); err != nil {
			return err
		}

		return c.Send(t.Tf(confirmKey, value))
	}
}

func clearDialog(dialogs dialog.Store, userID int64, log *slog.Logger) {
	if err := dialogs.Clear(context.Background(), userID); err != nil {
		log.Error("failed to clear dialog", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
