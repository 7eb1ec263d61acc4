// Package notify evaluates price movement against each user's alert threshold
// and pushes Telegram messages when the move is large enough.
package notify

import (
	"context"
	"log/slog"
	"math"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/domain"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/quote"
	"github.com/ratespy/ratespy-bot/internal/repository"
)

// Sender pushes messages to a chat. *telebot.Bot satisfies it.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier walks users whose check interval has elapsed, refreshes their rate
// and alerts the ones whose price moved past their threshold.
type Notifier struct {
	repo    repository.UserRepository
	quotes  quote.Client
	sender  Sender
	locales *i18n.Manager
	log     *slog.Logger
}

// NewNotifier builds a Notifier.
func NewNotifier(repo repository.UserRepository, quotes quote.Client, sender Sender, locales *i18n.Manager, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		repo:    repo,
		quotes:  quotes,
		sender:  sender,
		locales: locales,
		log:     log,
	}
}

// Run processes one notification sweep. A failure for one user never aborts
// the rest of the sweep.
func (n *Notifier) Run(ctx context.Context) error {
	due, err := n.repo.DueForNotification(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, user := range due {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := n.process(ctx, user); err != nil {
			n.log.Error("notification sweep failed for user",
				slog.Int64("user_id", user.UserID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

func (n *Notifier) process(ctx context.Context, user *domain.UserSettings) error {
	rate, err := n.quotes.Spot(ctx, user.Currency)
	if err != nil {
		return err
	}

	if user.LastRate != nil && *user.LastRate != 0 {
		changePct := (rate - *user.LastRate) / *user.LastRate * 100

		if math.Abs(changePct) >= float64(user.ThresholdPercent) {
			t := n.locales.Translator(user.Language)
			message := t.Tf("alert.triggered", user.Currency, changePct, rate)

			if _, err := n.sender.Send(telebot.ChatID(user.UserID), message); err != nil {
				return err
			}
		}
	}

	return n.repo.MarkNotified(ctx, user.UserID, rate)
}
