package middleware

import (
	"context"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter   ratelimit.Limiter
	limit     int
	window    time.Duration
	whitelist map[int64]struct{}
	log       *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
// Whitelisted user IDs bypass the limiter entirely.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, limit int, window time.Duration, whitelist []int64, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	allowed := make(map[int64]struct{}, len(whitelist))
	for _, id := range whitelist {
		allowed[id] = struct{}{}
	}

	return &RateLimitMiddleware{
		limiter:   limiter,
		limit:     limit,
		window:    window,
		whitelist: allowed,
		log:       log,
	}
}

// Handle returns a telebot middleware that enforces per-user rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.limit <= 0 {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if _, ok := m.whitelist[userID]; ok {
			return next(c)
		}

		result, err := m.limiter.Check(context.Background(), userID, m.limit, m.window)
		if err != nil {
			// limiter trouble must not take the bot down
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
			return c.Send("Too many requests. Give me a few seconds and try again.")
		}

		return next(c)
	}
}
