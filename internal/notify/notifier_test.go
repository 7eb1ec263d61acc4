package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/domain"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/repository"
)

type fakeRepo struct {
	due      []*domain.UserSettings
	notified map[int64]float64
}

func newFakeRepo(due ...*domain.UserSettings) *fakeRepo {
	return &fakeRepo{due: due, notified: make(map[int64]float64)}
}

func (r *fakeRepo) Create(_ context.Context, _ *domain.UserSettings) error { return nil }

func (r *fakeRepo) FindByID(_ context.Context, _ int64) (*domain.UserSettings, error) {
	return nil, nil
}

func (r *fakeRepo) UpdateField(_ context.Context, _ int64, _ repository.Field, _ any) error {
	return nil
}

func (r *fakeRepo) TouchLastSeen(_ context.Context, _ int64) error { return nil }

func (r *fakeRepo) DueForNotification(_ context.Context, _ time.Time) ([]*domain.UserSettings, error) {
	return r.due, nil
}

func (r *fakeRepo) MarkNotified(_ context.Context, userID int64, rate float64) error {
	r.notified[userID] = rate
	return nil
}

type fakeQuote struct {
	rates map[string]float64
	err   error
}

func (q *fakeQuote) Spot(_ context.Context, code string) (float64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.rates[code], nil
}

type fakeSender struct {
	sent map[int64]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[int64]string)}
}

func (s *fakeSender) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	var id int64
	if chatID, ok := to.(telebot.ChatID); ok {
		id = int64(chatID)
	}
	if text, ok := what.(string); ok {
		s.sent[id] = text
	}
	return &telebot.Message{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadLocales(t *testing.T) *i18n.Manager {
	t.Helper()

	locales, err := i18n.LoadFromDir("../i18n/locales", "en")
	require.NoError(t, err)
	return locales
}

func userWithRate(userID int64, currency string, threshold int, lastRate float64) *domain.UserSettings {
	settings := domain.NewUserSettings(userID, "tester", "en")
	settings.Currency = currency
	settings.ThresholdPercent = threshold
	settings.LastRate = &lastRate
	return settings
}

func TestRun_AlertsWhenThresholdExceeded(t *testing.T) {
	repo := newFakeRepo(userWithRate(1, "BTC", 10, 100))
	quotes := &fakeQuote{rates: map[string]float64{"BTC": 120}}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Contains(t, sender.sent[1], "BTC")
	assert.InDelta(t, 120, repo.notified[1], 0.001)
}

func TestRun_SkipsSmallMoves(t *testing.T) {
	repo := newFakeRepo(userWithRate(1, "BTC", 50, 100))
	quotes := &fakeQuote{rates: map[string]float64{"BTC": 110}}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Empty(t, sender.sent)
	// The refreshed rate is still recorded as the new baseline.
	assert.InDelta(t, 110, repo.notified[1], 0.001)
}

func TestRun_AlertsOnDrop(t *testing.T) {
	repo := newFakeRepo(userWithRate(2, "ETH", 10, 200))
	quotes := &fakeQuote{rates: map[string]float64{"ETH": 150}}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Contains(t, sender.sent[2], "ETH")
}

func TestRun_NoBaselineNoAlert(t *testing.T) {
	settings := domain.NewUserSettings(3, "fresh", "en")
	repo := newFakeRepo(settings)
	quotes := &fakeQuote{rates: map[string]float64{"BTC": 100}}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Empty(t, sender.sent)
	assert.InDelta(t, 100, repo.notified[3], 0.001)
}

func TestRun_AlertUsesStoredLanguage(t *testing.T) {
	user := userWithRate(4, "BTC", 10, 100)
	user.Language = "ru"
	repo := newFakeRepo(user)
	quotes := &fakeQuote{rates: map[string]float64{"BTC": 120}}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Contains(t, sender.sent[4], "изменился")
}

func TestRun_QuoteFailureDoesNotAbortSweep(t *testing.T) {
	first := userWithRate(1, "BTC", 10, 100)
	second := userWithRate(2, "ETH", 10, 100)
	repo := newFakeRepo(first, second)

	quotes := &fakeQuote{err: errors.New("upstream down")}
	sender := newFakeSender()

	notifier := NewNotifier(repo, quotes, sender, loadLocales(t), testLogger())
	require.NoError(t, notifier.Run(context.Background()))

	assert.Empty(t, repo.notified)
}
