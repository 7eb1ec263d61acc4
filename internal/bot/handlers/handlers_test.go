package handlers

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/bot/keyboard"
	"github.com/ratespy/ratespy-bot/internal/dialog"
	"github.com/ratespy/ratespy-bot/internal/domain"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/repository"
	"github.com/ratespy/ratespy-bot/internal/tracker"
)

type fakeContext struct {
	telebot.Context

	sender *telebot.User
	text   string
	sent   []interface{}
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Callback() *telebot.Callback { return nil }

func (f *fakeContext) Message() *telebot.Message { return nil }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	text, ok := f.sent[len(f.sent)-1].(string)
	require.True(t, ok, "last reply is not a text message")
	return text
}

type memoryDialogs struct {
	open map[int64]dialog.Dialog
}

func newMemoryDialogs() *memoryDialogs {
	return &memoryDialogs{open: make(map[int64]dialog.Dialog)}
}

func (m *memoryDialogs) Get(_ context.Context, userID int64) (*dialog.UserDialog, error) {
	d, ok := m.open[userID]
	if !ok {
		return nil, dialog.ErrDialogNotFound
	}
	return &dialog.UserDialog{UserID: userID, Dialog: d, UpdatedAt: time.Now()}, nil
}

func (m *memoryDialogs) Set(_ context.Context, userID int64, d dialog.Dialog) error {
	m.open[userID] = d
	return nil
}

func (m *memoryDialogs) Clear(_ context.Context, userID int64) error {
	delete(m.open, userID)
	return nil
}

func (m *memoryDialogs) GetAll(_ context.Context) ([]*dialog.UserDialog, error) {
	all := make([]*dialog.UserDialog, 0, len(m.open))
	for userID, d := range m.open {
		all = append(all, &dialog.UserDialog{UserID: userID, Dialog: d})
	}
	return all, nil
}

type memoryRepo struct {
	users map[int64]*domain.UserSettings
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*domain.UserSettings)}
}

func (r *memoryRepo) Create(_ context.Context, settings *domain.UserSettings) error {
	if _, ok := r.users[settings.UserID]; ok {
		return repository.ErrUserExists
	}
	clone := *settings
	r.users[settings.UserID] = &clone
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, userID int64) (*domain.UserSettings, error) {
	settings, ok := r.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *settings
	return &clone, nil
}

func (r *memoryRepo) UpdateField(_ context.Context, userID int64, field repository.Field, value any) error {
	settings, ok := r.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	switch field {
	case repository.FieldCurrency:
		settings.Currency = value.(string)
	case repository.FieldInterval:
		settings.IntervalSeconds = value.(int)
	case repository.FieldThreshold:
		settings.ThresholdPercent = value.(int)
	case repository.FieldLastRate:
		rate := value.(float64)
		settings.LastRate = &rate
	default:
		return repository.ErrUnknownField
	}
	return nil
}

func (r *memoryRepo) TouchLastSeen(_ context.Context, _ int64) error { return nil }

func (r *memoryRepo) DueForNotification(_ context.Context, _ time.Time) ([]*domain.UserSettings, error) {
	return nil, nil
}

func (r *memoryRepo) MarkNotified(_ context.Context, _ int64, _ float64) error { return nil }

type stubQuote struct {
	rate float64
	err  error
}

func (q *stubQuote) Spot(_ context.Context, _ string) (float64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.rate, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadLocales(t *testing.T) *i18n.Manager {
	t.Helper()

	locales, err := i18n.LoadFromDir("../../i18n/locales", "en")
	require.NoError(t, err)
	return locales
}

func newContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender: &telebot.User{ID: userID, FirstName: "Alice", LanguageCode: "en"},
		text:   text,
	}
}

func TestSettingsDialog_FullExchange(t *testing.T) {
	repo := newMemoryRepo()
	dialogs := newMemoryDialogs()
	locales := loadLocales(t)
	log := testLogger()
	service := tracker.NewService(repo, &stubQuote{rate: 50000}, nil, log)
	kb := keyboard.NewBuilder(log)

	start := NewStartHandler(service, kb, locales, log)
	intervalPrompt := NewFieldPromptHandler(dialogs, dialog.DialogAwaitingInterval, "prompt.interval", locales, log)
	intervalReply := NewIntegerReplyHandler(service.SetInterval, dialogs, "confirm.interval", locales, log)
	thresholdPrompt := NewFieldPromptHandler(dialogs, dialog.DialogAwaitingThreshold, "prompt.threshold", locales, log)
	thresholdReply := NewIntegerReplyHandler(service.SetThreshold, dialogs, "confirm.threshold", locales, log)

	const userID int64 = 42

	// First contact creates the record with defaults.
	c := newContext(userID, "/start")
	require.NoError(t, start(c))
	assert.Contains(t, c.lastText(t), "Alice")

	stored, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCurrency, stored.Currency)

	// /set_interval opens the dialog and prompts.
	c = newContext(userID, "/set_interval")
	require.NoError(t, intervalPrompt(c))
	current, err := dialog.Current(context.Background(), dialogs, userID)
	require.NoError(t, err)
	assert.Equal(t, dialog.DialogAwaitingInterval, current)

	// "120" completes it: value stored exactly, dialog closed.
	c = newContext(userID, "120")
	require.NoError(t, intervalReply(c))
	assert.Contains(t, c.lastText(t), "120")

	stored, err = repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.IntervalSeconds)

	current, err = dialog.Current(context.Background(), dialogs, userID)
	require.NoError(t, err)
	assert.Equal(t, dialog.DialogNone, current)

	// A non-numeric threshold reply closes the dialog without storing anything.
	c = newContext(userID, "/set_threshold")
	require.NoError(t, thresholdPrompt(c))

	c = newContext(userID, "abc")
	require.NoError(t, thresholdReply(c))
	assert.Contains(t, c.lastText(t), "whole number")

	stored, err = repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultThresholdPercent, stored.ThresholdPercent)

	current, err = dialog.Current(context.Background(), dialogs, userID)
	require.NoError(t, err)
	assert.Equal(t, dialog.DialogNone, current)
}

func TestStartHandler_RepeatRefreshesRate(t *testing.T) {
	repo := newMemoryRepo()
	locales := loadLocales(t)
	log := testLogger()
	service := tracker.NewService(repo, &stubQuote{rate: 64123.45}, nil, log)
	start := NewStartHandler(service, keyboard.NewBuilder(log), locales, log)

	const userID int64 = 7

	require.NoError(t, start(newContext(userID, "/start")))

	c := newContext(userID, "/start")
	require.NoError(t, start(c))
	assert.Contains(t, c.lastText(t), "back")

	stored, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRate)
	assert.InDelta(t, 64123.45, *stored.LastRate, 0.001)
}

func TestCurrencyReplyHandler_Uppercases(t *testing.T) {
	repo := newMemoryRepo()
	dialogs := newMemoryDialogs()
	locales := loadLocales(t)
	log := testLogger()
	service := tracker.NewService(repo, &stubQuote{}, nil, log)
	start := NewStartHandler(service, keyboard.NewBuilder(log), locales, log)
	reply := NewCurrencyReplyHandler(service, dialogs, locales, log)

	const userID int64 = 9
	require.NoError(t, start(newContext(userID, "/start")))
	require.NoError(t, dialogs.Set(context.Background(), userID, dialog.DialogAwaitingCurrency))

	c := newContext(userID, "doge")
	require.NoError(t, reply(c))
	assert.Contains(t, c.lastText(t), "DOGE")

	stored, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "DOGE", stored.Currency)
}

func TestCancelHandler(t *testing.T) {
	dialogs := newMemoryDialogs()
	locales := loadLocales(t)
	log := testLogger()
	cancel := NewCancelHandler(dialogs, keyboard.NewBuilder(log), locales, log)

	const userID int64 = 11

	// Nothing open yet.
	c := newContext(userID, "/cancel")
	require.NoError(t, cancel(c))
	assert.Contains(t, c.lastText(t), "nothing")

	require.NoError(t, dialogs.Set(context.Background(), userID, dialog.DialogAwaitingCurrency))

	c = newContext(userID, "/cancel")
	require.NoError(t, cancel(c))
	assert.Contains(t, c.lastText(t), "cancelled")

	current, err := dialog.Current(context.Background(), dialogs, userID)
	require.NoError(t, err)
	assert.Equal(t, dialog.DialogNone, current)
}

func TestRateHandler_RepliesWithStoredRate(t *testing.T) {
	repo := newMemoryRepo()
	locales := loadLocales(t)
	log := testLogger()
	service := tracker.NewService(repo, &stubQuote{rate: 123.45}, nil, log)
	start := NewStartHandler(service, keyboard.NewBuilder(log), locales, log)
	rate := NewRateHandler(service, locales, log)

	const userID int64 = 13
	require.NoError(t, start(newContext(userID, "/start")))

	c := newContext(userID, "/get_rate")
	require.NoError(t, rate(c))
	reply := c.lastText(t)
	assert.Contains(t, reply, "BTC")
	assert.Contains(t, reply, "123.45")
	assert.Contains(t, reply, "300")
	assert.Contains(t, reply, "50")

	stored, err := repo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRate)
	assert.InDelta(t, 123.45, *stored.LastRate, 0.001)
}

func TestRateHandler_QuoteFailureStillShowsSettings(t *testing.T) {
	repo := newMemoryRepo()
	locales := loadLocales(t)
	log := testLogger()
	quotes := &stubQuote{rate: 123.45}
	service := tracker.NewService(repo, quotes, nil, log)
	start := NewStartHandler(service, keyboard.NewBuilder(log), locales, log)
	rate := NewRateHandler(service, locales, log)

	const userID int64 = 14
	require.NoError(t, start(newContext(userID, "/start")))
	require.NoError(t, rate(newContext(userID, "/get_rate")))

	// Coinbase goes down: the user gets the soft note plus the summary with
	// the previously stored rate.
	quotes.err = errors.New("coinbase down")

	c := newContext(userID, "/get_rate")
	require.NoError(t, rate(c))
	require.Len(t, c.sent, 2)
	note, ok := c.sent[0].(string)
	require.True(t, ok)
	assert.Contains(t, note, "could not fetch")
	summary := c.lastText(t)
	assert.Contains(t, summary, "BTC")
	assert.Contains(t, summary, "123.45")
	assert.Contains(t, summary, "300")
}

func TestRateHandler_QuoteFailureWithoutBaselineSendsOnlyNote(t *testing.T) {
	repo := newMemoryRepo()
	locales := loadLocales(t)
	log := testLogger()
	quotes := &stubQuote{err: errors.New("coinbase down")}
	service := tracker.NewService(repo, quotes, nil, log)
	start := NewStartHandler(service, keyboard.NewBuilder(log), locales, log)
	rate := NewRateHandler(service, locales, log)

	const userID int64 = 15
	require.NoError(t, start(newContext(userID, "/start")))

	c := newContext(userID, "/get_rate")
	require.NoError(t, rate(c))
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.lastText(t), "could not fetch")
}
