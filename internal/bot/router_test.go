package bot

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

	"github.com/ratespy/ratespy-bot/internal/bot/handlers"
	"github.com/ratespy/ratespy-bot/internal/dialog"
)

type routeContext struct {
	telebot.Context

	sender *telebot.User
	text   string
	sent   []interface{}
}

func (r *routeContext) Sender() *telebot.User { return r.sender }

func (r *routeContext) Text() string { return r.text }

func (r *routeContext) Callback() *telebot.Callback { return nil }

func (r *routeContext) Send(what interface{}, _ ...interface{}) error {
	r.sent = append(r.sent, what)
	return nil
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
	return nil, nil
}

func routerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouteContext(userID int64, text string) *routeContext {
	return &routeContext{
		sender: &telebot.User{ID: userID, FirstName: "Alice", LanguageCode: "en"},
		text:   text,
	}
}

func TestRouter_CommandOverridesOpenDialog(t *testing.T) {
	dialogs := newMemoryDialogs()
	log := routerLogger()
	dispatcher := NewDispatcher(dialogs, log)
	router := NewRouter(dispatcher, log)

	var commandHits, dialogHits int
	router.RegisterCommand(CommandGetRate, func(telebot.Context) error {
		commandHits++
		return nil
	})
	dispatcher.RegisterDialogHandler(dialog.DialogAwaitingCurrency, func(telebot.Context) error {
		dialogHits++
		return nil
	})

	const userID int64 = 7
	require.NoError(t, dialogs.Set(context.Background(), userID, dialog.DialogAwaitingCurrency))

	require.NoError(t, router.Route(newRouteContext(userID, CommandGetRate)))
	assert.Equal(t, 1, commandHits)
	assert.Equal(t, 0, dialogHits)
}

func TestRouter_FreeTextReachesOpenDialog(t *testing.T) {
	dialogs := newMemoryDialogs()
	log := routerLogger()
	dispatcher := NewDispatcher(dialogs, log)
	router := NewRouter(dispatcher, log)

	var got string
	dispatcher.RegisterDialogHandler(dialog.DialogAwaitingCurrency, func(c telebot.Context) error {
		got = c.Text()
		return nil
	})

	const userID int64 = 8
	require.NoError(t, dialogs.Set(context.Background(), userID, dialog.DialogAwaitingCurrency))

	require.NoError(t, router.Route(newRouteContext(userID, "doge")))
	assert.Equal(t, "doge", got)
}

func TestRouter_UntaggedTextWithoutDialogIsNoop(t *testing.T) {
	dialogs := newMemoryDialogs()
	log := routerLogger()
	dispatcher := NewDispatcher(dialogs, log)
	router := NewRouter(dispatcher, log)

	var dialogHits int
	dispatcher.RegisterDialogHandler(dialog.DialogAwaitingCurrency, func(telebot.Context) error {
		dialogHits++
		return nil
	})

	c := newRouteContext(9, "hello there")
	require.NoError(t, router.Route(c))
	assert.Equal(t, 0, dialogHits)
	assert.Empty(t, c.sent)
}

func TestRouter_DialogCompletionRunsMiddlewareChain(t *testing.T) {
	dialogs := newMemoryDialogs()
	log := routerLogger()
	dispatcher := NewDispatcher(dialogs, log)
	router := NewRouter(dispatcher, log)

	var middlewareHits int
	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			middlewareHits++
			if err := next(c); err != nil {
				return c.Send("Something went wrong. Please try again later")
			}
			return nil
		}
	})

	dispatcher.RegisterDialogHandler(dialog.DialogAwaitingCurrency, func(telebot.Context) error {
		return errors.New("db write failed")
	})

	const userID int64 = 10
	require.NoError(t, dialogs.Set(context.Background(), userID, dialog.DialogAwaitingCurrency))

	c := newRouteContext(userID, "doge")
	require.NoError(t, router.Route(c))
	assert.Equal(t, 1, middlewareHits)
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0], "went wrong")
}
