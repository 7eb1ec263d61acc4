package bot

import (
	"context"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/bot/handlers"
	"github.com/ratespy/ratespy-bot/internal/dialog"
)

// Dispatcher routes free-text messages to the handler waiting for them.
type Dispatcher struct {
	dialogs        dialog.Store
	dialogHandlers map[dialog.Dialog]handlers.Handler
	log            *slog.Logger
	mu             sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(dialogs dialog.Store, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		dialogs:        dialogs,
		dialogHandlers: make(map[dialog.Dialog]handlers.Handler),
		log:            log,
	}
}

// RegisterDialogHandler registers a handler for the provided dialog step.
func (d *Dispatcher) RegisterDialogHandler(step dialog.Dialog, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialogHandlers[step] = h
}

// Resolve returns the handler waiting for the user's free text, or nil when
// no dialog is open or no handler matches the open step. The dialog store is
// read exactly once per update.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, error) {
	if c == nil || c.Sender() == nil {
		d.log.Warn("cannot dispatch without sender information")
		return nil, nil
	}

	current, err := dialog.Current(context.Background(), d.dialogs, c.Sender().ID)
	if err != nil {
		return nil, err
	}

	if current == dialog.DialogNone {
		return nil, nil
	}

	handler := d.getHandler(current)
	if handler == nil {
		d.log.Warn("no handler registered for dialog", "dialog", current, "user_id", c.Sender().ID)
	}

	return handler, nil
}

func (d *Dispatcher) getHandler(step dialog.Dialog) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dialogHandlers[step]
}
