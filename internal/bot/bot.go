// Package bot hosts the Telegram transport: routing, dialog dispatch and the
// handler wiring for every command the bot understands.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/ratespy/ratespy-bot/internal/bot/handlers"
	"github.com/ratespy/ratespy-bot/internal/bot/keyboard"
	"github.com/ratespy/ratespy-bot/internal/dialog"
	errors "github.com/ratespy/ratespy-bot/internal/errors"
	"github.com/ratespy/ratespy-bot/internal/forecast"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/idempotency"
	"github.com/ratespy/ratespy-bot/internal/middleware"
	"github.com/ratespy/ratespy-bot/internal/tracker"
	"github.com/ratespy/ratespy-bot/pkg/config"
)

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot            *telebot.Bot
	log                *slog.Logger
	cfg                config.Config
	dialogs            dialog.Store
	rateLimitMw        *middleware.RateLimitMiddleware
	router             *Router
	dispatcher         *Dispatcher
	keyboard           *keyboard.Builder
	errHandler         *errors.Handler
	idempotencyManager idempotency.Manager
}

// New builds a telegram bot instance configured according to the application settings.
func New(
	cfg config.Config,
	log *slog.Logger,
	dialogs dialog.Store,
	idempotencyManager idempotency.Manager,
	rateLimitMw *middleware.RateLimitMiddleware,
	trackerService *tracker.Service,
	forecastService *forecast.Service,
	locales *i18n.Manager,
) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	kb := keyboard.NewBuilder(log)
	dispatcher := NewDispatcher(dialogs, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:            tb,
		log:                log,
		cfg:                cfg,
		dialogs:            dialogs,
		rateLimitMw:        rateLimitMw,
		router:             router,
		dispatcher:         dispatcher,
		keyboard:           kb,
		errHandler:         errHandler,
		idempotencyManager: idempotencyManager,
	}

	b.setupRouter(trackerService, forecastService, locales)

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as
// health checks and the alert notifier.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(trackerService *tracker.Service, forecastService *forecast.Service, locales *i18n.Manager) {
	if b.router == nil {
		return
	}

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.idempotencyManager, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(LastSeenMiddleware(trackerService))
	b.router.Use(middleware.Metrics)

	startHandler := handlers.NewStartHandler(trackerService, b.keyboard, locales, b.log)
	cancelHandler := handlers.NewCancelHandler(b.dialogs, b.keyboard, locales, b.log)

	currencyPrompt := handlers.NewFieldPromptHandler(b.dialogs, dialog.DialogAwaitingCurrency, "prompt.currency", locales, b.log)
	intervalPrompt := handlers.NewFieldPromptHandler(b.dialogs, dialog.DialogAwaitingInterval, "prompt.interval", locales, b.log)
	thresholdPrompt := handlers.NewFieldPromptHandler(b.dialogs, dialog.DialogAwaitingThreshold, "prompt.threshold", locales, b.log)

	rateHandler := handlers.NewRateHandler(trackerService, locales, b.log)
	forecastHandler := handlers.NewForecastHandler(trackerService, forecastService, b.cfg.Forecast.HorizonDays, locales, b.log)

	b.router.RegisterCommand(CommandStart, startHandler)
	b.router.RegisterCommand(CommandCancel, cancelHandler)
	b.router.RegisterCommand(CommandSetCurrency, currencyPrompt)
	b.router.RegisterCommand(CommandSetInterval, intervalPrompt)
	b.router.RegisterCommand(CommandSetThreshold, thresholdPrompt)
	b.router.RegisterCommand(CommandGetRate, rateHandler)
	b.router.RegisterCommand(CommandForecast, forecastHandler)

	b.router.RegisterCallback(CallbackMenuCurrency, handlers.CallbackHandler(currencyPrompt))
	b.router.RegisterCallback(CallbackMenuInterval, handlers.CallbackHandler(intervalPrompt))
	b.router.RegisterCallback(CallbackMenuThreshold, handlers.CallbackHandler(thresholdPrompt))
	b.router.RegisterCallback(CallbackMenuRate, handlers.CallbackHandler(rateHandler))
	b.router.RegisterCallback(CallbackMenuForecast, handlers.CallbackHandler(forecastHandler))

	b.dispatcher.RegisterDialogHandler(dialog.DialogAwaitingCurrency,
		handlers.NewCurrencyReplyHandler(trackerService, b.dialogs, locales, b.log))
	b.dispatcher.RegisterDialogHandler(dialog.DialogAwaitingInterval,
		handlers.NewIntegerReplyHandler(trackerService.SetInterval, b.dialogs, "confirm.interval", locales, b.log))
	b.dispatcher.RegisterDialogHandler(dialog.DialogAwaitingThreshold,
		handlers.NewIntegerReplyHandler(trackerService.SetThreshold, b.dialogs, "confirm.threshold", locales, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
