package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ratespy/ratespy-bot/internal/bot"
	"github.com/ratespy/ratespy-bot/internal/database"
	"github.com/ratespy/ratespy-bot/internal/dialog"
	apperrors "github.com/ratespy/ratespy-bot/internal/errors"
	"github.com/ratespy/ratespy-bot/internal/forecast"
	"github.com/ratespy/ratespy-bot/internal/health"
	"github.com/ratespy/ratespy-bot/internal/i18n"
	"github.com/ratespy/ratespy-bot/internal/idempotency"
	"github.com/ratespy/ratespy-bot/internal/jobs"
	jobhandlers "github.com/ratespy/ratespy-bot/internal/jobs/handlers"
	"github.com/ratespy/ratespy-bot/internal/lifecycle"
	"github.com/ratespy/ratespy-bot/internal/middleware"
	"github.com/ratespy/ratespy-bot/internal/notify"
	"github.com/ratespy/ratespy-bot/internal/quote"
	"github.com/ratespy/ratespy-bot/internal/ratelimit"
	"github.com/ratespy/ratespy-bot/internal/repository"
	"github.com/ratespy/ratespy-bot/internal/settingscache"
	"github.com/ratespy/ratespy-bot/internal/tracker"
	"github.com/ratespy/ratespy-bot/pkg/config"
	"github.com/ratespy/ratespy-bot/pkg/graceful"
	"github.com/ratespy/ratespy-bot/pkg/logger"
	"github.com/ratespy/ratespy-bot/pkg/metrics"
	pkgredis "github.com/ratespy/ratespy-bot/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting ratespy bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("log_level", cfg.Logger.Level),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("failed to initialize sentry", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	config.Watch(v, log, func(updated *config.Config) {
		log.Info("configuration reloaded", slog.String("env", updated.AppEnv))
	})

	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := apperrors.WithRetry(ctx, func() error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			return apperrors.NewDatabaseError(pingErr)
		}
		return nil
	}); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(ctx, pkgredis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.PoolTimeout,
		IdleTimeout:  cfg.Redis.IdleTimeout,
	})
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}

	dialogs := dialog.NewRedisStore(redisClient.Client, log, cfg.Dialog.TTL)
	cache := settingscache.NewCache(redisClient.Client)

	idempotencyStore := idempotency.NewRedisStore(redisClient.Client, log)
	idempotencyManager := idempotency.NewManager(idempotencyStore, log)

	var rateLimitMw *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		window, err := time.ParseDuration(cfg.RateLimit.PerUser.Window)
		if err != nil {
			log.Warn("invalid rate limit window, defaulting to a minute", slog.Any("error", err))
			window = time.Minute
		}

		limiter := ratelimit.NewRedisLimiter(redisClient.Client, log)
		rateLimitMw = middleware.NewRateLimitMiddleware(limiter, cfg.RateLimit.PerUser.Limit, window, cfg.RateLimit.Whitelist, log)
	}

	locales, err := i18n.LoadFromDir(cfg.I18n.Dir, cfg.I18n.DefaultLang)
	if err != nil {
		log.Error("failed to load translations", slog.Any("error", err))
		os.Exit(1)
	}

	quotes := quote.NewCoinbaseClient(cfg.Quote.BaseURL, cfg.Quote.Timeout, log)

	userRepo := repository.NewUserRepository(db, log)
	trackerService := tracker.NewService(userRepo, quotes, cache, log)

	history := forecast.NewBinanceHistory(log)
	forecastService := forecast.NewService(history, cfg.Forecast.DaysBack, cfg.Forecast.HorizonDays, cfg.Forecast.ArtifactsDir, log)

	tgBot, err := bot.New(*cfg, log, dialogs, idempotencyManager, rateLimitMw, trackerService, forecastService, locales)
	if err != nil {
		log.Error("failed to initialize telegram bot", slog.Any("error", err))
		os.Exit(1)
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("database", func(context.Context) error { return db.Close() })
	shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	shutdown.Register("telegram", func(context.Context) error {
		tgBot.Stop()
		return nil
	})

	go tgBot.Start()

	notifier := notify.NewNotifier(userRepo, quotes, tgBot.Telebot(), locales, log)

	if cfg.Notify.Enabled {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		jobManager := jobs.NewManager(redisOpt, log)
		shutdown.Register("jobs-manager", func(context.Context) error { return jobManager.Close() })

		scheduler := jobs.NewScheduler(redisOpt, log)
		if err := scheduler.RegisterTasks(cfg.Notify.CronSpec); err != nil {
			log.Error("failed to register scheduled tasks", slog.Any("error", err))
			os.Exit(1)
		}
		scheduler.Run()
		shutdown.Register("jobs-scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})

		worker := jobs.NewWorker(redisOpt, cfg.Notify.WorkerConcurrency, map[string]int{
			jobs.QueueCritical: 6,
			jobs.QueueDefault:  3,
			jobs.QueueLow:      1,
		}, log)
		worker.RegisterHandler(jobs.TaskTypeRateRefresh, jobhandlers.NewRateRefreshHandler(notifier, log))

		go func() {
			if err := worker.Run(); err != nil {
				log.Error("jobs worker stopped", slog.Any("error", err))
			}
		}()
		shutdown.Register("jobs-worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})

		// Catch-up sweep so users overdue for an alert are served now rather
		// than at the next cron tick.
		if err := jobManager.EnqueueRateRefresh(ctx); err != nil {
			log.Error("failed to enqueue startup sweep", slog.Any("error", err))
		}
	}

	collector := metrics.NewDialogCollector(dialogs)
	go collector.Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))
	checker.AddCheck("quotes", health.NewQuoteChecker(quotes))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())
		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}
		w.WriteHeader(status)
		for name, result := range results {
			_, _ = w.Write([]byte(name + ": " + result + "\n"))
		}
	})

	httpHandler := logger.Middleware(middleware.New(log)(mux))
	server := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: httpHandler,
	}, cfg.Server.ShutdownTimeout)

	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("http server terminated", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("ratespy bot stopped")
}
