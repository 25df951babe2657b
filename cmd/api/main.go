package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/profile-support/internal/api/http"
	"github.com/spec-kit/profile-support/internal/api/http/handlers"
	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/config"
	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/events"
	"github.com/spec-kit/profile-support/internal/observability"
	"github.com/spec-kit/profile-support/internal/persistence"
	"github.com/spec-kit/profile-support/internal/repository"
	"github.com/spec-kit/profile-support/internal/service"
	"github.com/spec-kit/profile-support/internal/shell"
	"github.com/spec-kit/profile-support/internal/supportchat"
	"github.com/spec-kit/profile-support/internal/supportclient"
	"github.com/spec-kit/profile-support/internal/telegram"
	"github.com/spec-kit/profile-support/internal/toast"
	"github.com/spec-kit/profile-support/internal/worker"
	"github.com/spec-kit/profile-support/migrations"
	"github.com/spec-kit/profile-support/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var messageRepo repository.SupportMessageRepository
	if pg.Enabled() {
		messageRepo = repository.NewSupportMessageRepository(pg.PoolHandle())
	} else {
		messageRepo = repository.NewMemoryMessageRepository()
	}
	messageRepo = repository.NewCachedMessageRepository(messageRepo, redis.Client, cfg.Redis.CacheTTL(), logger)

	dispatcher := newDispatcher(cfg.NATS, logger)
	if closer, ok := dispatcher.(interface{ Close() }); ok {
		defer closer.Close()
	}

	supportService := service.NewSupportService(service.SupportDependencies{
		MessageRepo: messageRepo,
		AdminKeys:   auth.NewAdminKeyVerifier(cfg.Auth.AdminKey),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	var telegramHandler *handlers.TelegramHandler
	bot := telegram.NewClient(cfg.Telegram)
	if bot.Enabled() && cfg.Telegram.ChatID != "" {
		notifications := service.NewNotificationService(dispatcher, bot, cfg.Telegram.ChatID, logger)
		worker.StartNotificationWorker(notifications, logger)

		botService := service.NewTelegramBotService(supportService, bot, cfg.Telegram.ChatID, cfg.App.Location(), logger)
		telegramHandler = handlers.NewTelegramHandler(botService, cfg.Telegram.WebhookSecret, logger)
	} else {
		logger.Info("telegram bot disabled")
	}

	registry := shell.NewRegistry(ctx, newShellFactory(cfg, logger, metrics), cfg.Auth.SessionTTL(), logger, metrics)
	defer registry.Close()
	worker.StartSessionSweeper(ctx, registry, logger)

	tokens := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL())
	sessions := auth.NewSessionMiddleware(tokens, registry, cfg.Auth.SessionCookie, cfg.App.Env == "production")

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		Views:                 web.NewViewEngine(),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Support:  handlers.NewSupportHandler(supportService),
		Telegram: telegramHandler,
		App:      handlers.NewAppHandler(cfg.App.Location(), cfg.Support.PollInterval(), logger),
		Sessions: sessions,
		Metrics:  metrics.Handler(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("chat_mode", cfg.Support.Mode))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// newDispatcher prefers NATS so several instances share events, and falls
// back to in-process delivery.
func newDispatcher(cfg config.NATSConfig, logger *zap.Logger) events.Dispatcher {
	if cfg.URL == "" {
		return events.NewInMemoryDispatcher(logger)
	}
	dispatcher, err := events.NewNATSDispatcher(cfg.URL, cfg.SubjectPrefix, cfg.QueueGroup, logger)
	if err != nil {
		logger.Warn("nats unavailable; using in-memory events", zap.Error(err))
		return events.NewInMemoryDispatcher(logger)
	}
	return dispatcher
}

func newShellFactory(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) shell.Factory {
	remote := supportclient.New(cfg.Support.EndpointURL, cfg.Support.RequestTimeout())
	initial := domain.Profile{
		Nickname:    cfg.Profile.DefaultNickname,
		Description: cfg.Profile.DefaultDescription,
	}

	return func(ctx context.Context) *shell.Index {
		toasts := toast.NewQueue()

		var chat supportchat.Component
		if cfg.Support.Mode == config.SupportModeLocal {
			chat = supportchat.NewEcho(supportchat.DefaultReplyDelay, nil)
		} else {
			chat = supportchat.NewChat(supportchat.Options{
				Remote:   remote,
				Notifier: toasts,
				Logger:   logger,
				Metrics:  metrics,
				Interval: cfg.Support.PollInterval(),
			})
		}

		return shell.NewIndex(shell.Options{
			Context: ctx,
			Initial: initial,
			ShopURL: cfg.Profile.ShopURL,
			Chat:    chat,
			Toasts:  toasts,
		})
	}
}
