package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tripmind "github.com/set-night/tripmind"
	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/handler"
	"github.com/set-night/tripmind/internal/middleware"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/set-night/tripmind/internal/repository"
	"github.com/set-night/tripmind/internal/service"
	"github.com/set-night/tripmind/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(tripmind.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	version, err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS)
	if err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied", "version", version)

	chatStore := repository.NewChatStore(pool)
	plannerClient := planner.NewClient(cfg.PlannerBaseURL)

	// Engines are created per chat once updates arrive, after b is set
	var b *bot.Bot
	chats := service.NewChatService(plannerClient, chatStore, service.ChatsConfig{
		Streaming:  cfg.StreamingEnabled,
		RevealTick: cfg.RevealTick,
		NewListener: func(chatID int64) service.Listener {
			return telegram.NewPresenter(b, chatID, logger)
		},
		Logger: logger,
	})

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Panics are reported once the admin log sink exists
	var tgLogger *telegram.TelegramLogger

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(func(err error, where string) { tgLogger.LogError(err, where) }),
			middleware.Logging(),
			middleware.RateLimit(chatStore),
			middleware.ChatLoader(chats),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil || update.Message == nil || update.Message.Text == "" {
				return
			}
			h.HandleText(ctx, b, update)
		}),
	}

	b, err = bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Initialize telegram logger
	tgLogger = telegram.NewTelegramLogger(b, cfg)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Chats:       chats,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})

	// Register all handlers
	h.Register()

	// Evict idle chat engines and expire old rate-limit windows
	go func() {
		ticker := time.NewTicker(config.EngineSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := chats.Sweep(config.EngineIdleTimeout); n > 0 {
					slog.Info("idle chat engines closed", "count", n, "live", chats.Len())
				}
				if _, err := chatStore.CleanupRateLimits(context.Background(), config.RateLimitRetention); err != nil {
					slog.Error("cleanup rate limits", "error", err)
				}
			}
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID, "planner", plannerClient.BaseURL(), "admins", cfg.AdminIDsString())
	b.Start(ctx)

	// Graceful shutdown
	h.Wait()
	chats.CloseAll()
	slog.Info("bot stopped gracefully")
}
