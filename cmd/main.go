package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/backend/internal/api/handler"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chat"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/commands"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/localization"
	"roomchat/backend/internal/logger"
	"roomchat/backend/internal/preview"
	"roomchat/backend/internal/storage"
	"roomchat/backend/internal/telegram"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: no .env file loaded:", err)
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "roomchat:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFile, cfg.Production)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := setupStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	hubOpts := []chathub.Option{
		chathub.WithTokens(tokens),
		chathub.WithIdleTimeout(cfg.IdleTimeout, config.IdleSweepInterval),
		chathub.WithClientBuffer(cfg.ClientBuffer),
	}

	var previewCache preview.Cache
	if cfg.RedisAddr != "" {
		rdb, err := setupRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()

		events := storage.NewEventStream(rdb, log, cfg.ClientBuffer)
		go events.Run(ctx)
		hubOpts = append(hubOpts, chathub.WithEvents(events))
		previewCache = preview.NewRedisCache(rdb)
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}
	hubOpts = append(hubOpts, chathub.WithPreviews(preview.NewProcessor(cfg.PreviewTimeout, cfg.PreviewCacheTTL, previewCache, log)))

	chatService := chat.NewService(repo, cfg.NudgeInterval)
	registry := commands.DefaultRegistry()
	dispatcher := commands.NewDispatcher(cfg.CommandPrefix, registry, repo, chatService)
	hub := chathub.NewManagerService(repo, chatService, dispatcher, log, hubOpts...)
	go hub.Run(ctx)

	if cfg.TelegramBotToken != "" {
		loc, err := localization.Default()
		if err != nil {
			return err
		}
		bot, err := telegram.NewBotService(cfg.TelegramBotToken, hub, cfg.CommandPrefix, loc, log)
		if err != nil {
			return err
		}
		go bot.Run(ctx)
	}

	h := handler.NewHandler(hub, repo, registry, tokens, cfg.HistoryLimit, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	<-hub.Done()
	if err := repo.CommitChanges(shutdownCtx); err != nil {
		log.Error("final commit failed", zap.Error(err))
	}
	return nil
}

// setupStorage loads the working set from PostgreSQL, or starts empty and
// memory-only without DATABASE_DSN.
func setupStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Service, error) {
	if cfg.DatabaseDSN == "" {
		log.Warn("DATABASE_DSN not set, chat state will not be persisted")
		return storage.NewStorageService(nil, cfg.HistoryLimit), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect PostgreSQL: %w", err)
	}
	persister := storage.NewGormPersister(db)
	if err := persister.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := storage.NewStorageService(persister, cfg.HistoryLimit)
	if err := repo.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load chat state: %w", err)
	}
	log.Info("database connected, chat state loaded",
		zap.Int("users", repo.UserCount()),
		zap.Int("rooms", len(repo.Rooms())))
	return repo, nil
}

func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect Redis: %w", err)
	}
	return rdb, nil
}
