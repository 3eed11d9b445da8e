package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"yt-notifier/internal/config"
	"yt-notifier/internal/db"
	"yt-notifier/internal/handlers"
	"yt-notifier/internal/middleware"
	"yt-notifier/internal/telegram"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const (
	requestsPerSecond = 2
	requestBurst      = 10
	shutdownTimeout   = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With(slog.String("commit", CommitSHA))

	env, err := config.LoadEnv()
	if err != nil {
		logger.Error("could not read environment", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, env, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, env config.Env, logger *slog.Logger) error {
	store, err := db.Open(ctx, env.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if env.TelegramBotToken != "" && env.TelegramChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(env.TelegramBotToken)
		if err != nil {
			return err
		}
		logger.Info("authorized on telegram", slog.String("account", bot.Self.UserName))
		go telegram.NewCommands(bot, store, env.TelegramChatID, logger).Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           newRouter(store, env, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("port", env.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRouter(store handlers.Store, env config.Env, logger *slog.Logger) *mux.Router {
	auth := middleware.NewAuth(env.StatusAPIToken, env.TelegramBotToken, env.TelegramChatID, logger)
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(requestsPerSecond), requestBurst, logger)

	return handlers.New(store, env.BaseURL, logger).Router(limiter.Middleware, auth.Middleware)
}
