package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"yt-notifier/internal/config"
	"yt-notifier/internal/db"
	"yt-notifier/internal/resolver"
	"yt-notifier/internal/subscriptions"
	"yt-notifier/internal/telegram"
	"yt-notifier/internal/videos"
	"yt-notifier/internal/worker"
	"yt-notifier/internal/youtube"
	"yt-notifier/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const httpTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	env, err := config.LoadEnv()
	if err != nil {
		logger.Error("could not read environment", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(context.Background(), env, logger); err != nil {
		logger.Error("worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, env config.Env, logger *slog.Logger) error {
	raw, err := config.Load(env.ConfigFile)
	if err != nil {
		return err
	}
	logger = config.NewLogger(raw.Logging, os.Stderr).With(slog.String("commit", CommitSHA))

	service, err := newYouTubeService(ctx, env)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: httpTimeout}
	ytClient := youtube.NewClient(service, rate.NewLimiter(rate.Every(youtube.DefaultCallInterval), 1))

	res := resolver.New(ytClient, youtube.NewPageScraper(httpClient), resolver.DefaultTimeout, logger)
	cfg, err := config.LoadResolved(ctx, env.ConfigFile, res, logger)
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, env.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if env.TelegramBotToken == "" || env.TelegramChatID == 0 {
		return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}
	bot, err := tgbotapi.NewBotAPI(env.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("connect telegram bot: %w", err)
	}
	logger.Info("authorized on telegram", slog.String("account", bot.Self.UserName))
	notifier := telegram.NewNotifier(bot, env.TelegramChatID)

	var errNotifier worker.ErrorNotifier
	if cfg.Logging.NotifyOnError {
		errNotifier = notifier
	}

	handler := worker.NewTaskHandler(
		subscriptions.New(store, ytClient, cfg),
		videos.New(store, youtube.NewFeedReader(youtube.DefaultFeedURL, httpClient), ytClient, notifier, cfg.Window()),
		errNotifier,
		logger,
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: env.RedisAddr},
		asynq.Config{
			// Passes share the quota and the store, one at a time is enough.
			Concurrency: 1,
			Logger:      worker.NewAsynqLogger(logger),
		},
	)

	logger.Info("worker starting", slog.String("strategy", cfg.Strategy.String()))
	return srv.Run(newServeMux(handler))
}

func newServeMux(handler *worker.TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReconcileSubscriptions, handler.HandleReconcileSubscriptionsTask)
	mux.HandleFunc(tasks.TypeCheckVideos, handler.HandleCheckVideosTask)
	return mux
}

// newYouTubeService prefers the OAuth credentials file, which listing the
// account's own subscriptions needs. An API key only covers the allow-list
// strategy.
func newYouTubeService(ctx context.Context, env config.Env) (*ytapi.Service, error) {
	var opts []option.ClientOption
	switch {
	case env.GoogleCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(env.GoogleCredentialsFile))
	case env.YouTubeAPIKey != "":
		opts = append(opts, option.WithAPIKey(env.YouTubeAPIKey))
	default:
		return nil, errors.New("GOOGLE_CREDENTIALS_FILE or YOUTUBE_API_KEY is required")
	}

	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return service, nil
}
