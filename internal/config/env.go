package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds the settings taken from the process environment.
type Env struct {
	DatabaseURL           string
	RedisAddr             string
	ConfigFile            string
	GoogleCredentialsFile string
	YouTubeAPIKey         string
	TelegramBotToken      string
	TelegramChatID        int64
	Port                  string
	StatusAPIToken        string
	BaseURL               string
}

// LoadEnv reads .env (when present) into the environment and collects the
// settings.
func LoadEnv() (Env, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	env := Env{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             getParam("REDIS_ADDR", "127.0.0.1:6379"),
		ConfigFile:            getParam("CONFIG_FILE", "config.json"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		YouTubeAPIKey:         os.Getenv("YOUTUBE_API_KEY"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		Port:                  getParam("PORT", "8080"),
		StatusAPIToken:        os.Getenv("STATUS_API_TOKEN"),
		BaseURL:               os.Getenv("BASE_URL"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return Env{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		env.TelegramChatID = id
	}

	return env, nil
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok && val != "" {
		return val
	}
	return def
}

// NewLogger builds the process logger from the logging section.
func NewLogger(l Logging, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(l.Level) {
	case "debug", "verbose":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
