package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"yt-notifier/internal/models"
)

const (
	maxListed     = 50
	recentListing = 10
)

// Bot is implemented by *tgbotapi.BotAPI.
type Bot interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type StatusStore interface {
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	RecentSentVideos(ctx context.Context, limit int) ([]models.SentVideo, error)
}

// Commands answers status commands from the notification chat. Messages
// from any other chat are ignored.
type Commands struct {
	bot    Bot
	store  StatusStore
	chatID int64
	logger *slog.Logger
}

func NewCommands(bot Bot, store StatusStore, chatID int64, logger *slog.Logger) *Commands {
	return &Commands{bot: bot, store: store, chatID: chatID, logger: logger}
}

// Run handles updates until ctx is done.
func (c *Commands) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Commands) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil || message.Chat.ID != c.chatID {
		return
	}
	if !message.IsCommand() {
		return
	}

	c.logger.Debug("telegram command", slog.String("command", message.Command()))
	text, err := c.reply(ctx, message.Command())
	if err != nil {
		c.logger.Error("could not answer command", slog.String("command", message.Command()), slog.String("error", err.Error()))
		text = "Something went wrong, check the logs."
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Error("could not send reply", slog.String("error", err.Error()))
	}
}

func (c *Commands) reply(ctx context.Context, command string) (string, error) {
	switch command {
	case "subscriptions":
		subs, err := c.store.ActiveSubscriptions(ctx)
		if err != nil {
			return "", err
		}
		if len(subs) == 0 {
			return "No subscriptions yet.", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Watching %d channels:\n", len(subs))
		for i, sub := range subs {
			if i == maxListed {
				fmt.Fprintf(&b, "... and %d more", len(subs)-maxListed)
				break
			}
			fmt.Fprintf(&b, "- %s\n", sub.ChannelTitle)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case "recent":
		videos, err := c.store.RecentSentVideos(ctx, recentListing)
		if err != nil {
			return "", err
		}
		if len(videos) == 0 {
			return "No videos sent yet.", nil
		}
		var b strings.Builder
		for _, v := range videos {
			fmt.Fprintf(&b, "%s %s: %s\n", v.NotifiedAt.Format("2006-01-02 15:04"), v.ChannelTitle, v.Title)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	default:
		return "I don't know that command. Try /subscriptions or /recent.", nil
	}
}
