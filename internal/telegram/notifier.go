// Package telegram delivers notifications to a Telegram chat and answers
// status commands sent to the bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/models"
)

// Sender is implemented by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot    Sender
	chatID int64
}

func NewNotifier(bot Sender, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// NotifyNewVideo posts the video thumbnail with a caption linking to it.
func (n *Notifier) NotifyNewVideo(ctx context.Context, v models.VideoNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileURL(v.VideoThumbnail))
	photo.Caption = Caption(v)
	photo.ParseMode = tgbotapi.ModeHTML

	_, err := n.bot.Send(photo)
	return classify(err)
}

// NotifyError reports a failed pass to the chat.
func (n *Notifier) NotifyError(ctx context.Context, passErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, "yt-notifier pass failed: "+passErr.Error())
	msg.DisableWebPagePreview = true

	_, err := n.bot.Send(msg)
	return classify(err)
}

func Caption(v models.VideoNotification) string {
	verb := "just uploaded a video"
	if v.IsLiveStreamOrPremiere {
		verb = "just finished a livestream"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> %s\n", html.EscapeString(v.ChannelTitle), verb)
	fmt.Fprintf(&b, "<a href=\"%s\">%s</a> (%s)",
		html.EscapeString(v.VideoURL), html.EscapeString(v.VideoTitle), v.VideoDuration)
	return b.String()
}

// classify sorts Bot API failures. Flood control and revoked access stop the
// whole pass; everything else only fails the one message.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", apperr.ErrNotificationFatal, err)
		}
	}
	return fmt.Errorf("%w: %w", apperr.ErrNotificationTransient, err)
}
