// Package videos finds videos that have not been notified yet and drives
// their notification.
package videos

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/models"
)

const (
	// MaxTitleLength is the number of characters of a video title kept in
	// notifications.
	MaxTitleLength = 70

	attributionURL = "https://www.youtube.com/attribution_link?u=/"
)

type Store interface {
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	SentVideoIDs(ctx context.Context, channelID string) (map[string]struct{}, error)
	RecordSentVideo(ctx context.Context, video models.SentVideo) error
}

// Feed lists the IDs of a channel's videos published after since, newest first.
type Feed interface {
	RecentVideoIDs(ctx context.Context, channelID string, since time.Time) ([]string, error)
}

// Details looks up one video. A nil result means the video is unknown.
type Details interface {
	VideoDetails(ctx context.Context, videoID string) (*models.VideoDetails, error)
}

// Sender delivers notifications. Errors should wrap
// apperr.ErrNotificationFatal when the provider is unavailable.
type Sender interface {
	NotifyNewVideo(ctx context.Context, n models.VideoNotification) error
}

// Result counts what one pass did.
type Result struct {
	Channels int
	Notified int
	Skipped  int
	Failed   int
}

type Notifier struct {
	store   Store
	feed    Feed
	details Details
	sender  Sender
	window  time.Duration
	now     func() time.Time
}

func New(store Store, feed Feed, details Details, sender Sender, window time.Duration) *Notifier {
	return &Notifier{
		store:   store,
		feed:    feed,
		details: details,
		sender:  sender,
		window:  window,
		now:     time.Now,
	}
}

// Check runs one pass over every active subscription. It returns early only
// for errors that affect the whole pass: quota exhaustion, a notification
// provider outage or a store failure.
func (n *Notifier) Check(ctx context.Context, logger *slog.Logger) (Result, error) {
	logger.Info("checking for new videos")

	subs, err := n.store.ActiveSubscriptions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read subscriptions: %w", err)
	}

	var result Result
	since := n.now().Add(-n.window)
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Channels++
		chLogger := logger.With(slog.String("channelid", sub.ChannelID))
		if err := n.checkChannel(ctx, chLogger, sub, since, &result); err != nil {
			return result, err
		}
	}

	logger.Info("finished checking for new videos",
		slog.Int("channels", result.Channels),
		slog.Int("notified", result.Notified),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return result, nil
}

func (n *Notifier) checkChannel(ctx context.Context, logger *slog.Logger, sub models.Subscription, since time.Time, result *Result) error {
	logger.Debug("checking channel", slog.String("title", sub.ChannelTitle))

	sent, err := n.store.SentVideoIDs(ctx, sub.ChannelID)
	if err != nil {
		return fmt.Errorf("read sent videos for %s: %w", sub.ChannelID, err)
	}
	if sent == nil {
		sent = make(map[string]struct{})
	}

	ids, err := n.feed.RecentVideoIDs(ctx, sub.ChannelID, since)
	if err != nil {
		if apperr.AbortsPass(err) {
			return err
		}
		logger.Error("could not fetch channel feed", slog.String("error", err.Error()))
		result.Failed++
		return nil
	}

	// The feed order is not trusted, so every entry is checked against the
	// sent set instead of stopping at the first known video.
	for _, id := range ids {
		if _, ok := sent[id]; ok {
			continue
		}
		vLogger := logger.With(slog.String("videoid", id))

		notification, err := n.prepare(ctx, vLogger, sub, id)
		if err != nil {
			if apperr.AbortsPass(err) {
				return err
			}
			vLogger.Error("could not fetch video details", slog.String("error", err.Error()))
			result.Failed++
			continue
		}
		if notification == nil {
			result.Skipped++
			continue
		}

		vLogger.Info("new video", slog.String("channel", notification.ChannelTitle), slog.String("title", notification.VideoTitle))
		if err := n.sender.NotifyNewVideo(ctx, *notification); err != nil {
			if apperr.AbortsPass(err) {
				return fmt.Errorf("notify video %s: %w", id, err)
			}
			vLogger.Error("could not send notification", slog.String("error", err.Error()))
			result.Failed++
			continue
		}

		err = n.store.RecordSentVideo(ctx, models.SentVideo{
			VideoID:    id,
			ChannelID:  sub.ChannelID,
			Title:      notification.VideoTitle,
			NotifiedAt: n.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("record sent video %s: %w", id, err)
		}
		sent[id] = struct{}{}
		result.Notified++
	}
	return nil
}

// prepare builds the notification for one video. It returns nil when the
// video must be skipped for now.
func (n *Notifier) prepare(ctx context.Context, logger *slog.Logger, sub models.Subscription, videoID string) (*models.VideoNotification, error) {
	details, err := n.details.VideoDetails(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		logger.Warn("video not found")
		return nil, nil
	}

	// Livestreams and premieres are only sent once they have ended.
	if details.IsLive && !details.LiveEnded {
		logger.Debug("skipping livestream that has not ended")
		return nil, nil
	}

	missing := apperr.MissingFields(
		apperr.Field{Name: "publishedAt", Value: details.PublishedAt},
		apperr.Field{Name: "title", Value: details.Title},
		apperr.Field{Name: "channelTitle", Value: details.ChannelTitle},
		apperr.Field{Name: "thumbnail", Value: details.Thumbnail},
		apperr.Field{Name: "duration", Value: details.Duration},
	)
	if len(missing) > 0 {
		err := &apperr.MissingFieldError{Kind: "video", ID: videoID, Fields: missing}
		logger.Warn("could not find all required fields for video", slog.String("error", err.Error()), slog.Any("missing", missing))
		return nil, nil
	}

	date, err := time.Parse(time.RFC3339, details.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse publish date of %s: %w", videoID, err)
	}
	duration, err := ParseDuration(details.Duration)
	if err != nil {
		return nil, err
	}

	return &models.VideoNotification{
		Date:                   date,
		ChannelID:              sub.ChannelID,
		ChannelTitle:           details.ChannelTitle,
		ChannelThumbnail:       sub.ChannelThumbnail,
		VideoID:                videoID,
		VideoTitle:             truncate(details.Title, MaxTitleLength),
		VideoThumbnail:         details.Thumbnail,
		VideoDuration:          FormatDuration(duration),
		VideoURL:               VideoURL(videoID),
		IsLiveStreamOrPremiere: details.IsLive,
	}, nil
}

// VideoURL returns the attribution link for a video.
func VideoURL(videoID string) string {
	return attributionURL + url.QueryEscape("watch?v="+videoID)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
