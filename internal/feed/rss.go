// Package feed renders the notification history as an RSS feed.
package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/eduncan911/podcast"

	"yt-notifier/internal/models"
	"yt-notifier/internal/videos"
)

// BaseURL returns configured when set, otherwise the scheme and host the
// request came in on.
func BaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return configured
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS lists sent videos, newest first as given.
func GenerateRSS(sent []models.SentVideo, baseURL string) (string, error) {
	var lastBuild *time.Time
	if len(sent) > 0 {
		lastBuild = &sent[0].NotifiedAt
	}

	p := podcast.New(
		"yt-notifier",
		baseURL+"/rss",
		"New videos from followed YouTube channels.",
		nil, lastBuild,
	)

	for _, v := range sent {
		title := v.Title
		if title == "" {
			title = v.VideoID
		}
		channel := v.ChannelTitle
		if channel == "" {
			channel = v.ChannelID
		}

		item := podcast.Item{
			Title:       fmt.Sprintf("%s: %s", channel, title),
			Link:        videos.VideoURL(v.VideoID),
			GUID:        v.VideoID,
			Description: fmt.Sprintf("New video from %s.", channel),
			PubDate:     &v.NotifiedAt,
		}
		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}
