package youtube

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"yt-notifier/internal/apperr"
)

// DefaultFeedURL is the per-channel video feed. It costs no API quota.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// FeedReader reads a channel's recent uploads from its RSS feed.
type FeedReader struct {
	baseURL string
	client  *http.Client
}

func NewFeedReader(baseURL string, client *http.Client) *FeedReader {
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FeedReader{baseURL: baseURL, client: client}
}

// RecentVideoIDs returns the IDs of the channel's videos published after
// since, in feed order (newest first). Entries without a publish date are
// kept.
func (f *FeedReader) RecentVideoIDs(ctx context.Context, channelID string, since time.Time) ([]string, error) {
	feedURL := f.baseURL + "?" + url.Values{"channel_id": {channelID}}.Encode()

	parser := gofeed.NewParser()
	parser.Client = f.client
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, &apperr.RemoteFetchError{Op: "read channel feed", Err: classify(err)}
	}

	ids := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && !item.PublishedParsed.After(since) {
			continue
		}
		if id := videoID(item); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func videoID(item *gofeed.Item) string {
	if values := item.Extensions["yt"]["videoId"]; len(values) > 0 && values[0].Value != "" {
		return values[0].Value
	}
	link, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return link.Query().Get("v")
}
