// Package youtube talks to YouTube: the Data API for subscriptions, channels
// and video details, the per-channel RSS feed, and channel pages.
package youtube

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/youtube/v3"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/models"
	"yt-notifier/internal/paging"
)

// MaxIDsPerCall is the Data API limit on IDs per channels.list or
// videos.list call, and the maximum page size of listing calls.
const MaxIDsPerCall = 50

// DefaultCallInterval paces Data API calls.
const DefaultCallInterval = 100 * time.Millisecond

type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
}

func NewClient(service *youtube.Service, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(DefaultCallInterval), 5)
	}
	return &Client{service: service, limiter: limiter}
}

// SubscriptionsPage fetches one page of the authorized account's
// subscriptions.
func (c *Client) SubscriptionsPage(ctx context.Context, cursor string) (paging.Listing[models.ChannelDetails], error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return paging.Listing[models.ChannelDetails]{}, err
	}

	call := c.service.Subscriptions.
		List([]string{"snippet", "contentDetails"}).
		Mine(true).
		Order("alphabetical").
		MaxResults(MaxIDsPerCall)
	if cursor != "" {
		call.PageToken(cursor)
	}

	response, err := call.Context(ctx).Do()
	if err != nil {
		return paging.Listing[models.ChannelDetails]{}, classify(err)
	}

	items := make([]models.ChannelDetails, 0, len(response.Items))
	for _, sub := range response.Items {
		var details models.ChannelDetails
		if sub.Snippet != nil {
			details.Title = sub.Snippet.Title
			if sub.Snippet.ResourceId != nil {
				details.ChannelID = sub.Snippet.ResourceId.ChannelId
			}
			details.Thumbnail = highThumbnail(sub.Snippet.Thumbnails)
		}
		items = append(items, details)
	}

	return paging.Listing[models.ChannelDetails]{Items: items, NextCursor: response.NextPageToken}, nil
}

// ChannelsByID looks up channel details for at most MaxIDsPerCall IDs.
// Unknown IDs are absent from the result.
func (c *Client) ChannelsByID(ctx context.Context, ids []string) ([]models.ChannelDetails, error) {
	if len(ids) > MaxIDsPerCall {
		return nil, fmt.Errorf("too many channel ids: %d > %d", len(ids), MaxIDsPerCall)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	response, err := c.service.Channels.
		List([]string{"snippet"}).
		Id(ids...).
		MaxResults(MaxIDsPerCall).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &apperr.RemoteFetchError{Op: "list channels", Err: classify(err)}
	}

	channels := make([]models.ChannelDetails, 0, len(response.Items))
	for _, item := range response.Items {
		details := models.ChannelDetails{ChannelID: item.Id}
		if item.Snippet != nil {
			details.Title = item.Snippet.Title
			details.Thumbnail = highThumbnail(item.Snippet.Thumbnails)
		}
		channels = append(channels, details)
	}

	return channels, nil
}

// SearchChannelID returns the channel ID of the most relevant channel search
// result for query.
func (c *Client) SearchChannelID(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	response, err := c.service.Search.
		List([]string{"id"}).
		Q(query).
		MaxResults(1).
		Order("relevance").
		Type("channel").
		Context(ctx).
		Do()
	if err != nil {
		return "", &apperr.RemoteFetchError{Op: "search channel", Err: classify(err)}
	}

	for _, item := range response.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			return item.Id.ChannelId, nil
		}
	}

	return "", fmt.Errorf("no channel found for %q", query)
}

// VideoDetails fetches the snippet, content details and livestream details
// of one video. It returns nil when the video is unknown.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (*models.VideoDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	response, err := c.service.Videos.
		List([]string{"contentDetails", "snippet", "liveStreamingDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &apperr.RemoteFetchError{Op: "list videos", Err: classify(err)}
	}
	if len(response.Items) == 0 {
		return nil, nil
	}

	item := response.Items[0]
	details := &models.VideoDetails{VideoID: item.Id}
	if item.Snippet != nil {
		details.PublishedAt = item.Snippet.PublishedAt
		details.Title = item.Snippet.Title
		details.ChannelTitle = item.Snippet.ChannelTitle
		details.Thumbnail = bestThumbnail(item.Snippet.Thumbnails)
	}
	if item.ContentDetails != nil {
		details.Duration = item.ContentDetails.Duration
	}
	if item.LiveStreamingDetails != nil {
		details.IsLive = true
		details.LiveEnded = item.LiveStreamingDetails.ActualEndTime != ""
	}

	return details, nil
}

func highThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil || t.High == nil {
		return ""
	}
	return t.High.Url
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}
