package models

import "time"

// SentVideo records a video that has already been notified for a channel.
type SentVideo struct {
	VideoID    string    `db:"video_id"`
	ChannelID  string    `db:"channel_id"`
	Title      string    `db:"title"`
	NotifiedAt time.Time `db:"notified_at"`

	// ChannelTitle is only filled by listings that join subscriptions.
	ChannelTitle string `db:"channel_title"`
}

// VideoDetails is the extended detail of one video. Fields are empty when
// the API omits them.
type VideoDetails struct {
	VideoID      string
	PublishedAt  string
	Title        string
	ChannelTitle string
	Thumbnail    string
	Duration     string
	// IsLive is set when the video carries livestream or premiere metadata.
	IsLive bool
	// LiveEnded is set once the livestream has an actual end time.
	LiveEnded bool
}

// VideoNotification is what gets delivered for a newly observed video.
type VideoNotification struct {
	Date                   time.Time
	ChannelID              string
	ChannelTitle           string
	ChannelThumbnail       string
	VideoID                string
	VideoTitle             string
	VideoThumbnail         string
	VideoDuration          string
	VideoURL               string
	IsLiveStreamOrPremiere bool
}
