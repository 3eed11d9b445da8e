package models

// Subscription represents one followed YouTube channel.
type Subscription struct {
	ChannelID        string `db:"channel_id" json:"channelId"`
	ChannelTitle     string `db:"channel_title" json:"channelTitle"`
	ChannelThumbnail string `db:"channel_thumbnail" json:"channelThumbnail"`
	Deleted          bool   `db:"deleted" json:"deleted"`
}

// ChannelDetails is a channel as reported by the remote API. Any field may be
// empty when the API omits it.
type ChannelDetails struct {
	ChannelID string
	Title     string
	Thumbnail string
}
