package db

import (
	"context"

	"yt-notifier/internal/models"
)

// SentVideoIDs returns the IDs of the videos already notified for channelID.
func (s *Store) SentVideoIDs(ctx context.Context, channelID string) (map[string]struct{}, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(`SELECT video_id FROM sent_videos WHERE channel_id = ?`), channelID)
	if err != nil {
		return nil, err
	}

	sent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}
	return sent, nil
}

// RecordSentVideo stores video as notified. Recording the same video twice
// is a no-op.
func (s *Store) RecordSentVideo(ctx context.Context, video models.SentVideo) error {
	query := `
		INSERT INTO sent_videos (video_id, channel_id, title, notified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (video_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), video.VideoID, video.ChannelID, video.Title, video.NotifiedAt)
	return err
}

// RecentSentVideos returns the last limit notified videos, newest first,
// with the title of their channel.
func (s *Store) RecentSentVideos(ctx context.Context, limit int) ([]models.SentVideo, error) {
	query := `
		SELECT v.video_id, v.channel_id, v.title, v.notified_at, COALESCE(s.channel_title, '') AS channel_title
		FROM sent_videos v
		LEFT JOIN subscriptions s ON s.channel_id = v.channel_id
		ORDER BY v.notified_at DESC
		LIMIT ?
	`
	var videos []models.SentVideo
	if err := s.db.SelectContext(ctx, &videos, s.db.Rebind(query), limit); err != nil {
		return nil, err
	}
	return videos, nil
}
