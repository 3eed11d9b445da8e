package db

import (
	"context"

	"yt-notifier/internal/models"
)

// ActiveSubscriptions returns every subscription that is not soft-deleted.
func (s *Store) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	query := `
		SELECT channel_id, channel_title, channel_thumbnail, deleted
		FROM subscriptions
		WHERE deleted = FALSE
		ORDER BY channel_title
	`
	var subscriptions []models.Subscription
	if err := s.db.SelectContext(ctx, &subscriptions, query); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// UpsertSubscription inserts sub, or refreshes and undeletes the existing
// row for the same channel.
func (s *Store) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	query := `
		INSERT INTO subscriptions (channel_id, channel_title, channel_thumbnail, deleted)
		VALUES (?, ?, ?, FALSE)
		ON CONFLICT (channel_id) DO UPDATE SET
			channel_title = excluded.channel_title,
			channel_thumbnail = excluded.channel_thumbnail,
			deleted = FALSE
	`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), sub.ChannelID, sub.ChannelTitle, sub.ChannelThumbnail)
	return err
}

// SoftDeleteSubscription marks the channel as no longer followed. The row is
// kept.
func (s *Store) SoftDeleteSubscription(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE subscriptions SET deleted = TRUE WHERE channel_id = ?`), channelID)
	return err
}
