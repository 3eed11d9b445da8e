package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-notifier/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })

	return New(sqlx.NewDb(mockDb, "postgres")), mock
}

func TestMigrateAddsDeletedColumnOnce(t *testing.T) {
	t.Run("column missing", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS subscriptions`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sent_videos`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE INDEX IF NOT EXISTS sent_videos_channel_id_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.columns WHERE table_name = \$1 AND column_name = \$2`).
			WithArgs("subscriptions", "deleted").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`ALTER TABLE subscriptions ADD COLUMN deleted BOOLEAN NOT NULL DEFAULT FALSE`).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("column present", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS subscriptions`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sent_videos`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE INDEX IF NOT EXISTS sent_videos_channel_id_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.columns`).
			WithArgs("subscriptions", "deleted").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		require.NoError(t, store.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrateFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS subscriptions`).WillReturnError(errors.New("permission denied"))

	assert.Error(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSubscriptions(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"channel_id", "channel_title", "channel_thumbnail", "deleted"}).
		AddRow("UCabc1234567890123456789", "Alpha", "https://img/alpha.jpg", false)
	mock.ExpectQuery(`SELECT channel_id, channel_title, channel_thumbnail, deleted FROM subscriptions WHERE deleted = FALSE`).
		WillReturnRows(rows)

	subs, err := store.ActiveSubscriptions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.Subscription{{
		ChannelID:        "UCabc1234567890123456789",
		ChannelTitle:     "Alpha",
		ChannelThumbnail: "https://img/alpha.jpg",
	}}, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubscription(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO subscriptions \(channel_id, channel_title, channel_thumbnail, deleted\) VALUES \(\$1, \$2, \$3, FALSE\) ON CONFLICT \(channel_id\) DO UPDATE SET`).
		WithArgs("UCabc1234567890123456789", "Alpha", "https://img/alpha.jpg").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.UpsertSubscription(context.Background(), models.Subscription{
		ChannelID:        "UCabc1234567890123456789",
		ChannelTitle:     "Alpha",
		ChannelThumbnail: "https://img/alpha.jpg",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteSubscription(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE subscriptions SET deleted = TRUE WHERE channel_id = \$1`).
		WithArgs("UCx").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.SoftDeleteSubscription(context.Background(), "UCx"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentVideoIDs(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT video_id FROM sent_videos WHERE channel_id = \$1`).
		WithArgs("UCc").
		WillReturnRows(sqlmock.NewRows([]string{"video_id"}).AddRow("v1").AddRow("v0"))

	sent, err := store.SentVideoIDs(context.Background(), "UCc")

	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"v1": {}, "v0": {}}, sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSentVideo(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO sent_videos \(video_id, channel_id, title, notified_at\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(video_id\) DO NOTHING`).
		WithArgs("v2", "UCc", "Second", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.RecordSentVideo(context.Background(), models.SentVideo{VideoID: "v2", ChannelID: "UCc", Title: "Second", NotifiedAt: now})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSentVideos(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"video_id", "channel_id", "title", "notified_at", "channel_title"}).
		AddRow("v2", "UCc", "Second", now, "Charlie")
	mock.ExpectQuery(`SELECT v.video_id, v.channel_id, v.title, v.notified_at, COALESCE\(s.channel_title, ''\) AS channel_title FROM sent_videos v`).
		WithArgs(20).
		WillReturnRows(rows)

	videos, err := store.RecentSentVideos(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Charlie", videos[0].ChannelTitle)
	assert.Equal(t, now, videos[0].NotifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
