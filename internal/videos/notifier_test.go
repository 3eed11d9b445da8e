package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/models"
)

type memStore struct {
	subs    []models.Subscription
	sent    map[string]map[string]struct{}
	records []models.SentVideo
}

func (s *memStore) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return s.subs, nil
}

func (s *memStore) SentVideoIDs(ctx context.Context, channelID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for id := range s.sent[channelID] {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *memStore) RecordSentVideo(ctx context.Context, video models.SentVideo) error {
	if s.sent == nil {
		s.sent = map[string]map[string]struct{}{}
	}
	if s.sent[video.ChannelID] == nil {
		s.sent[video.ChannelID] = map[string]struct{}{}
	}
	s.sent[video.ChannelID][video.VideoID] = struct{}{}
	s.records = append(s.records, video)
	return nil
}

func (s *memStore) recordedIDs() []string {
	var ids []string
	for _, r := range s.records {
		ids = append(ids, r.VideoID)
	}
	return ids
}

type fakeFeed struct {
	items map[string][]string
	errs  map[string]error
	since time.Time
}

func (f *fakeFeed) RecentVideoIDs(ctx context.Context, channelID string, since time.Time) ([]string, error) {
	f.since = since
	if err := f.errs[channelID]; err != nil {
		return nil, err
	}
	return f.items[channelID], nil
}

type fakeDetails struct {
	videos map[string]*models.VideoDetails
	errs   map[string]error
	calls  []string
}

func (d *fakeDetails) VideoDetails(ctx context.Context, videoID string) (*models.VideoDetails, error) {
	d.calls = append(d.calls, videoID)
	if err := d.errs[videoID]; err != nil {
		return nil, err
	}
	return d.videos[videoID], nil
}

type fakeSender struct {
	sent []models.VideoNotification
	errs map[string]error
}

func (s *fakeSender) NotifyNewVideo(ctx context.Context, n models.VideoNotification) error {
	if err := s.errs[n.VideoID]; err != nil {
		return err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSender) sentIDs() []string {
	var ids []string
	for _, n := range s.sent {
		ids = append(ids, n.VideoID)
	}
	return ids
}

func video(id string) *models.VideoDetails {
	return &models.VideoDetails{
		VideoID:      id,
		PublishedAt:  "2024-03-01T12:00:00Z",
		Title:        "Video " + id,
		ChannelTitle: "Channel",
		Thumbnail:    "https://i.ytimg.com/vi/" + id + "/maxresdefault.jpg",
		Duration:     "PT12M7S",
	}
}

type fixture struct {
	store    *memStore
	feed     *fakeFeed
	details  *fakeDetails
	sender   *fakeSender
	notifier *Notifier
	now      time.Time
}

func newFixture(channels ...string) *fixture {
	f := &fixture{
		store:   &memStore{},
		feed:    &fakeFeed{items: map[string][]string{}, errs: map[string]error{}},
		details: &fakeDetails{videos: map[string]*models.VideoDetails{}, errs: map[string]error{}},
		sender:  &fakeSender{errs: map[string]error{}},
		now:     time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	for _, ch := range channels {
		f.store.subs = append(f.store.subs, models.Subscription{
			ChannelID:        ch,
			ChannelTitle:     "Title of " + ch,
			ChannelThumbnail: "https://yt3.example/" + ch + ".jpg",
		})
	}
	f.notifier = New(f.store, f.feed, f.details, f.sender, 7*24*time.Hour)
	f.notifier.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addVideos(channel string, ids ...string) {
	f.feed.items[channel] = append(f.feed.items[channel], ids...)
	for _, id := range ids {
		f.details.videos[id] = video(id)
	}
}

func (f *fixture) check(t *testing.T) (Result, error) {
	t.Helper()
	return f.notifier.Check(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCheckSkipsSentVideos(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "v1", "v2")
	f.store.sent = map[string]map[string]struct{}{"C": {"v1": {}}}

	result, err := f.check(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"v2"}, f.sender.sentIDs())
	assert.Equal(t, []string{"v2"}, f.store.recordedIDs())
	assert.Equal(t, []string{"v2"}, f.details.calls)
	assert.Equal(t, Result{Channels: 1, Notified: 1}, result)
}

func TestCheckNeverNotifiesTwice(t *testing.T) {
	f := newFixture("A", "B")
	f.addVideos("A", "a2", "a1")
	f.addVideos("B", "b1")

	_, err := f.check(t)
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 3)

	f.addVideos("A", "a3")
	result, err := f.check(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"a2", "a1", "b1", "a3"}, f.sender.sentIDs())
	assert.Equal(t, 1, result.Notified)
}

func TestCheckBuildsNotification(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "abc-_1")
	f.details.videos["abc-_1"].Title = strings.Repeat("x", 80)

	_, err := f.check(t)
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)

	n := f.sender.sent[0]
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), n.Date)
	assert.Equal(t, "C", n.ChannelID)
	assert.Equal(t, "Channel", n.ChannelTitle)
	assert.Equal(t, "https://yt3.example/C.jpg", n.ChannelThumbnail)
	assert.Equal(t, strings.Repeat("x", MaxTitleLength)+"…", n.VideoTitle)
	assert.Equal(t, "12:07", n.VideoDuration)
	assert.Equal(t, "https://www.youtube.com/attribution_link?u=/watch%3Fv%3Dabc-_1", n.VideoURL)
	assert.False(t, n.IsLiveStreamOrPremiere)

	require.Len(t, f.store.records, 1)
	assert.Equal(t, f.now, f.store.records[0].NotifiedAt)
	assert.Equal(t, "C", f.store.records[0].ChannelID)
}

func TestCheckUsesRecencyWindow(t *testing.T) {
	f := newFixture("C")
	_, err := f.check(t)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(-7*24*time.Hour), f.feed.since)
}

func TestCheckLivestreamGate(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "live", "ended")
	f.details.videos["live"].IsLive = true
	f.details.videos["ended"].IsLive = true
	f.details.videos["ended"].LiveEnded = true

	result, err := f.check(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"ended"}, f.sender.sentIDs())
	assert.Equal(t, []string{"ended"}, f.store.recordedIDs())
	assert.True(t, f.sender.sent[0].IsLiveStreamOrPremiere)
	assert.Equal(t, 1, result.Skipped)

	// Still a candidate on the next pass.
	f.details.calls = nil
	_, err = f.check(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, f.details.calls)
}

func TestCheckSkipsIncompleteVideos(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "v1", "v2", "v3")
	f.details.videos["v1"].Duration = ""
	delete(f.details.videos, "v2")

	result, err := f.check(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"v3"}, f.sender.sentIDs())
	assert.Equal(t, 2, result.Skipped)
}

func TestCheckTransientNotificationFailure(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "v1", "v2")
	f.sender.errs["v1"] = fmt.Errorf("%w: connection reset", apperr.ErrNotificationTransient)

	result, err := f.check(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"v2"}, f.sender.sentIDs())
	assert.Equal(t, []string{"v2"}, f.store.recordedIDs())
	assert.Equal(t, 1, result.Failed)

	delete(f.sender.errs, "v1")
	_, err = f.check(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v1"}, f.sender.sentIDs())
}

func TestCheckFatalNotificationAbortsPass(t *testing.T) {
	f := newFixture("A", "B")
	f.addVideos("A", "a1", "a2")
	f.addVideos("B", "b1")
	f.sender.errs["a1"] = fmt.Errorf("%w: too many requests", apperr.ErrNotificationFatal)

	_, err := f.check(t)
	assert.ErrorIs(t, err, apperr.ErrNotificationFatal)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.store.records)
	assert.Equal(t, []string{"a1"}, f.details.calls)
}

func TestCheckQuotaAbortsPass(t *testing.T) {
	f := newFixture("A", "B")
	f.addVideos("A", "a1")
	f.addVideos("B", "b1")
	f.details.errs["a1"] = &apperr.RemoteFetchError{Op: "list videos", Err: apperr.Quota(errors.New("quotaExceeded"))}

	_, err := f.check(t)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	assert.Empty(t, f.sender.sent)
}

func TestCheckFeedFailures(t *testing.T) {
	f := newFixture("A", "B")
	f.addVideos("B", "b1")
	f.feed.errs["A"] = errors.New("http error: 404 Not Found")

	result, err := f.check(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, f.sender.sentIDs())
	assert.Equal(t, 1, result.Failed)

	f.feed.errs["A"] = apperr.Quota(errors.New("429"))
	f.addVideos("B", "b2")
	_, err = f.check(t)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	assert.Equal(t, []string{"b1"}, f.sender.sentIDs())
}

func TestCheckDetailErrorSkipsVideo(t *testing.T) {
	f := newFixture("C")
	f.addVideos("C", "v1", "v2")
	f.details.errs["v1"] = &apperr.RemoteFetchError{Op: "list videos", Err: errors.New("backend error")}

	result, err := f.check(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, f.sender.sentIDs())
	assert.Equal(t, 1, result.Failed)
}
