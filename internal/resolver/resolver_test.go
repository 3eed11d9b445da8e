package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-notifier/internal/apperr"
)

const level2Jeff = "UCzgA9CBrIXPtkB2yNTTiy1w"

type fakeStrategy struct {
	id    string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeStrategy) lookup(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.id, f.err
}

type fakeSearcher struct{ fakeStrategy }

func (f *fakeSearcher) SearchChannelID(ctx context.Context, _ string) (string, error) {
	return f.lookup(ctx)
}

type fakeScraper struct{ fakeStrategy }

func (f *fakeScraper) ScrapeChannelID(ctx context.Context, _ string) (string, error) {
	return f.lookup(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveWithoutRemoteCalls(t *testing.T) {
	search := &fakeSearcher{}
	scrape := &fakeScraper{}
	r := New(search, scrape, time.Second, testLogger())

	cases := []struct{ ref, want string }{
		{ref: level2Jeff, want: level2Jeff},
		{ref: "UC-lHJZR3Gqxm24_Vd_AJ5Yw", want: "UC-lHJZR3Gqxm24_Vd_AJ5Yw"},
		{ref: "https://www.youtube.com/channel/UCzgA9CBrIXPtkB2yNTTiy1w", want: level2Jeff},
		{ref: "https://www.youtube.com/channel/UCzgA9CBrIXPtkB2yNTTiy1w/", want: level2Jeff},
	}
	for _, c := range cases {
		got, err := r.Resolve(context.Background(), c.ref)
		require.NoError(t, err, c.ref)
		assert.Equal(t, c.want, got, c.ref)
	}

	assert.Zero(t, search.calls.Load())
	assert.Zero(t, scrape.calls.Load())
}

func TestResolveUnrecognized(t *testing.T) {
	search := &fakeSearcher{}
	scrape := &fakeScraper{}
	r := New(search, scrape, time.Second, testLogger())

	for _, ref := range []string{"", "not a channel", "https://example.com/@someone", "UCshort"} {
		_, err := r.Resolve(context.Background(), ref)

		var resErr *apperr.ResolutionError
		require.True(t, errors.As(err, &resErr), ref)
		assert.ErrorIs(t, err, ErrUnrecognized)
	}

	assert.Zero(t, search.calls.Load())
	assert.Zero(t, scrape.calls.Load())
}

func TestResolveVanityRace(t *testing.T) {
	tests := []struct {
		name   string
		search fakeStrategy
		scrape fakeStrategy
	}{
		{
			name:   "only search succeeds",
			search: fakeStrategy{id: level2Jeff},
			scrape: fakeStrategy{err: errors.New("no ytInitialData")},
		},
		{
			name:   "only scrape succeeds",
			search: fakeStrategy{err: errors.New("no results")},
			scrape: fakeStrategy{id: level2Jeff},
		},
		{
			name:   "search fails slowly, scrape succeeds",
			search: fakeStrategy{err: errors.New("no results"), delay: 20 * time.Millisecond},
			scrape: fakeStrategy{id: level2Jeff},
		},
		{
			name:   "scrape hangs, search succeeds",
			search: fakeStrategy{id: level2Jeff},
			scrape: fakeStrategy{id: "UCother00000000000000000", delay: time.Hour},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &fakeSearcher{fakeStrategy: tt.search}
			scrape := &fakeScraper{fakeStrategy: tt.scrape}
			r := New(search, scrape, time.Second, testLogger())

			for _, ref := range []string{
				"https://www.youtube.com/@Level2Jeff",
				"https://www.youtube.com/c/Level2Jeff",
			} {
				id, err := r.Resolve(context.Background(), ref)
				require.NoError(t, err)
				assert.Equal(t, level2Jeff, id)
			}
		})
	}
}

func TestResolveVanityBothFail(t *testing.T) {
	search := &fakeSearcher{fakeStrategy: fakeStrategy{err: errors.New("no results")}}
	scrape := &fakeScraper{fakeStrategy: fakeStrategy{err: errors.New("no ytInitialData")}}
	r := New(search, scrape, time.Second, testLogger())

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/@nobody")

	var resErr *apperr.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "https://www.youtube.com/@nobody", resErr.Reference)
	assert.Contains(t, err.Error(), "no results")
	assert.Contains(t, err.Error(), "no ytInitialData")
	assert.EqualValues(t, 1, search.calls.Load())
	assert.EqualValues(t, 1, scrape.calls.Load())
}

func TestResolveVanityTimeout(t *testing.T) {
	search := &fakeSearcher{fakeStrategy: fakeStrategy{id: level2Jeff, delay: time.Hour}}
	scrape := &fakeScraper{fakeStrategy: fakeStrategy{id: level2Jeff, delay: time.Hour}}
	r := New(search, scrape, 20*time.Millisecond, testLogger())

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/@slow")

	var resErr *apperr.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
