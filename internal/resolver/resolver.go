// Package resolver normalizes channel references (IDs, channel URLs, vanity
// URLs) into canonical channel IDs.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"yt-notifier/internal/apperr"
)

var (
	channelIDPattern  = regexp.MustCompile(`^[0-9a-zA-Z_-]{24}$`)
	channelURLPattern = regexp.MustCompile(`^https://www\.youtube\.com/channel/([0-9a-zA-Z_-]{24})/?$`)
	vanityURLPattern  = regexp.MustCompile(`^https://www\.youtube\.com/(?:c/|channel/|user/|@).+`)

	ErrUnrecognized = errors.New("reference form unrecognized")
)

// DefaultTimeout bounds the raced lookups of a vanity URL.
const DefaultTimeout = 20 * time.Second

// Searcher finds a channel ID with the remote search API.
type Searcher interface {
	SearchChannelID(ctx context.Context, query string) (string, error)
}

// Scraper finds a channel ID in the channel page markup.
type Scraper interface {
	ScrapeChannelID(ctx context.Context, pageURL string) (string, error)
}

type Resolver struct {
	searcher Searcher
	scraper  Scraper
	timeout  time.Duration
	logger   *slog.Logger
}

func New(searcher Searcher, scraper Scraper, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		searcher: searcher,
		scraper:  scraper,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the canonical channel ID for reference. Plain IDs and
// /channel/<id> URLs are handled without a remote call. For vanity URLs the
// search API and a page scrape are raced and the first success wins.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	r.logger.Debug("normalizing channel reference", slog.String("reference", reference))

	if channelIDPattern.MatchString(reference) {
		r.logger.Debug("reference is a channel id", slog.String("reference", reference))
		return reference, nil
	}

	if match := channelURLPattern.FindStringSubmatch(reference); match != nil {
		r.logger.Debug("reference is a channel url with id", slog.String("reference", reference), slog.String("channelid", match[1]))
		return match[1], nil
	}

	if vanityURLPattern.MatchString(reference) {
		r.logger.Debug("reference is a channel url with name", slog.String("reference", reference))
		id, err := r.race(ctx, reference)
		if err != nil {
			return "", &apperr.ResolutionError{Reference: reference, Err: err}
		}
		return id, nil
	}

	return "", &apperr.ResolutionError{Reference: reference, Err: ErrUnrecognized}
}

type outcome struct {
	strategy string
	id       string
	err      error
}

func (r *Resolver) race(ctx context.Context, reference string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Buffered so the losing strategy never blocks after we return.
	results := make(chan outcome, 2)
	go func() {
		id, err := r.searcher.SearchChannelID(ctx, reference)
		results <- outcome{strategy: "search", id: id, err: err}
	}()
	go func() {
		id, err := r.scraper.ScrapeChannelID(ctx, reference)
		results <- outcome{strategy: "scrape", id: id, err: err}
	}()

	var errs []error
	for range 2 {
		select {
		case res := <-results:
			if res.err == nil && res.id != "" {
				r.logger.Debug("resolved channel reference", slog.String("reference", reference), slog.String("strategy", res.strategy), slog.String("channelid", res.id))
				return res.id, nil
			}
			if res.err == nil {
				res.err = errors.New("empty channel id")
			}
			errs = append(errs, fmt.Errorf("%s: %w", res.strategy, res.err))
		case <-ctx.Done():
			return "", errors.Join(append(errs, ctx.Err())...)
		}
	}

	return "", errors.Join(errs...)
}
