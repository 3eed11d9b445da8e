// Package subscriptions keeps the stored subscription set in line with the
// channels the account follows.
package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"yt-notifier/internal/apperr"
	"yt-notifier/internal/config"
	"yt-notifier/internal/models"
	"yt-notifier/internal/paging"
)

// BatchSize is the number of channel IDs per direct lookup call, the Data
// API per-call maximum.
const BatchSize = 50

type Store interface {
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	SoftDeleteSubscription(ctx context.Context, channelID string) error
}

type Remote interface {
	SubscriptionsPage(ctx context.Context, cursor string) (paging.Listing[models.ChannelDetails], error)
	ChannelsByID(ctx context.Context, ids []string) ([]models.ChannelDetails, error)
}

// Result counts the writes and skips of one pass.
type Result struct {
	Inserted int
	Removed  int
	Skipped  int
}

type Reconciler struct {
	store     Store
	remote    Remote
	strategy  config.Strategy
	whitelist map[string]struct{}
	blacklist map[string]struct{}
	allowList []string
}

func New(store Store, remote Remote, cfg config.ResolvedConfig) *Reconciler {
	return &Reconciler{
		store:     store,
		remote:    remote,
		strategy:  cfg.Strategy,
		whitelist: toSet(cfg.WhitelistedChannelIDs),
		blacklist: toSet(cfg.BlacklistedChannelIDs),
		allowList: cfg.WhitelistedChannelIDs,
	}
}

// Reconcile runs one pass with the configured strategy. Writes made before
// an error are kept; the next pass starts over from the remote state.
func (r *Reconciler) Reconcile(ctx context.Context, logger *slog.Logger) (Result, error) {
	logger.Info("checking subscriptions", slog.String("strategy", r.strategy.String()))

	saved, err := r.saved(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read saved subscriptions: %w", err)
	}

	var result Result
	switch r.strategy {
	case config.AllowListOnly:
		result, err = r.reconcileAllowList(ctx, logger, saved)
	default:
		result, err = r.reconcileAll(ctx, logger, saved)
	}
	if err != nil {
		return result, err
	}

	logger.Info("done checking subscriptions",
		slog.Int("inserted", result.Inserted),
		slog.Int("removed", result.Removed),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func (r *Reconciler) saved(ctx context.Context) (map[string]string, error) {
	subs, err := r.store.ActiveSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	saved := make(map[string]string, len(subs))
	for _, sub := range subs {
		saved[sub.ChannelID] = sub.ChannelTitle
	}
	return saved, nil
}

// reconcileAll walks the full subscription listing. New channels are stored
// as soon as they are seen; removals wait until the listing is complete.
func (r *Reconciler) reconcileAll(ctx context.Context, logger *slog.Logger, saved map[string]string) (Result, error) {
	var result Result
	live := make(map[string]struct{})

	for ch, err := range paging.FetchAll(ctx, "list subscriptions", r.remote.SubscriptionsPage) {
		if err != nil {
			return result, err
		}

		if !r.complete(logger, ch) {
			result.Skipped++
			continue
		}
		if _, ok := r.blacklist[ch.ChannelID]; ok {
			logger.Debug("ignoring blacklisted channel", slog.String("channelid", ch.ChannelID), slog.String("title", ch.Title))
			continue
		}
		if r.whitelist != nil {
			if _, ok := r.whitelist[ch.ChannelID]; !ok {
				logger.Debug("ignoring channel not in whitelist", slog.String("channelid", ch.ChannelID), slog.String("title", ch.Title))
				continue
			}
		}

		logger.Debug("live subscription", slog.String("channelid", ch.ChannelID), slog.String("title", ch.Title))
		if _, seen := live[ch.ChannelID]; seen {
			continue
		}
		live[ch.ChannelID] = struct{}{}

		if _, ok := saved[ch.ChannelID]; ok {
			continue
		}
		if err := r.insert(ctx, logger, ch); err != nil {
			return result, err
		}
		result.Inserted++
	}

	removed, err := r.removeMissing(ctx, logger, saved, live)
	result.Removed = removed
	return result, err
}

// reconcileAllowList looks up newly allowed channels directly and removes
// saved channels that are no longer allowed.
func (r *Reconciler) reconcileAllowList(ctx context.Context, logger *slog.Logger, saved map[string]string) (Result, error) {
	var result Result
	live := make(map[string]struct{}, len(r.allowList))
	var newlyAllowed []string

	for _, id := range r.allowList {
		if _, ok := r.blacklist[id]; ok {
			logger.Debug("ignoring blacklisted channel", slog.String("channelid", id))
			continue
		}
		if _, dup := live[id]; dup {
			continue
		}
		live[id] = struct{}{}
		if _, ok := saved[id]; !ok {
			newlyAllowed = append(newlyAllowed, id)
		}
	}

	for batch := range slices.Chunk(newlyAllowed, BatchSize) {
		channels, err := r.remote.ChannelsByID(ctx, batch)
		if err != nil {
			return result, err
		}

		found := make(map[string]struct{}, len(channels))
		for _, ch := range channels {
			found[ch.ChannelID] = struct{}{}
			if !r.complete(logger, ch) {
				result.Skipped++
				continue
			}
			if _, ok := live[ch.ChannelID]; !ok {
				continue
			}
			if err := r.insert(ctx, logger, ch); err != nil {
				return result, err
			}
			result.Inserted++
		}

		for _, id := range batch {
			if _, ok := found[id]; !ok {
				logger.Warn("whitelisted channel not found", slog.String("channelid", id))
				result.Skipped++
			}
		}
	}

	removed, err := r.removeMissing(ctx, logger, saved, live)
	result.Removed = removed
	return result, err
}

func (r *Reconciler) complete(logger *slog.Logger, ch models.ChannelDetails) bool {
	missing := apperr.MissingFields(
		apperr.Field{Name: "channelId", Value: ch.ChannelID},
		apperr.Field{Name: "title", Value: ch.Title},
		apperr.Field{Name: "thumbnail", Value: ch.Thumbnail},
	)
	if len(missing) == 0 {
		return true
	}
	err := &apperr.MissingFieldError{Kind: "subscription", ID: ch.ChannelID, Fields: missing}
	logger.Warn("could not find all required fields in subscription", slog.String("error", err.Error()), slog.Any("missing", missing))
	return false
}

func (r *Reconciler) insert(ctx context.Context, logger *slog.Logger, ch models.ChannelDetails) error {
	err := r.store.UpsertSubscription(ctx, models.Subscription{
		ChannelID:        ch.ChannelID,
		ChannelTitle:     ch.Title,
		ChannelThumbnail: ch.Thumbnail,
	})
	if err != nil {
		return fmt.Errorf("save subscription %s: %w", ch.ChannelID, err)
	}
	logger.Info("new subscription", slog.String("channelid", ch.ChannelID), slog.String("title", ch.Title))
	return nil
}

func (r *Reconciler) removeMissing(ctx context.Context, logger *slog.Logger, saved map[string]string, live map[string]struct{}) (int, error) {
	removed := 0
	for id, title := range saved {
		if _, ok := live[id]; ok {
			continue
		}
		if err := r.store.SoftDeleteSubscription(ctx, id); err != nil {
			return removed, fmt.Errorf("remove subscription %s: %w", id, err)
		}
		removed++
		logger.Info("removed subscription", slog.String("channelid", id), slog.String("title", title))
	}
	return removed, nil
}

func toSet(ids []string) map[string]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
