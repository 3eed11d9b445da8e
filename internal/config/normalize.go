package config

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// Strategy selects how the live subscription set is acquired.
type Strategy int

const (
	// EnumerateAll walks the account's full subscription listing.
	EnumerateAll Strategy = iota
	// AllowListOnly looks up the allow-listed channels directly. The
	// subscription listing stops around 1000 entries, so large accounts
	// need this.
	AllowListOnly
)

func (s Strategy) String() string {
	switch s {
	case EnumerateAll:
		return "enumerate-all"
	case AllowListOnly:
		return "allow-list"
	default:
		return "unknown"
	}
}

// Resolver turns a channel reference into a canonical channel ID.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (string, error)
}

// ResolvedConfig is a Config whose channel lists hold canonical IDs only.
type ResolvedConfig struct {
	Config
	Strategy Strategy
}

// Normalize resolves every allow and deny list entry. changed reports
// whether any entry differs from what was configured. Any unresolved entry
// fails the whole normalization.
func Normalize(ctx context.Context, cfg Config, resolver Resolver) (resolved ResolvedConfig, changed bool, err error) {
	whitelist, err := resolveAll(ctx, resolver, cfg.WhitelistedChannelIDs)
	if err != nil {
		return ResolvedConfig{}, false, err
	}
	blacklist, err := resolveAll(ctx, resolver, cfg.BlacklistedChannelIDs)
	if err != nil {
		return ResolvedConfig{}, false, err
	}

	changed = !slices.Equal(whitelist, cfg.WhitelistedChannelIDs) || !slices.Equal(blacklist, cfg.BlacklistedChannelIDs)

	resolved = ResolvedConfig{Config: cfg, Strategy: EnumerateAll}
	resolved.WhitelistedChannelIDs = whitelist
	resolved.BlacklistedChannelIDs = blacklist
	if whitelist != nil {
		resolved.Strategy = AllowListOnly
	}

	return resolved, changed, nil
}

func resolveAll(ctx context.Context, resolver Resolver, refs []string) ([]string, error) {
	if refs == nil {
		return nil, nil
	}

	ids := make([]string, len(refs))
	errs := make([]error, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = resolver.Resolve(ctx, ref)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoadResolved loads the config at path, normalizes it and writes the
// normalized lists back when they changed.
func LoadResolved(ctx context.Context, path string, resolver Resolver, logger *slog.Logger) (ResolvedConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return ResolvedConfig{}, err
	}

	resolved, changed, err := Normalize(ctx, cfg, resolver)
	if err != nil {
		return ResolvedConfig{}, err
	}

	if changed {
		if err := Save(path, resolved.Config); err != nil {
			return ResolvedConfig{}, err
		}
		logger.Info("wrote normalized channel ids to config", slog.String("path", path))
	}

	logger.Info("config loaded", slog.String("strategy", resolved.Strategy.String()),
		slog.Int("whitelisted", len(resolved.WhitelistedChannelIDs)),
		slog.Int("blacklisted", len(resolved.BlacklistedChannelIDs)))

	return resolved, nil
}
