// Package checker orchestrates the per-feed check cycle: fetch, match,
// dedup, notify, and status bookkeeping.
package checker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rss_sentinel/internal/fetcher"
	"rss_sentinel/internal/matcher"
	"rss_sentinel/internal/model"
	"rss_sentinel/internal/storage"
)

const defaultConcurrency = 5

// Notifier delivers a matched item to the configured recipients. Delivery
// failures are handled inside the notifier and never propagate here.
type Notifier interface {
	Notify(ctx context.Context, feedTitle string, item fetcher.Item, matched []string)
}

// Checker runs feed checks against the keyword rule set.
type Checker struct {
	store       storage.Storage
	fetcher     *fetcher.Fetcher
	notifier    Notifier
	log         *slog.Logger
	concurrency int
}

// New creates a Checker.
func New(store storage.Storage, f *fetcher.Fetcher, notifier Notifier, log *slog.Logger) *Checker {
	return &Checker{
		store:       store,
		fetcher:     f,
		notifier:    notifier,
		log:         log,
		concurrency: defaultConcurrency,
	}
}

// SetConcurrency overrides the per-sweep feed concurrency cap.
func (c *Checker) SetConcurrency(n int) {
	if n > 0 {
		c.concurrency = n
	}
}

// CheckAll checks every active feed. Feeds are processed with bounded
// concurrency and no ordering guarantee; one feed's failure never aborts
// the sweep.
func (c *Checker) CheckAll(ctx context.Context) {
	feeds, err := c.store.ListActiveFeeds(ctx)
	if err != nil {
		c.log.Error("list active feeds", "error", err)
		return
	}

	globalKws, err := c.store.ListGlobalKeywords(ctx)
	if err != nil {
		c.log.Error("list global keywords", "error", err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, feed := range feeds {
		feed := feed
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("panic during feed check", "feed_id", feed.ID, "panic", r)
				}
			}()
			c.checkFeed(ctx, feed, globalKws)
			return nil
		})
	}
	_ = g.Wait()
}

// checkFeed runs one full check of one feed. Terminal states: skipped
// (no applicable keywords, no fetch attempted), failed (fetch error,
// error count incremented), success (metadata refreshed, items
// evaluated).
func (c *Checker) checkFeed(ctx context.Context, feed model.Feed, globalKws []model.Keyword) {
	feedKws, err := c.store.ListFeedKeywords(ctx, feed.ID)
	if err != nil {
		c.log.Error("list feed keywords", "feed_id", feed.ID, "error", err)
		return
	}

	keywords := append(append([]model.Keyword{}, globalKws...), feedKws...)
	if len(keywords) == 0 {
		c.log.Debug("no keywords, skipping feed", "feed_id", feed.ID, "url", feed.URL)
		return
	}

	fetched, err := c.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		c.log.Warn("fetch feed", "feed_id", feed.ID, "url", feed.URL, "error", err)
		if err := c.store.IncrementFeedError(ctx, feed.ID); err != nil {
			c.log.Error("increment feed error", "feed_id", feed.ID, "error", err)
		}
		return
	}

	now := time.Now().UTC()
	zero := 0
	patch := model.FeedPatch{
		LastFetchAt: &now,
		ErrorCount:  &zero,
	}
	if fetched.Title != "" {
		patch.Title = &fetched.Title
	}
	if fetched.Description != "" {
		patch.Description = &fetched.Description
	}
	if err := c.store.UpdateFeed(ctx, feed.ID, patch); err != nil {
		c.log.Error("update feed", "feed_id", feed.ID, "error", err)
		return
	}

	feedTitle := fetched.Title
	if feedTitle == "" {
		feedTitle = feed.Title
	}
	if feedTitle == "" {
		feedTitle = feed.URL
	}

	sent := 0
	for _, item := range fetched.Items {
		if ctx.Err() != nil {
			return
		}
		if c.checkItem(ctx, feed, feedTitle, item, keywords) {
			sent++
		}
	}
	if sent > 0 {
		c.log.Info("sent notifications", "feed_id", feed.ID, "title", feedTitle, "count", sent)
	}
}

// checkItem evaluates one item against the applicable rule set and
// reports whether a notification was dispatched. Items already marked
// sent are skipped before any rule evaluation. The fingerprint is marked
// after attempted delivery regardless of the delivery outcome.
func (c *Checker) checkItem(ctx context.Context, feed model.Feed, feedTitle string, item fetcher.Item, keywords []model.Keyword) bool {
	fp := storage.Fingerprint(feed.ID, item.Link)

	sent, err := c.store.IsSent(ctx, fp)
	if err != nil {
		c.log.Error("check sent", "feed_id", feed.ID, "url", item.Link, "error", err)
		return false
	}
	if sent {
		return false
	}

	matched := matcher.MatchAll(item.Title, item.Summary, keywords)
	if len(matched) == 0 {
		return false
	}

	c.notifier.Notify(ctx, feedTitle, item, matched)

	if err := c.store.MarkSent(ctx, feed.ID, item.Title, item.Link); err != nil {
		c.log.Error("mark sent", "feed_id", feed.ID, "url", item.Link, "error", err)
	}
	return true
}
