package bot

import (
	"context"
	"errors"
	"fmt"

	"rss_sentinel/internal/fetcher"
	"rss_sentinel/internal/matcher"
	"rss_sentinel/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to RSS Sentinel Bot!

Subscribe to feeds, define keyword rules, and get notified when new
items match.

Quick start:
1. /add <url> — subscribe to an RSS/Atom feed
2. /addkw <keyword> — add a global keyword rule
3. /check — run a check right away

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Feed management:
/add <url> — subscribe to a feed (plain site URLs are probed for a feed link)
/list — show all feeds with status and error counts
/remove <id> — delete a feed and its keywords
/pause <id> — stop checking a feed
/resume <id> — re-enable a feed (also clears its error count)
/check — run a full check of all feeds now

Keyword rules:
/keywords — list all rules
/keywords <feed_id> — list rules of one feed
/addkw <rule> — add a global rule
/addkw -f <feed_id> <rule> — add a rule for one feed
/rmkw <rule_id> — remove a rule

Rule syntax:
  python            plain: text contains "python"
  +python+remote    and: contains every part
  |django|flask     or: contains any part
  python -snake     not: contains "python" but not "snake"
  regex:v\d+\.\d+   regular expression (case-insensitive)

Settings:
/settings — digest mode and image attachments`)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /add <url>")
		return
	}
	url := normalizeURL(args)

	if existing, err := b.store.GetFeedByURL(ctx, url); err == nil {
		b.reply(chatID, fmt.Sprintf("Already subscribed as #%d %s.", existing.ID, feedLabel(existing)))
		return
	}

	parsed, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		// a plain site URL parses as HTML, not a feed; probe it for an
		// advertised feed link before giving up
		var parseErr *fetcher.ParseError
		if !errors.As(err, &parseErr) {
			b.reply(chatID, fmt.Sprintf("Failed to fetch feed: %v", err))
			return
		}
		discovered, derr := b.fetcher.Discover(ctx, url)
		if derr != nil {
			b.reply(chatID, "That URL is not a feed and advertises no feed link. Please provide a direct RSS/Atom URL.")
			return
		}
		url = discovered
		if existing, gerr := b.store.GetFeedByURL(ctx, url); gerr == nil {
			b.reply(chatID, fmt.Sprintf("Already subscribed as #%d %s.", existing.ID, feedLabel(existing)))
			return
		}
		if parsed, err = b.fetcher.Fetch(ctx, url); err != nil {
			b.reply(chatID, fmt.Sprintf("Discovered %s but failed to fetch it: %v", url, err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Discovered feed: %s", url))
	}

	feed := &model.Feed{
		URL:         url,
		Title:       parsed.Title,
		Description: parsed.Description,
		IsActive:    true,
	}
	if err := b.store.CreateFeed(ctx, feed); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save feed: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Feed added!\n#%d %s\nURL: %s\nNo rules apply yet unless global ones exist. Use /addkw to add rules.",
		feed.ID, feedLabel(feed), feed.URL))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	feeds, err := b.store.ListFeeds(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	counts := make(map[int64]int)
	for _, f := range feeds {
		kws, err := b.store.ListFeedKeywords(ctx, f.ID)
		if err != nil {
			continue
		}
		counts[f.ID] = len(kws)
	}

	globalKws, _ := b.store.ListGlobalKeywords(ctx)
	b.reply(chatID, FormatFeedList(feeds, counts, len(globalKws)))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /remove <id>")
		return
	}

	feed, err := b.store.GetFeed(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Feed #%d not found.", id))
		return
	}

	if err := b.store.DeleteFeed(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error deleting feed: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Feed #%d %s deleted together with its rules.", id, feedLabel(feed)))
}

func (b *Bot) handlePause(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /pause <id>")
		return
	}

	feed, err := b.store.GetFeed(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Feed #%d not found.", id))
		return
	}

	if err := b.store.SetFeedActive(ctx, id, false); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Feed #%d %s paused.", id, feedLabel(feed)))
}

func (b *Bot) handleResume(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /resume <id>")
		return
	}

	feed, err := b.store.GetFeed(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Feed #%d not found.", id))
		return
	}

	// explicit reactivation also clears the failure streak, otherwise a
	// single bad fetch would immediately disable the feed again
	if err := b.store.SetFeedActive(ctx, id, true); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	zero := 0
	if err := b.store.UpdateFeed(ctx, id, model.FeedPatch{ErrorCount: &zero}); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Feed #%d %s resumed.", id, feedLabel(feed)))
}

func (b *Bot) handleCheck(chatID int64) {
	if b.trigger == nil {
		b.reply(chatID, "Checking is not available.")
		return
	}
	if b.trigger.TriggerNow() {
		b.reply(chatID, "Check started. Matching items will arrive shortly.")
	} else {
		b.reply(chatID, "A check is already in progress.")
	}
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64, args string) {
	if args == "" {
		kws, err := b.store.ListKeywords(ctx)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, FormatKeywordList(kws))
		return
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /keywords [feed_id]")
		return
	}
	feed, err := b.store.GetFeed(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Feed #%d not found.", id))
		return
	}
	kws, err := b.store.ListFeedKeywords(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatFeedKeywords(feed, kws))
}

func (b *Bot) handleAddKeyword(ctx context.Context, chatID int64, args string) {
	parsed, err := ParseKeywordCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if parsed.FeedID != nil {
		if _, err := b.store.GetFeed(ctx, *parsed.FeedID); err != nil {
			b.reply(chatID, fmt.Sprintf("Feed #%d not found.", *parsed.FeedID))
			return
		}
	}

	kind, pattern := matcher.DeriveKind(parsed.Raw)
	if kind == model.KindRegex {
		if err := matcher.ValidateRegex(pattern); err != nil {
			b.reply(chatID, fmt.Sprintf("Invalid regex: %v", err))
			return
		}
	}

	kw := &model.Keyword{
		FeedID:   parsed.FeedID,
		Pattern:  pattern,
		Kind:     kind,
		IsActive: true,
	}
	if err := b.store.CreateKeyword(ctx, kw); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	scope := "global"
	if kw.FeedID != nil {
		scope = fmt.Sprintf("feed #%d", *kw.FeedID)
	}
	b.reply(chatID, fmt.Sprintf("Rule K%d added (%s, %s): %s", kw.ID, kindLabel(kw.Kind), scope, kw.Pattern))
}

func (b *Bot) handleRmKeyword(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmkw <rule_id>")
		return
	}

	kw, err := b.store.GetKeyword(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Rule K%d not found.", id))
		return
	}

	if err := b.store.DeleteKeyword(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Rule K%d removed: %s", id, kw.Pattern))
}

func (b *Bot) handleSettings(ctx context.Context, chatID, userID int64) {
	settings, err := b.store.GetUserSettings(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.sendSettings(chatID, settings)
}
