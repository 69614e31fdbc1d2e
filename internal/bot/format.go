package bot

import (
	"fmt"
	"strings"

	"rss_sentinel/internal/model"
)

const (
	statusActive   = "active"
	statusDisabled = "disabled"
)

// FormatFeedList formats all feeds with status and rule counts.
func FormatFeedList(feeds []model.Feed, ruleCounts map[int64]int, globalRules int) string {
	if len(feeds) == 0 {
		return "No feeds yet. Use /add <url> to subscribe."
	}
	var b strings.Builder
	b.WriteString("Feeds:\n")
	for _, f := range feeds {
		status := statusActive
		if !f.IsActive {
			status = statusDisabled
		}
		fmt.Fprintf(&b, "\n#%d %s [%s]\n", f.ID, feedLabel(&f), status)
		fmt.Fprintf(&b, "   %s\n", f.URL)
		if f.ErrorCount > 0 {
			fmt.Fprintf(&b, "   errors: %d/%d\n", f.ErrorCount, model.ErrorThreshold)
		}
		if n := ruleCounts[f.ID]; n > 0 {
			fmt.Fprintf(&b, "   %d feed rule(s)\n", n)
		}
		if f.LastFetchAt != nil {
			fmt.Fprintf(&b, "   last fetch: %s\n", f.LastFetchAt.Format("2006-01-02 15:04 UTC"))
		}
	}
	fmt.Fprintf(&b, "\n%d global rule(s) apply to every feed.", globalRules)
	return b.String()
}

// FormatKeywordList formats all rules, global ones first.
func FormatKeywordList(kws []model.Keyword) string {
	if len(kws) == 0 {
		return "No rules yet. Use /addkw <rule> to add one."
	}

	var global, scoped []model.Keyword
	for _, kw := range kws {
		if kw.IsGlobal() {
			global = append(global, kw)
		} else {
			scoped = append(scoped, kw)
		}
	}

	var b strings.Builder
	if len(global) > 0 {
		b.WriteString("Global rules:\n")
		for _, kw := range global {
			writeKeywordLine(&b, kw)
		}
	}
	if len(scoped) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Feed rules:\n")
		for _, kw := range scoped {
			fmt.Fprintf(&b, "  K%d [%s] (feed #%d): %s%s\n", kw.ID, kindLabel(kw.Kind), *kw.FeedID, kw.Pattern, inactiveSuffix(kw))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatFeedKeywords formats the rules owned by one feed.
func FormatFeedKeywords(feed *model.Feed, kws []model.Keyword) string {
	if len(kws) == 0 {
		return fmt.Sprintf("No rules for #%d %s.\nUse /addkw -f %d <rule> to add one.", feed.ID, feedLabel(feed), feed.ID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rules for #%d %s:\n", feed.ID, feedLabel(feed))
	for _, kw := range kws {
		writeKeywordLine(&b, kw)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSettings formats a user's notification preferences.
func FormatSettings(s *model.UserSettings) string {
	return fmt.Sprintf("Your settings:\nDigest mode: %s\nImage attachments: %s",
		onOff(s.DigestMode), onOff(s.NotifyWithImage))
}

func writeKeywordLine(b *strings.Builder, kw model.Keyword) {
	fmt.Fprintf(b, "  K%d [%s]: %s%s\n", kw.ID, kindLabel(kw.Kind), kw.Pattern, inactiveSuffix(kw))
}

func inactiveSuffix(kw model.Keyword) string {
	if kw.IsActive {
		return ""
	}
	return " (inactive)"
}

func feedLabel(f *model.Feed) string {
	if f.Title != "" {
		return f.Title
	}
	return f.URL
}

func kindLabel(kind model.KeywordKind) string {
	switch kind {
	case model.KindAnd:
		return "and"
	case model.KindOr:
		return "or"
	case model.KindNot:
		return "not"
	case model.KindRegex:
		return "regex"
	default:
		return "plain"
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
