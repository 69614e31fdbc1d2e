// Package notifier renders matched items and delivers them to the
// configured recipients.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"rss_sentinel/internal/fetcher"
	"rss_sentinel/internal/model"
)

const (
	captionSummaryLimit = 200
	maxHashtags         = 5
)

// Transport sends messages to a single recipient. Both calls report
// success or failure for that recipient only.
type Transport interface {
	SendMessage(chatID int64, text string) error
	SendPhoto(chatID int64, photoURL, caption string) error
}

// SettingsStore reads per-recipient notification preferences.
type SettingsStore interface {
	GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
}

// Notifier dispatches one rendered message per matched item to every
// configured recipient, isolating per-recipient failures.
type Notifier struct {
	transport  Transport
	settings   SettingsStore
	recipients []int64
	log        *slog.Logger
}

// New creates a Notifier for the given recipient set.
func New(transport Transport, settings SettingsStore, recipients []int64, log *slog.Logger) *Notifier {
	return &Notifier{
		transport:  transport,
		settings:   settings,
		recipients: recipients,
		log:        log,
	}
}

// Notify renders the item once and attempts delivery to every recipient.
// A failure for one recipient is logged and never blocks the others.
func (n *Notifier) Notify(ctx context.Context, feedTitle string, item fetcher.Item, matched []string) {
	text := Render(feedTitle, item, matched)

	for _, chatID := range n.recipients {
		withImage := true
		if settings, err := n.settings.GetUserSettings(ctx, chatID); err != nil {
			n.log.Error("read user settings", "chat_id", chatID, "error", err)
		} else {
			withImage = settings.NotifyWithImage
		}

		var err error
		if item.Image != "" && withImage {
			err = n.transport.SendPhoto(chatID, item.Image, text)
		} else {
			err = n.transport.SendMessage(chatID, text)
		}
		if err != nil {
			n.log.Error("deliver notification", "chat_id", chatID, "url", item.Link, "error", err)
		}
	}
}

// Render formats a matched item as a notification message.
func Render(feedTitle string, item fetcher.Item, matched []string) string {
	var b strings.Builder
	b.WriteString(item.Title)
	fmt.Fprintf(&b, "\n\nSource: %s", feedTitle)

	if item.Summary != "" {
		summary := item.Summary
		if runes := []rune(summary); len(runes) > captionSummaryLimit {
			summary = string(runes[:captionSummaryLimit]) + "..."
		}
		b.WriteString("\n\n")
		b.WriteString(summary)
	}

	if item.Link != "" {
		b.WriteString("\n\n")
		b.WriteString(item.Link)
	}

	if tags := Hashtags(matched); tags != "" {
		b.WriteString("\n\n")
		b.WriteString(tags)
	}
	return b.String()
}

// Hashtags renders up to 5 matched rule labels as a hashtag list,
// replacing non-alphanumeric runes to keep each label taggable.
func Hashtags(matched []string) string {
	if len(matched) > maxHashtags {
		matched = matched[:maxHashtags]
	}
	tags := make([]string, 0, len(matched))
	for _, label := range matched {
		if tag := tagify(label); tag != "" {
			tags = append(tags, "#"+tag)
		}
	}
	return strings.Join(tags, " ")
}

func tagify(label string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, label)
	return strings.Trim(mapped, "_")
}
