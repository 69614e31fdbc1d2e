// Package model defines the domain types used across the application.
package model

import "time"

// ErrorThreshold is the number of consecutive fetch failures after which
// a feed is automatically disabled.
const ErrorThreshold = 10

// Feed represents a subscribed RSS/Atom feed.
type Feed struct {
	ID          int64
	URL         string
	Title       string
	Description string
	IsActive    bool
	ErrorCount  int
	LastFetchAt *time.Time
	CreatedAt   time.Time
}

// FeedPatch enumerates the feed fields the check cycle is allowed to
// mutate. Nil fields are left unchanged.
type FeedPatch struct {
	Title       *string
	Description *string
	LastFetchAt *time.Time
	ErrorCount  *int
	IsActive    *bool
}

// KeywordKind defines the matching strategy of a keyword rule.
type KeywordKind string

// Supported keyword kinds.
const (
	KindPlain KeywordKind = "plain"
	KindAnd   KeywordKind = "and"
	KindOr    KeywordKind = "or"
	KindNot   KeywordKind = "not"
	KindRegex KeywordKind = "regex"
)

// Keyword represents a single keyword rule. FeedID is nil for global
// rules that apply to every feed.
type Keyword struct {
	ID        int64
	FeedID    *int64
	Pattern   string
	Kind      KeywordKind
	IsActive  bool
	CreatedAt time.Time
}

// IsGlobal reports whether the keyword applies to all feeds.
func (k Keyword) IsGlobal() bool {
	return k.FeedID == nil
}

// SentItem records an item that has already been notified, keyed by a
// content fingerprint.
type SentItem struct {
	ID          int64
	Fingerprint string
	FeedID      int64
	Title       string
	URL         string
	SentAt      time.Time
}

// UserSettings holds per-recipient notification preferences.
type UserSettings struct {
	ID              int64
	UserID          int64
	DigestMode      bool
	NotifyWithImage bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
