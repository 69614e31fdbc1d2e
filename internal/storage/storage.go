// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"rss_sentinel/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateFeed(ctx context.Context, feed *model.Feed) error
	GetFeed(ctx context.Context, id int64) (*model.Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*model.Feed, error)
	ListFeeds(ctx context.Context) ([]model.Feed, error)
	ListActiveFeeds(ctx context.Context) ([]model.Feed, error)
	UpdateFeed(ctx context.Context, id int64, patch model.FeedPatch) error
	IncrementFeedError(ctx context.Context, id int64) error
	SetFeedActive(ctx context.Context, id int64, active bool) error
	DeleteFeed(ctx context.Context, id int64) error

	CreateKeyword(ctx context.Context, kw *model.Keyword) error
	GetKeyword(ctx context.Context, id int64) (*model.Keyword, error)
	ListGlobalKeywords(ctx context.Context) ([]model.Keyword, error)
	ListFeedKeywords(ctx context.Context, feedID int64) ([]model.Keyword, error)
	ListKeywords(ctx context.Context) ([]model.Keyword, error)
	DeleteKeyword(ctx context.Context, id int64) error

	MarkSent(ctx context.Context, feedID int64, title, url string) error
	IsSent(ctx context.Context, fingerprint string) (bool, error)
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	UpdateUserSettings(ctx context.Context, settings *model.UserSettings) error

	Close() error
}

// Fingerprint returns the stable dedup key for an item: the hex SHA-256
// of "feedID:itemURL".
func Fingerprint(feedID int64, url string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d:%s", feedID, url))
	return fmt.Sprintf("%x", h)
}
