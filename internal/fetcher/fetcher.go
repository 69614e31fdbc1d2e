// Package fetcher downloads RSS/Atom feeds and normalizes their entries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodySize  = 5 * 1024 * 1024
	maxEntries   = 50
	maxSummary   = 500
)

// ErrTimeout indicates the feed did not respond within the fetch timeout.
var ErrTimeout = errors.New("fetch timeout")

// StatusError indicates a non-200 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// ParseError indicates a document that yielded no recoverable entries.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Feed is a parsed feed with its normalized entries.
type Feed struct {
	Title       string
	Description string
	Link        string
	Items       []Item
}

// Item is a single normalized feed entry. Title and Link are always
// non-empty; Summary is plain text capped at 500 characters; Image and
// Published are best-effort and may be absent.
type Item struct {
	Title     string
	Link      string
	Summary   string
	Image     string
	Published *time.Time
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: fetchTimeout,
	}
}

// Fetch downloads and parses the feed at url, returning feed metadata and
// up to 50 normalized entries in document order. A malformed document that
// still yields entries is not an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Feed, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	feed := &Feed{
		Title:       parsed.Title,
		Description: parsed.Description,
		Link:        parsed.Link,
	}
	for _, entry := range parsed.Items {
		if len(feed.Items) >= maxEntries {
			break
		}
		if item, ok := normalizeEntry(entry); ok {
			feed.Items = append(feed.Items, item)
		}
	}
	return feed, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "RSS-Sentinel-Bot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
