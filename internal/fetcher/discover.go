package fetcher

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoFeedFound indicates a page that advertises no feed link.
var ErrNoFeedFound = errors.New("no feed link found")

// Discover fetches an HTML page and returns the first advertised RSS or
// Atom feed URL, resolved against the page URL. It is a best-effort check
// of <link rel="alternate"> tags only.
func (f *Fetcher) Discover(ctx context.Context, pageURL string) (string, error) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", ErrNoFeedFound
	}

	var found string
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if typ != "application/rss+xml" && typ != "application/atom+xml" {
			return true
		}
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		found = resolveURL(pageURL, strings.TrimSpace(href))
		return found == ""
	})

	if found == "" {
		return "", ErrNoFeedFound
	}
	return found, nil
}

func resolveURL(base, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
