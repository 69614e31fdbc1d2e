package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "../../testdata/sample.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		wantTitle string
		wantItems int
		wantErr   error
	}{
		{
			name:      "successful fetch drops only unusable entries",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "Dev Watch",
			wantItems: 5,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   &StatusError{Code: 404},
		},
		{
			name:      "timeout",
			transport: &mockTransport{err: context.DeadlineExceeded},
			wantErr:   ErrTimeout,
		},
		{
			name:      "unparseable document",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   &ParseError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			feed, err := f.Fetch(context.Background(), "https://example.com/rss")

			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				switch want := tt.wantErr.(type) {
				case *StatusError:
					var statusErr *StatusError
					if !errors.As(err, &statusErr) || statusErr.Code != want.Code {
						t.Fatalf("expected status error %v, got %v", want, err)
					}
				case *ParseError:
					var parseErr *ParseError
					if !errors.As(err, &parseErr) {
						t.Fatalf("expected parse error, got %v", err)
					}
				default:
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("expected %v, got %v", tt.wantErr, err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, feed.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(feed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchNormalization(t *testing.T) {
	xml := loadFixture(t, "../../testdata/sample.xml")
	f := New(&mockTransport{body: xml, statusCode: 200})

	feed, err := f.Fetch(context.Background(), "https://example.com/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(feed.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(feed.Items))
	}

	byTitle := make(map[string]Item, len(feed.Items))
	for _, item := range feed.Items {
		byTitle[item.Title] = item
	}

	release := byTitle["New Release v2"]
	wantSummary := "The second major release is out with plenty of fixes."
	if diff := cmp.Diff(wantSummary, release.Summary); diff != "" {
		t.Errorf("stripped summary mismatch (-want +got):\n%s", diff)
	}
	if release.Published == nil {
		t.Error("expected published time for release entry")
	}
	if release.Image != "" {
		t.Errorf("expected no image, got %q", release.Image)
	}

	tests := []struct {
		title     string
		wantImage string
	}{
		{title: "Python Remote Job at BigCorp", wantImage: "https://cdn.example.com/jobs/python.png"},
		{title: "Django Security Update", wantImage: "https://cdn.example.com/thumbs/django.jpg"},
		{title: "Flask Tips and Tricks", wantImage: "https://cdn.example.com/img/flask.jpg"},
		{title: "Kubernetes Weekly Digest", wantImage: "https://cdn.example.com/inline/k8s.png"},
	}
	for _, tt := range tests {
		item, ok := byTitle[tt.title]
		if !ok {
			t.Errorf("item %q missing from normalized feed", tt.title)
			continue
		}
		if diff := cmp.Diff(tt.wantImage, item.Image); diff != "" {
			t.Errorf("%s: image mismatch (-want +got):\n%s", tt.title, diff)
		}
	}

	noDate := byTitle["Django Security Update"]
	if noDate.Published != nil {
		t.Errorf("expected absent published time, got %v", noDate.Published)
	}
}

func TestFetchCapsEntries(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
	for i := 0; i < 80; i++ {
		b.WriteString(`<item><title>Entry</title><link>https://example.com/e</link></item>`)
	}
	b.WriteString(`</channel></rss>`)

	f := New(&mockTransport{body: b.String(), statusCode: 200})
	feed, err := f.Fetch(context.Background(), "https://example.com/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff(maxEntries, len(feed.Items)); diff != "" {
		t.Errorf("entry cap mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeEntryDiscards(t *testing.T) {
	tests := []struct {
		name  string
		entry *gofeed.Item
	}{
		{name: "empty title", entry: &gofeed.Item{Title: "  ", Link: "https://example.com/a"}},
		{name: "no link at all", entry: &gofeed.Item{Title: "Something"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := normalizeEntry(tt.entry); ok {
				t.Error("expected entry to be discarded")
			}
		})
	}
}

func TestNormalizeEntryLinkFallback(t *testing.T) {
	entry := &gofeed.Item{Title: "Alt only", Links: []string{"", "https://example.com/alt"}}
	item, ok := normalizeEntry(entry)
	if !ok {
		t.Fatal("expected entry to be kept")
	}
	if diff := cmp.Diff("https://example.com/alt", item.Link); diff != "" {
		t.Errorf("link mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryTruncation(t *testing.T) {
	entry := &gofeed.Item{
		Title:       "Long",
		Link:        "https://example.com/long",
		Description: strings.Repeat("x", 900),
	}
	item, ok := normalizeEntry(entry)
	if !ok {
		t.Fatal("expected entry to be kept")
	}
	if diff := cmp.Diff(maxSummary, len([]rune(item.Summary))); diff != "" {
		t.Errorf("summary length mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "absolute rss link",
			body: `<html><head><link rel="alternate" type="application/rss+xml" href="https://example.com/rss.xml"></head></html>`,
			want: "https://example.com/rss.xml",
		},
		{
			name: "relative atom link resolved against page",
			body: `<html><head><link rel="alternate" type="application/atom+xml" href="/atom.xml"></head></html>`,
			want: "https://example.com/atom.xml",
		},
		{
			name:    "stylesheet alternate ignored",
			body:    `<html><head><link rel="alternate" type="text/css" href="/style.css"></head></html>`,
			wantErr: true,
		},
		{
			name:    "no links at all",
			body:    `<html><head><title>plain page</title></head></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(&mockTransport{body: tt.body, statusCode: 200})
			got, err := f.Discover(context.Background(), "https://example.com/blog")

			if tt.wantErr {
				if !errors.Is(err, ErrNoFeedFound) {
					t.Fatalf("expected ErrNoFeedFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("discovered URL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
