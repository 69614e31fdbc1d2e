package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// normalizeEntry converts a parsed entry into a normalized item. Entries
// without a usable title or link are dropped; everything else degrades to
// an absent field rather than failing.
func normalizeEntry(entry *gofeed.Item) (Item, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return Item{}, false
	}

	link := entryLink(entry)
	if link == "" {
		return Item{}, false
	}

	// gofeed maps both Atom <summary> and RSS <description> into
	// Description, which is exactly the preference order wanted here.
	summary := entry.Description

	item := Item{
		Title:   title,
		Link:    link,
		Summary: truncate(stripHTML(summary), maxSummary),
		Image:   entryImage(entry),
	}
	if entry.PublishedParsed != nil {
		item.Published = entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		item.Published = entry.UpdatedParsed
	}
	return item, true
}

// entryLink prefers the entry's canonical link (gofeed resolves Atom
// rel=alternate into it) and falls back to the first listed link.
func entryLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	for _, link := range entry.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	return ""
}

// entryImage extracts an image URL, checking in strict order:
// media:content images, media:thumbnail, image-typed enclosures, then the
// first <img> found inside the rendered content.
func entryImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if strings.HasPrefix(content.Attrs["type"], "image/") || content.Attrs["medium"] == "image" {
				if url := content.Attrs["url"]; url != "" {
					return url
				}
			}
		}
		for _, thumb := range media["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}

	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if entry.Content != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(entry.Content))
		if err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok {
				return src
			}
		}
	}
	return ""
}

// stripHTML reduces markup to plain text with single-space word
// separation.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		return collapseWhitespace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(s)
	}
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
