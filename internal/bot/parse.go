package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// KeywordArgs holds the parsed arguments of /addkw.
type KeywordArgs struct {
	FeedID *int64 // nil means global
	Raw    string // raw rule input, kind not yet derived
}

// ParseKeywordCommand parses arguments for /addkw.
// Format: [-f feed_id] <rule...>
func ParseKeywordCommand(args string) (KeywordArgs, error) {
	rest := strings.TrimSpace(args)
	if rest == "" {
		return KeywordArgs{}, fmt.Errorf("usage: /addkw [-f feed_id] <rule>")
	}

	var feedID *int64
	if strings.HasPrefix(rest, "-f ") || strings.HasPrefix(rest, "-f\t") {
		parts := strings.Fields(rest)
		if len(parts) < 3 {
			return KeywordArgs{}, fmt.Errorf("usage: /addkw -f <feed_id> <rule>")
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return KeywordArgs{}, fmt.Errorf("invalid feed ID %q", parts[1])
		}
		feedID = &id
		idx := strings.Index(rest, parts[1])
		rest = strings.TrimSpace(rest[idx+len(parts[1]):])
	}

	if rest == "" {
		return KeywordArgs{}, fmt.Errorf("rule text is required")
	}
	return KeywordArgs{FeedID: feedID, Raw: rest}, nil
}

// normalizeURL defaults bare host names to https.
func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "https://" + s
	}
	return s
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
