// Package matcher implements the keyword rule matching engine.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"rss_sentinel/internal/model"
)

// DeriveKind determines a keyword's kind from its raw input syntax and
// returns the kind together with the stored pattern. The kind is fixed at
// creation time; first matching form wins:
//
//	regex:<expr>      -> regex, pattern = <expr>
//	+a+b              -> and,   pattern = a+b
//	|a|b              -> or,    pattern = a|b
//	a -b              -> not,   pattern unchanged
//	anything else     -> plain
func DeriveKind(raw string) (model.KeywordKind, string) {
	switch {
	case strings.HasPrefix(raw, "regex:"):
		return model.KindRegex, strings.TrimPrefix(raw, "regex:")
	case strings.HasPrefix(raw, "+"):
		return model.KindAnd, strings.TrimPrefix(raw, "+")
	case strings.HasPrefix(raw, "|"):
		return model.KindOr, strings.TrimPrefix(raw, "|")
	case strings.Contains(raw, " -"):
		return model.KindNot, raw
	default:
		return model.KindPlain, raw
	}
}

// Matches reports whether a keyword rule matches the given item text.
// Matching is case-insensitive and operates on title and summary joined
// with a single space. A keyword with an invalid regex never matches and
// never returns an error.
func Matches(title, summary string, kw model.Keyword) bool {
	text := strings.ToLower(title + " " + summary)

	switch kw.Kind {
	case model.KindAnd:
		for _, part := range strings.Split(kw.Pattern, "+") {
			if !strings.Contains(text, strings.ToLower(strings.TrimSpace(part))) {
				return false
			}
		}
		return true

	case model.KindOr:
		for _, part := range strings.Split(kw.Pattern, "|") {
			if strings.Contains(text, strings.ToLower(strings.TrimSpace(part))) {
				return true
			}
		}
		return false

	case model.KindNot:
		main, exclude, ok := splitNot(kw.Pattern)
		if !ok {
			return strings.Contains(text, strings.ToLower(kw.Pattern))
		}
		return strings.Contains(text, main) && !strings.Contains(text, exclude)

	case model.KindRegex:
		re, err := regexp.Compile("(?i)" + kw.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)

	default:
		return strings.Contains(text, strings.ToLower(kw.Pattern))
	}
}

// MatchAll evaluates every active keyword against the item and returns the
// patterns of all that matched. Rules are independent: a bad rule never
// stops evaluation of the rest.
func MatchAll(title, summary string, keywords []model.Keyword) []string {
	var matched []string
	for _, kw := range keywords {
		if !kw.IsActive {
			continue
		}
		if Matches(title, summary, kw) {
			matched = append(matched, kw.Pattern)
		}
	}
	return matched
}

// splitNot splits a "main -exclude" pattern on the first space-hyphen.
// ok is false when the split does not yield two non-empty parts.
func splitNot(pattern string) (main, exclude string, ok bool) {
	before, after, found := strings.Cut(pattern, " -")
	if !found {
		return "", "", false
	}
	main = strings.ToLower(strings.TrimSpace(before))
	exclude = strings.ToLower(strings.TrimSpace(after))
	if main == "" || exclude == "" {
		return "", "", false
	}
	return main, exclude, true
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
