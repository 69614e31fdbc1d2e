package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rss_sentinel/internal/model"
)

func kw(kind model.KeywordKind, pattern string) model.Keyword {
	return model.Keyword{Pattern: pattern, Kind: kind, IsActive: true}
}

func TestDeriveKind(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantKind    model.KeywordKind
		wantPattern string
	}{
		{name: "plain word", raw: "python", wantKind: model.KindPlain, wantPattern: "python"},
		{name: "plain phrase", raw: "machine learning", wantKind: model.KindPlain, wantPattern: "machine learning"},
		{name: "regex prefix", raw: "regex:^release v\\d+", wantKind: model.KindRegex, wantPattern: "^release v\\d+"},
		{name: "and prefix", raw: "+python+remote", wantKind: model.KindAnd, wantPattern: "python+remote"},
		{name: "or prefix", raw: "|django|flask", wantKind: model.KindOr, wantPattern: "django|flask"},
		{name: "not via space-hyphen", raw: "python -snake", wantKind: model.KindNot, wantPattern: "python -snake"},
		{name: "regex wins over not", raw: "regex:a -b", wantKind: model.KindRegex, wantPattern: "a -b"},
		{name: "and wins over not", raw: "+python+remote -junior", wantKind: model.KindAnd, wantPattern: "python+remote -junior"},
		{name: "hyphen without space stays plain", raw: "type-safe", wantKind: model.KindPlain, wantPattern: "type-safe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, pattern := DeriveKind(tt.raw)
			if diff := cmp.Diff(tt.wantKind, kind); diff != "" {
				t.Errorf("kind mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPattern, pattern); diff != "" {
				t.Errorf("pattern mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		summary string
		kw      model.Keyword
		want    bool
	}{
		{
			name:  "plain matches title",
			title: "Python 3.13 released", kw: kw(model.KindPlain, "python"),
			want: true,
		},
		{
			name:  "plain matches summary",
			title: "Weekly digest", summary: "New Python tooling",
			kw:   kw(model.KindPlain, "python"),
			want: true,
		},
		{
			name:  "plain is case insensitive both ways",
			title: "PYTHON news", kw: kw(model.KindPlain, "Python"),
			want: true,
		},
		{
			name:  "plain no match",
			title: "Rust release", kw: kw(model.KindPlain, "python"),
			want: false,
		},
		{
			name:  "and all parts present",
			title: "Python Remote", kw: kw(model.KindAnd, "python+remote"),
			want: true,
		},
		{
			name:  "and one part missing",
			title: "PYTHON only", kw: kw(model.KindAnd, "python+remote"),
			want: false,
		},
		{
			name:  "and parts span title and summary",
			title: "Python job", summary: "fully remote position",
			kw:   kw(model.KindAnd, "python+remote"),
			want: true,
		},
		{
			name:  "and trims whitespace in parts",
			title: "python and remote", kw: kw(model.KindAnd, "python + remote"),
			want: true,
		},
		{
			name:  "or first alternative",
			title: "I love django", kw: kw(model.KindOr, "django|flask"),
			want: true,
		},
		{
			name:  "or second alternative",
			title: "flask 3.0 is out", kw: kw(model.KindOr, "django|flask"),
			want: true,
		},
		{
			name:  "or no alternative",
			title: "I love rails", kw: kw(model.KindOr, "django|flask"),
			want: false,
		},
		{
			name:  "not main without exclude",
			title: "python tutorial", kw: kw(model.KindNot, "python -snake"),
			want: true,
		},
		{
			name:  "not exclude present",
			title: "python snake game", kw: kw(model.KindNot, "python -snake"),
			want: false,
		},
		{
			name:  "not main absent",
			title: "go tutorial", kw: kw(model.KindNot, "python -snake"),
			want: false,
		},
		{
			name:  "not with empty exclude falls back to plain",
			title: "python -", kw: kw(model.KindNot, "python -"),
			want: true,
		},
		{
			name:  "regex matches",
			title: "Release v42 available", kw: kw(model.KindRegex, `release v\d+`),
			want: true,
		},
		{
			name:  "regex is case insensitive",
			title: "RELEASE V7", kw: kw(model.KindRegex, `release v\d+`),
			want: true,
		},
		{
			name:  "malformed regex never matches",
			title: "anything at all", kw: kw(model.KindRegex, "(unclosed"),
			want: false,
		},
		{
			name:  "unicode plain match",
			title: "Новый релиз Kubernetes", kw: kw(model.KindPlain, "релиз"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(tt.title, tt.summary, tt.kw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Matches() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchAll(t *testing.T) {
	keywords := []model.Keyword{
		kw(model.KindRegex, "(unclosed"),
		kw(model.KindPlain, "release"),
		kw(model.KindOr, "django|flask"),
		{Pattern: "release", Kind: model.KindPlain, IsActive: false},
	}

	got := MatchAll("New Release v2", "django update included", keywords)

	// the bad regex degrades to non-match and the rules after it still run;
	// the inactive duplicate is skipped entirely
	want := []string{"release", "django|flask"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MatchAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchAllNoMatches(t *testing.T) {
	got := MatchAll("quiet day", "", []model.Keyword{kw(model.KindPlain, "release")})
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestValidateRegex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "valid simple", pattern: "hello", wantErr: false},
		{name: "valid alternation", pattern: "k8s|docker", wantErr: false},
		{name: "invalid unclosed group", pattern: "(unclosed", wantErr: true},
		{name: "invalid repetition", pattern: "*bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegex(tt.pattern)
			gotErr := err != nil
			if diff := cmp.Diff(tt.wantErr, gotErr); diff != "" {
				t.Errorf("ValidateRegex() error mismatch (-want +got):\n%s\nerr: %v", diff, err)
			}
		})
	}
}
