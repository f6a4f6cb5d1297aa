package scorer

import (
	"fmt"
	"regexp"
	"strings"
)

// Vocabulary holds the class/id word lists used for lexical scoring. The
// lists are configuration data, not literals baked into the scorer, so
// deployments can tune them per site.
type Vocabulary struct {
	Negative []string `yaml:"negative"`
	Positive []string `yaml:"positive"`
}

// DefaultVocabulary returns the built-in word lists. Negative terms mark
// navigation, comments, ads, social chrome, cookie banners, pagination and
// hidden elements; positive terms mark article bodies.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Negative: []string{
			"nav", "navbar", "navigation", "menu", "sidebar", "breadcrumb",
			"comment", "comments", "disqus",
			"ad", "ads", "advert", "advertisement", "banner", "sponsor", "promo",
			"social", "share", "sharing",
			"cookie", "consent", "gdpr",
			"pagination", "pager",
			"hidden", "invisible", "popup", "modal",
			"footer", "widget", "related",
		},
		Positive: []string{
			"article", "body", "content", "entry", "main",
			"post", "prose", "blog", "story", "text",
		},
	}
}

type matcher struct {
	negative *regexp.Regexp
	positive *regexp.Regexp
}

// compile turns the word lists into case-insensitive word-boundary patterns.
func (v Vocabulary) compile() (matcher, error) {
	neg, err := compileWordList(v.Negative)
	if err != nil {
		return matcher{}, fmt.Errorf("failed to compile negative vocabulary: %w", err)
	}
	pos, err := compileWordList(v.Positive)
	if err != nil {
		return matcher{}, fmt.Errorf("failed to compile positive vocabulary: %w", err)
	}
	return matcher{negative: neg, positive: pos}, nil
}

func compileWordList(words []string) (*regexp.Regexp, error) {
	if len(words) == 0 {
		// Match nothing.
		return regexp.Compile(`\b\B`)
	}

	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return regexp.Compile(`\b\B`)
	}

	return regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}
