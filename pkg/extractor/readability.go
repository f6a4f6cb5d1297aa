package extractor

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// extractReadability lets go-readability pick the content region instead of
// the scored-candidate pipeline. Used for pages whose markup defeats the
// heuristics; the caller falls back to the heuristic path on error.
func (e *Extractor) extractReadability(htmlStr string, meta map[string]string) (string, error) {
	pageURL, err := url.Parse(e.cfg.BaseURL)
	if err != nil || e.cfg.BaseURL == "" {
		// readability wants a page URL for link resolution; a blank one
		// only disables that.
		pageURL = &url.URL{Scheme: "https", Host: "localhost"}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(htmlStr), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse with readability: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", fmt.Errorf("readability produced no content")
	}

	if meta != nil {
		if article.Title != "" {
			meta["title"] = article.Title
		}
		if article.Byline != "" {
			meta["author"] = article.Byline
		}
		if article.Excerpt != "" {
			meta["description"] = article.Excerpt
		}
		if article.SiteName != "" {
			meta["site_name"] = article.SiteName
		}
	}

	return article.Content, nil
}
