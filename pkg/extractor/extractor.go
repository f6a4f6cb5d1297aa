// Package extractor isolates the main content region of arbitrary HTML
// without a rendering browser. It runs a fixed pipeline: metadata capture,
// unconditional noise stripping, deny-list removal, scored candidate
// selection with a fallback chain, optional conditional cleaning inside the
// selected subtree, and optional relative URL resolution.
//
// Extraction is best-effort and never fails on malformed HTML; when no
// region clears the confidence floor it falls back to <body> or the whole
// document with a logged warning.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/ragprep/ragprep/models"
	"github.com/ragprep/ragprep/pkg/scorer"
)

// Mode selects the extraction strategy.
type Mode int

const (
	// ModeHeuristic is the scored-candidate pipeline. Default.
	ModeHeuristic Mode = iota
	// ModeReadability delegates content selection to go-readability,
	// keeping only the metadata and URL-resolution stages of the pipeline.
	ModeReadability
)

// Conditional-cleaning thresholds applied inside the selected subtree.
const (
	cleanMinTextLength  = 25
	cleanMaxLinkDensity = 0.5
	cleanMaxListItems   = 3
	cleanScoreCeiling   = 25 // link-dense blocks below this score are dropped
)

// Extractor strips noise from full HTML documents and returns the main
// content subtree as cleaned HTML. One Extractor may serve many documents;
// each Extract call owns its parse tree for the duration of the call.
type Extractor struct {
	cfg    models.ExtractionConfig
	mode   Mode
	scorer *scorer.Scorer
	log    zerolog.Logger
}

// New builds an Extractor from configuration. Vocabulary overrides in the
// config replace the scorer's built-in word lists. It fails only on
// uncompilable vocabulary terms.
func New(cfg models.ExtractionConfig, log zerolog.Logger) (*Extractor, error) {
	vocab := scorer.DefaultVocabulary()
	if len(cfg.NegativeVocabulary) > 0 {
		vocab.Negative = cfg.NegativeVocabulary
	}
	if len(cfg.PositiveVocabulary) > 0 {
		vocab.Positive = cfg.PositiveVocabulary
	}

	sc, err := scorer.New(vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	return &Extractor{cfg: cfg, scorer: sc, log: log}, nil
}

// SetMode switches the extraction strategy. The default is ModeHeuristic.
func (e *Extractor) SetMode(mode Mode) {
	e.mode = mode
}

// Extract runs the pipeline on one HTML document and returns the cleaned
// HTML of the selected content region. Page metadata (meta tags, og:title,
// <title>) is written into meta when non-nil, before any removal happens.
func (e *Extractor) Extract(htmlStr string, meta map[string]string) (string, error) {
	if e.mode == ModeReadability {
		if out, err := e.extractReadability(htmlStr, meta); err == nil {
			return out, nil
		}
		e.log.Warn().Msg("readability extraction failed, falling back to heuristic pipeline")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	// 1. Metadata first, since removal below may strip the tags it reads.
	if meta != nil {
		collectMetadata(doc, meta)
	}

	// 2-3. Unconditional stripping.
	doc.Find("script, style, noscript").Remove()
	removeComments(doc)

	// 4. Deny-list removal.
	e.removeDenied(doc)

	// 5. Candidate selection.
	content := e.selectContent(doc)

	// 6. Conditional cleaning inside the selected subtree.
	if e.cfg.AggressiveCleaning {
		e.cleanSubtree(content)
	}

	// 7. URL resolution.
	if e.cfg.ResolveRelativeURLs && e.cfg.BaseURL != "" {
		e.resolveURLs(content)
	}

	out, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned html: %w", err)
	}
	return out, nil
}

// collectMetadata reads <meta> name/property pairs, og:title, and the
// document <title> into the sink.
func collectMetadata(doc *goquery.Document, meta map[string]string) {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		meta["title"] = title
	}

	doc.Find("meta").Each(func(_ int, m *goquery.Selection) {
		content, ok := m.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return
		}

		key, ok := m.Attr("name")
		if !ok {
			key, ok = m.Attr("property")
		}
		if !ok || key == "" {
			return
		}
		meta[key] = content

		// og:title wins over <title> when both are present.
		if key == "og:title" {
			meta["title"] = content
		}
	})
}

// removeComments drops HTML comment nodes across the whole tree.
func removeComments(doc *goquery.Document) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		c := n.FirstChild
		for c != nil {
			next := c.NextSibling
			if c.Type == html.CommentNode {
				n.RemoveChild(c)
			} else {
				walk(c)
			}
			c = next
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
}

// removeDenied removes elements whose class contains a denied token (word
// match on the normalized class attribute) or whose id matches exactly.
func (e *Extractor) removeDenied(doc *goquery.Document) {
	if len(e.cfg.RemoveClassNames) == 0 && len(e.cfg.RemoveIDs) == 0 {
		return
	}

	denyClass := make(map[string]bool, len(e.cfg.RemoveClassNames))
	for _, c := range e.cfg.RemoveClassNames {
		denyClass[strings.ToLower(c)] = true
	}
	denyID := make(map[string]bool, len(e.cfg.RemoveIDs))
	for _, id := range e.cfg.RemoveIDs {
		denyID[id] = true
	}

	var doomed []*goquery.Selection
	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && denyID[id] {
			doomed = append(doomed, s)
			return
		}
		for _, token := range strings.Fields(strings.ToLower(s.AttrOr("class", ""))) {
			if denyClass[token] {
				doomed = append(doomed, s)
				return
			}
		}
	})

	// Removal is deferred so the traversal never sees a mutating tree.
	// Removing an already-detached descendant is a no-op.
	for _, s := range doomed {
		s.Remove()
	}
}

// selectContent picks the main-content region: configured selector hints
// meeting the confidence floor, then the best-scored article/main/[role=main],
// then the best div/section above the floor, then <body>, then the whole
// document. Ties between equal scores keep document order.
func (e *Extractor) selectContent(doc *goquery.Document) *goquery.Selection {
	for _, hint := range e.cfg.ContentSelectors {
		sel := e.findSafe(doc, hint)
		if sel == nil || sel.Length() == 0 {
			continue
		}
		first := sel.First()
		if e.scorer.Element(first).Confidence >= e.cfg.MinConfidenceThreshold {
			return first
		}
	}

	if best := e.bestScored(doc.Find("article, main, [role=main]"), nil); best != nil {
		return best
	}

	floor := e.cfg.MinConfidenceThreshold
	if best := e.bestScored(doc.Find("div, section"), &floor); best != nil {
		return best
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		e.log.Warn().Msg("no content region above confidence threshold, falling back to body")
		return body
	}

	e.log.Warn().Msg("document has no body, falling back to whole document")
	return doc.Selection
}

// bestScored returns the highest-scoring element of the candidate set, or
// nil when the set is empty or nothing clears the optional confidence floor.
// Iteration runs in document order and the strict comparison keeps the
// earliest element on ties.
func (e *Extractor) bestScored(candidates *goquery.Selection, floor *float64) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0

	candidates.Each(func(_ int, s *goquery.Selection) {
		sc := e.scorer.Element(s)
		if floor != nil && sc.Confidence < *floor {
			return
		}
		if best == nil || sc.Value > bestScore {
			best = s
			bestScore = sc.Value
		}
	})

	return best
}

// findSafe runs a selector hint, recovering from goquery's panic on
// selectors that fail to compile. Bad hints are configuration noise, not a
// reason to abort extraction.
func (e *Extractor) findSafe(doc *goquery.Document, selector string) (sel *goquery.Selection) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Str("selector", selector).Msg("invalid content selector hint, skipping")
			sel = nil
		}
	}()
	return doc.Find(selector)
}

// cleanSubtree removes container descendants of the selected region that
// look like residual chrome: negative score, near-empty text without
// images, link-dense blocks without a strong score, or link lists.
func (e *Extractor) cleanSubtree(content *goquery.Selection) {
	var doomed []*goquery.Selection

	content.Find("div, section, table, ul, ol").Each(func(_ int, s *goquery.Selection) {
		if e.shouldClean(s) {
			doomed = append(doomed, s)
		}
	})

	for _, s := range doomed {
		s.Remove()
	}
}

func (e *Extractor) shouldClean(s *goquery.Selection) bool {
	sc := e.scorer.Element(s)
	if sc.Value < 0 {
		return true
	}

	text := strings.TrimSpace(s.Text())
	if len(text) < cleanMinTextLength && s.Find("img").Length() == 0 {
		return true
	}

	if scorer.LinkDensity(s) > cleanMaxLinkDensity && sc.Value < cleanScoreCeiling {
		return true
	}

	items := s.Find("li").Length()
	if items > s.Find("p").Length() && items > cleanMaxListItems {
		return true
	}

	return false
}

// resolveURLs rewrites relative href/src attributes against the configured
// base URL. Fragment-only and javascript: hrefs are blanked, not resolved.
func (e *Extractor) resolveURLs(content *goquery.Selection) {
	base, err := url.Parse(e.cfg.BaseURL)
	if err != nil {
		e.log.Warn().Str("base_url", e.cfg.BaseURL).Msg("invalid base url, skipping url resolution")
		return
	}

	content.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			s.SetAttr("href", "")
			return
		}
		if resolved, ok := resolveAgainst(base, href); ok {
			s.SetAttr("href", resolved)
		}
	})

	content.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		if resolved, ok := resolveAgainst(base, s.AttrOr("src", "")); ok {
			s.SetAttr("src", resolved)
		}
	})
}

func resolveAgainst(base *url.URL, ref string) (string, bool) {
	if strings.TrimSpace(ref) == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
