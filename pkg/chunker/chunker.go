// Package chunker splits Markdown into an ordered sequence of bounded,
// context-preserving chunks. Documents are parsed into heading-delimited
// sections; sections within the target budget emit verbatim, oversized ones
// split at paragraph and sentence boundaries through a token-budgeted
// accumulator that carries trailing overlap between consecutive chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ragprep/ragprep/models"
)

// headingPattern matches an ATX heading line and captures level and title.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// untitledSection names leading prose that appears before the first heading.
const untitledSection = "Untitled"

// Chunker turns Markdown documents into chunk sequences. Construction
// validates the token budgets; a Chunker is stateless across documents and
// safe to reuse, but not to share across goroutines mid-document.
type Chunker struct {
	cfg      models.ChunkingConfig
	estimate TokenEstimator
}

// New validates the chunking policy and builds a Chunker. Budget ordering
// violations are configuration errors, reported immediately and never
// silently clamped. A nil estimator gets the default ~4 chars/token one.
func New(cfg models.ChunkingConfig, estimate TokenEstimator) (*Chunker, error) {
	if cfg.MinTokens <= 0 {
		return nil, fmt.Errorf("min tokens must be positive, got %d", cfg.MinTokens)
	}
	if cfg.TargetTokens <= cfg.MinTokens {
		return nil, fmt.Errorf("target tokens (%d) must exceed min tokens (%d)", cfg.TargetTokens, cfg.MinTokens)
	}
	if cfg.MaxTokens <= cfg.TargetTokens {
		return nil, fmt.Errorf("max tokens (%d) must exceed target tokens (%d)", cfg.MaxTokens, cfg.TargetTokens)
	}
	if cfg.OverlapPercentage < 0 || cfg.OverlapPercentage > 1 {
		return nil, fmt.Errorf("overlap percentage must be in [0,1], got %g", cfg.OverlapPercentage)
	}

	if estimate == nil {
		estimate = EstimateTokens
	}
	return &Chunker{cfg: cfg, estimate: estimate}, nil
}

// Chunk splits one Markdown document into ordered chunks. Chunk indices are
// contiguous from 0 across the whole document, never reset per section. A
// YAML frontmatter block is stripped before sectioning; its scalar keys are
// merged into the metadata extras. An all-blank document yields an empty
// list, not an error.
func (c *Chunker) Chunk(markdown, documentID string, meta *models.DocumentMetadata) ([]models.DocumentChunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id must not be empty")
	}

	front, body := StripFrontmatter(markdown)
	if meta != nil {
		for k, v := range front {
			meta.SetExtra(k, v)
		}
	}

	sections := ParseSections(body)

	var chunks []models.DocumentChunk
	index := 0
	position := 0

	for _, sec := range sections {
		if c.estimate(sec.Content) <= c.cfg.TargetTokens {
			// Fits the target: one chunk, verbatim. Even an empty-bodied
			// heading section flushes as its own chunk.
			content := strings.TrimSpace(sec.Content)
			if content != "" {
				chunks = append(chunks, models.DocumentChunk{
					ID:               models.ChunkID(documentID, index),
					ParentDocumentID: documentID,
					ChunkIndex:       index,
					Title:            sec.Title,
					Content:          content,
					TokenCount:       c.estimate(content),
					StartPosition:    position,
					EndPosition:      position + len(content),
					Metadata:         meta,
				})
				index++
			}
			position += len(sec.Content)
			continue
		}

		sub := c.splitSection(sec, documentID, &index, position, meta)
		chunks = append(chunks, sub...)
		position += len(sec.Content)
	}

	// Post-filter: no chunk leaves with blank content.
	filtered := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) != "" {
			filtered = append(filtered, ch)
		}
	}
	return filtered, nil
}

// splitSection breaks an oversized section into chunks at paragraph
// boundaries, falling back to sentences for paragraphs that exceed the max
// alone. The accumulator starts cold, so overlap never carries across
// section boundaries, only between the section's internal splits.
func (c *Chunker) splitSection(sec models.Section, documentID string, index *int, sectionStart int, meta *models.DocumentMetadata) []models.DocumentChunk {
	acc := newAccumulator(c.cfg, c.estimate)
	var chunks []models.DocumentChunk

	// cursor tracks source position; chunkStart is the cursor value when the
	// current chunk began accumulating new (non-overlap) content.
	cursor := sectionStart
	chunkStart := sectionStart

	emit := func() {
		if ch := acc.finalize(documentID, *index, sec.Title, chunkStart, meta); ch != nil {
			chunks = append(chunks, *ch)
			*index++
		}
		acc.reset(true)
		chunkStart = cursor
	}

	for _, para := range splitParagraphs(sec.Content) {
		if c.estimate(para) > c.cfg.MaxTokens {
			// Paragraph can never fit whole: flush what's pending, then
			// feed it sentence by sentence.
			emit()
			for _, sentence := range splitSentences(para) {
				if !acc.tryAdd(sentence) {
					emit()
					if !acc.tryAdd(sentence) {
						// One atomic sentence above max: take it anyway.
						acc.forceAdd(sentence)
					}
				}
				cursor += len(sentence) + 1
			}
			continue
		}

		if !acc.tryAdd(para) {
			emit()
			if !acc.tryAdd(para) {
				acc.forceAdd(para)
			}
		}
		cursor += len(para) + 2
	}

	// Whatever is still buffered becomes the final chunk of the section.
	if ch := acc.finalize(documentID, *index, sec.Title, chunkStart, meta); ch != nil {
		chunks = append(chunks, *ch)
		*index++
	}

	return chunks
}

// ParseSections splits Markdown into heading-delimited sections. A line
// matching `^#{1,6}\s+` starts a new section whose content includes the
// heading line; prose before the first heading becomes an "Untitled"
// section at level 0. Blank-only regions are dropped.
func ParseSections(markdown string) []models.Section {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")

	var sections []models.Section
	current := models.Section{Title: untitledSection, Level: 0}
	var buf []string

	flush := func() {
		content := strings.Join(buf, "\n")
		if strings.TrimSpace(content) != "" {
			current.Content = content
			sections = append(sections, current)
		}
		buf = nil
	}

	for _, line := range lines {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = models.Section{
				Title: strings.TrimSpace(m[2]),
				Level: len(m[1]),
			}
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}

// splitParagraphs splits on blank lines and drops empty results.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences breaks text at `.`, `!` or `?` followed by whitespace. The
// trailing remainder counts as a sentence even without a terminator.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
