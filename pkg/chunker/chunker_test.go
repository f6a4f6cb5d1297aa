package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragprep/ragprep/models"
)

func testConfig() models.ChunkingConfig {
	return models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      100, // 400 chars
		MaxTokens:         200, // 800 chars
		OverlapPercentage: 0.15,
	}
}

func newTestChunker(t *testing.T, cfg models.ChunkingConfig) *Chunker {
	t.Helper()
	c, err := New(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNewValidatesBudgets(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ChunkingConfig
	}{
		{
			name: "min above target",
			cfg:  models.ChunkingConfig{MinTokens: 200, TargetTokens: 100, MaxTokens: 300, OverlapPercentage: 0.1},
		},
		{
			name: "target above max",
			cfg:  models.ChunkingConfig{MinTokens: 10, TargetTokens: 400, MaxTokens: 300, OverlapPercentage: 0.1},
		},
		{
			name: "zero min",
			cfg:  models.ChunkingConfig{MinTokens: 0, TargetTokens: 100, MaxTokens: 300, OverlapPercentage: 0.1},
		},
		{
			name: "overlap above one",
			cfg:  models.ChunkingConfig{MinTokens: 10, TargetTokens: 100, MaxTokens: 300, OverlapPercentage: 1.5},
		},
		{
			name: "negative overlap",
			cfg:  models.ChunkingConfig{MinTokens: 10, TargetTokens: 100, MaxTokens: 300, OverlapPercentage: -0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestChunkRequiresDocumentID(t *testing.T) {
	c := newTestChunker(t, testConfig())
	_, err := c.Chunk("# Hi\n\nText.", "", nil)
	assert.Error(t, err)
}

func TestParseSections(t *testing.T) {
	md := `leading prose before any heading

# First

body one

## Nested

body two

# Second`

	sections := ParseSections(md)
	require.Len(t, sections, 4)

	assert.Equal(t, "Untitled", sections[0].Title)
	assert.Equal(t, 0, sections[0].Level)
	assert.Contains(t, sections[0].Content, "leading prose")

	assert.Equal(t, "First", sections[1].Title)
	assert.Equal(t, 1, sections[1].Level)
	assert.True(t, strings.HasPrefix(sections[1].Content, "# First"),
		"section content must include its heading line")

	assert.Equal(t, "Nested", sections[2].Title)
	assert.Equal(t, 2, sections[2].Level)

	// Heading-only trailing section still flushes.
	assert.Equal(t, "Second", sections[3].Title)
	assert.Equal(t, "# Second", strings.TrimSpace(sections[3].Content))
}

func TestParseSectionsBlankDocument(t *testing.T) {
	assert.Empty(t, ParseSections("   \n\n  \t\n"))
}

func TestChunkThreeShortSections(t *testing.T) {
	md := `# Intro

A short opening paragraph.

# Middle

A short middle paragraph.

# End

A short closing paragraph.`

	c := newTestChunker(t, testConfig())
	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	wantTitles := []string{"Intro", "Middle", "End"}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, fmt.Sprintf("doc_chunk_%d", i), ch.ID)
		assert.Equal(t, wantTitles[i], ch.Title)
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
	}
}

func TestChunkOversizedParagraphSplitsWithOverlap(t *testing.T) {
	// One ~5000 char paragraph of numbered sentences, max budget ~2000 chars.
	var b strings.Builder
	for i := 0; b.Len() < 5000; i++ {
		fmt.Fprintf(&b, "Sentence number %d carries a modest amount of unique content. ", i)
	}
	md := "# Big\n\n" + b.String()

	cfg := models.ChunkingConfig{
		MinTokens:         50,
		TargetTokens:      250,
		MaxTokens:         500, // ~2000 chars
		OverlapPercentage: 0.2,
	}
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// chunk[1] begins with overlap carried from chunk[0]'s tail: some prefix
	// run of its segments, joined, is a suffix of chunk[0].
	segments := strings.Split(chunks[1].Content, segmentSeparator)
	found := false
	for k := 1; k <= len(segments); k++ {
		if strings.HasSuffix(chunks[0].Content, strings.Join(segments[:k], segmentSeparator)) {
			found = true
			break
		}
	}
	assert.True(t, found, "chunk[1] must start with trailing segments of chunk[0]")
}

func TestChunkIndicesGlobalAcrossSections(t *testing.T) {
	long := strings.Repeat("A sentence with several words in it. ", 60) // ~2200 chars

	md := "# One\n\n" + long + "\n\n# Two\n\nshort body\n\n# Three\n\n" + long

	cfg := models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      100, // 400 chars: the long sections must split
		MaxTokens:         200,
		OverlapPercentage: 0.1,
	}
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex, "indices must be contiguous across the whole document")
	}
}

func TestChunkSizeBound(t *testing.T) {
	md := "# Doc\n\n" + strings.Repeat("Many small sentences flow here. ", 200)

	cfg := testConfig()
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)

	for _, ch := range chunks {
		// No sentence exceeds max alone here, so no chunk was force-built.
		assert.LessOrEqual(t, EstimateTokens(ch.Content), cfg.MaxTokens,
			"chunk %d exceeds the max token budget", ch.ChunkIndex)
	}
}

func TestChunkForceAddBoundsOversizedSentence(t *testing.T) {
	// A single "sentence" with no terminators, far above max.
	monster := strings.Repeat("unbroken tokens without punctuation ", 60) // ~2100 chars
	md := "# Doc\n\n" + monster

	cfg := models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      50,
		MaxTokens:         100, // 400 chars
		OverlapPercentage: 0.1,
	}
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	oversized := 0
	for _, ch := range chunks {
		if EstimateTokens(ch.Content) > cfg.MaxTokens {
			oversized++
		}
	}
	assert.Equal(t, 1, oversized, "exactly the one atomic unit may exceed max")
}

func TestChunkWhitespaceOnlyDocument(t *testing.T) {
	c := newTestChunker(t, testConfig())

	chunks, err := c.Chunk("  \n\n \t \n", "doc", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkCoverageModuloWhitespaceAndOverlap(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Section One\n\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Unique sentence %d for the first region. ", i)
	}
	b.WriteString("\n\n# Section Two\n\n")
	for i := 40; i < 80; i++ {
		fmt.Fprintf(&b, "Unique sentence %d for the second region. ", i)
	}
	md := b.String()

	cfg := models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      100,
		MaxTokens:         200,
		OverlapPercentage: 0.2,
	}
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Rebuild the document, dropping leading segments of each chunk that
	// repeat the previous chunk's tail (the carried overlap).
	var rebuilt strings.Builder
	prev := ""
	for _, ch := range chunks {
		segments := strings.Split(ch.Content, segmentSeparator)
		for len(segments) > 0 && prev != "" && strings.Contains(prev, segments[0]) {
			segments = segments[1:]
		}
		rebuilt.WriteString(strings.Join(segments, segmentSeparator))
		rebuilt.WriteString("\n")
		prev = ch.Content
	}

	squash := regexp.MustCompile(`\s+`)
	want := squash.ReplaceAllString(md, "")
	got := squash.ReplaceAllString(rebuilt.String(), "")
	assert.Equal(t, want, got, "concatenated chunks must reconstruct the source")
}

func TestChunkNoOverlapAcrossSectionBoundary(t *testing.T) {
	long := strings.Repeat("Filler sentence with some words. ", 40) // ~1300 chars, splits

	md := "# One\n\n" + long + "\n\n# Two\n\nShort second section body."

	cfg := models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      100,
		MaxTokens:         200,
		OverlapPercentage: 0.3,
	}
	c := newTestChunker(t, cfg)

	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "Two", last.Title)
	assert.False(t, strings.Contains(last.Content, "Filler sentence"),
		"overlap must not leak across section boundaries")
}

func TestChunkEmptyBodiedSectionStillEmits(t *testing.T) {
	md := "# Lonely Heading"

	c := newTestChunker(t, testConfig())
	chunks, err := c.Chunk(md, "doc", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Lonely Heading", chunks[0].Title)
	assert.Equal(t, "# Lonely Heading", chunks[0].Content)
}

func TestChunkMetadataSharedReference(t *testing.T) {
	meta := &models.DocumentMetadata{Title: "Doc Title"}
	c := newTestChunker(t, testConfig())

	chunks, err := c.Chunk("# A\n\nbody\n\n# B\n\nbody", "doc", meta)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.Same(t, meta, ch.Metadata)
	}
}

func TestStripFrontmatter(t *testing.T) {
	md := `---
title: My Doc
tags:
  - go
  - rag
draft: false
---

# Heading

Body text.`

	fields, body := StripFrontmatter(md)
	require.NotNil(t, fields)

	assert.Equal(t, "My Doc", fields["title"])
	assert.Equal(t, "go,rag", fields["tags"])
	assert.Equal(t, "false", fields["draft"])
	assert.Equal(t, "# Heading\n\nBody text.", strings.TrimSpace(body))
}

func TestStripFrontmatterAbsent(t *testing.T) {
	tests := []struct {
		name string
		md   string
	}{
		{name: "no frontmatter", md: "# Just\n\na doc"},
		{name: "unterminated block", md: "---\ntitle: x\nno closing fence"},
		{name: "not yaml", md: "---\n[this is not yaml\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, body := StripFrontmatter(tt.md)
			assert.Nil(t, fields)
			assert.Equal(t, tt.md, body)
		})
	}
}

func TestChunkMergesFrontmatterIntoMetadata(t *testing.T) {
	md := `---
title: Front Title
author: someone
---

# Heading

Body text here.`

	meta := &models.DocumentMetadata{}
	c := newTestChunker(t, testConfig())

	chunks, err := c.Chunk(md, "doc", meta)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "Front Title", meta.Extra["title"])
	assert.Equal(t, "someone", meta.Extra["author"])
	assert.False(t, strings.Contains(chunks[0].Content, "Front Title:"),
		"frontmatter must be stripped before chunking")
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "One here. Two there! Three anywhere?",
			want: []string{"One here.", "Two there!", "Three anywhere?"},
		},
		{
			name: "no trailing terminator",
			text: "First one. trailing fragment",
			want: []string{"First one.", "trailing fragment"},
		},
		{
			name: "terminator without whitespace does not split",
			text: "version 1.2 of the tool",
			want: []string{"version 1.2 of the tool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))

	// Monotonic in length.
	prev := 0
	for i := 1; i < 64; i++ {
		cur := EstimateTokens(strings.Repeat("y", i))
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
