package chunker

import (
	"strings"
	"testing"

	"github.com/ragprep/ragprep/models"
)

func testBudget() models.ChunkingConfig {
	return models.ChunkingConfig{
		MinTokens:         10,
		TargetTokens:      50,
		MaxTokens:         100, // 400 chars with the default estimator
		OverlapPercentage: 0.25,
	}
}

func TestTryAddBlankSegmentIsNoop(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	if !acc.tryAdd("   \n\t ") {
		t.Fatalf("tryAdd(blank) = false, want true")
	}
	if acc.content != "" || len(acc.segments) != 0 {
		t.Errorf("blank segment mutated the buffer: %q", acc.content)
	}
	if acc.state != stateEmpty {
		t.Errorf("state = %v, want stateEmpty", acc.state)
	}
}

func TestTryAddRefusalDoesNotMutate(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	small := strings.Repeat("word ", 20) // ~100 chars, 25 tokens
	if !acc.tryAdd(small) {
		t.Fatalf("tryAdd(small) = false, want true")
	}
	before := acc.content

	big := strings.Repeat("word ", 80) // ~400 chars, would exceed max combined
	if acc.tryAdd(big) {
		t.Fatalf("tryAdd(big) = true, want refusal")
	}
	if acc.content != before {
		t.Errorf("refused add mutated the buffer")
	}
}

func TestTryAddRefusesOversizedSegmentOnEmptyBuffer(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	huge := strings.Repeat("word ", 200) // ~1000 chars, 250 tokens > max
	if acc.tryAdd(huge) {
		t.Fatalf("tryAdd(huge) on empty buffer = true, want refusal")
	}
	if acc.state != stateEmpty {
		t.Errorf("refusal changed state to %v", acc.state)
	}
}

func TestCanFitMatchesTryAddWithoutMutating(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)
	seg := strings.Repeat("word ", 30)

	if !acc.canFit(seg) {
		t.Fatalf("canFit = false for a segment tryAdd would accept")
	}
	if acc.content != "" {
		t.Errorf("canFit mutated the buffer")
	}

	if !acc.tryAdd(seg) {
		t.Fatalf("tryAdd failed after canFit said it would fit")
	}

	big := strings.Repeat("word ", 80)
	if acc.canFit(big) != acc.tryAdd(big) {
		t.Errorf("canFit and tryAdd disagree")
	}
}

func TestForceAddIgnoresBudget(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	huge := strings.Repeat("word ", 200)
	acc.forceAdd(huge)

	if acc.state != stateAccumulating {
		t.Fatalf("forceAdd did not accumulate")
	}
	if acc.tokens <= testBudget().MaxTokens {
		t.Errorf("expected tokens above max after forceAdd, got %d", acc.tokens)
	}
}

func TestTokensRecomputedFromWholeBuffer(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	a := strings.Repeat("a", 10)
	b := strings.Repeat("b", 10)
	acc.tryAdd(a)
	acc.tryAdd(b)

	// Joined content includes the separator, so the whole-string estimate
	// differs from the sum of per-segment estimates.
	want := EstimateTokens(a + segmentSeparator + b)
	if acc.tokens != want {
		t.Errorf("tokens = %d, want %d (recomputed from whole buffer)", acc.tokens, want)
	}
}

func TestFinalizeEmptyReturnsNil(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	if ch := acc.finalize("doc", 0, "Title", 0, nil); ch != nil {
		t.Errorf("finalize on empty buffer = %+v, want nil", ch)
	}
}

func TestFinalizeBuildsChunk(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)
	meta := &models.DocumentMetadata{Title: "Doc"}

	content := "Some paragraph content here."
	acc.tryAdd(content)

	ch := acc.finalize("doc-1", 3, "Section", 120, meta)
	if ch == nil {
		t.Fatalf("finalize returned nil for non-empty buffer")
	}

	if ch.ID != "doc-1_chunk_3" {
		t.Errorf("ID = %q, want doc-1_chunk_3", ch.ID)
	}
	if ch.ParentDocumentID != "doc-1" || ch.ChunkIndex != 3 || ch.Title != "Section" {
		t.Errorf("chunk identity fields wrong: %+v", ch)
	}
	if ch.Content != content {
		t.Errorf("Content = %q, want %q", ch.Content, content)
	}
	if ch.StartPosition != 120 || ch.EndPosition != 120+len(content) {
		t.Errorf("positions = [%d, %d], want [120, %d]", ch.StartPosition, ch.EndPosition, 120+len(content))
	}
	if ch.Metadata != meta {
		t.Errorf("Metadata is not the shared reference")
	}
}

func TestOverlapWalksSegmentsBackwards(t *testing.T) {
	cfg := testBudget()
	cfg.OverlapPercentage = 0.3
	acc := newAccumulator(cfg, EstimateTokens)

	segs := []string{
		strings.Repeat("one ", 20),
		strings.Repeat("two ", 20),
		strings.Repeat("three ", 20),
	}
	for _, s := range segs {
		if !acc.tryAdd(s) {
			t.Fatalf("tryAdd(%q...) refused", s[:8])
		}
	}

	if acc.finalize("doc", 0, "", 0, nil) == nil {
		t.Fatalf("finalize returned nil")
	}

	if len(acc.overlap) == 0 {
		t.Fatalf("no overlap recorded")
	}
	// Overlap must be a suffix of the recorded segments, whole and in order.
	tail := segs[len(segs)-len(acc.overlap):]
	for i, seg := range acc.overlap {
		if seg != tail[i] {
			t.Errorf("overlap[%d] is not the matching whole segment", i)
		}
	}
}

func TestOverlapTakesWholeChunkWhenBudgetCoversIt(t *testing.T) {
	cfg := testBudget()
	cfg.OverlapPercentage = 1.0
	acc := newAccumulator(cfg, EstimateTokens)

	acc.tryAdd("first segment of text")
	acc.tryAdd("second segment of text")
	acc.finalize("doc", 0, "", 0, nil)

	if len(acc.overlap) != 2 {
		t.Errorf("overlap = %d segments, want the whole chunk (2)", len(acc.overlap))
	}
}

func TestZeroOverlapPercentageRecordsNoOverlap(t *testing.T) {
	cfg := testBudget()
	cfg.OverlapPercentage = 0
	acc := newAccumulator(cfg, EstimateTokens)

	acc.tryAdd("some segment of reasonable length here")
	acc.finalize("doc", 0, "", 0, nil)

	if len(acc.overlap) != 0 {
		t.Errorf("overlap recorded despite zero percentage")
	}
}

func TestResetSeedsWithOverlap(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	acc.tryAdd(strings.Repeat("alpha ", 15))
	acc.tryAdd(strings.Repeat("omega ", 15))
	acc.finalize("doc", 0, "", 0, nil)
	seed := strings.Join(acc.overlap, segmentSeparator)

	acc.reset(true)

	if acc.state != stateAccumulating {
		t.Fatalf("seeded buffer state = %v, want stateAccumulating", acc.state)
	}
	if acc.content != seed {
		t.Errorf("seeded content = %q, want %q", acc.content, seed)
	}
	if acc.overlap != nil {
		t.Errorf("overlap not consumed by reset")
	}
}

func TestResetWithoutOverlapClears(t *testing.T) {
	acc := newAccumulator(testBudget(), EstimateTokens)

	acc.tryAdd("some content")
	acc.finalize("doc", 0, "", 0, nil)
	acc.reset(false)

	if acc.state != stateEmpty || acc.content != "" || acc.tokens != 0 {
		t.Errorf("reset(false) left state behind: %+v", acc)
	}
}
