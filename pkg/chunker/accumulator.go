package chunker

import (
	"math"
	"strings"

	"github.com/ragprep/ragprep/models"
)

// segmentSeparator joins appended segments; paragraph boundaries survive
// into the chunk text.
const segmentSeparator = "\n\n"

type accumulatorState int

const (
	stateEmpty accumulatorState = iota
	stateAccumulating
	stateFinalized
)

// accumulator is a single-chunk buffer with admission control. Segments are
// appended whole; the token count is always recomputed from the full
// accumulated string so separator and estimator non-linearity cannot drift
// the total. After Finalize it records a trailing-overlap suffix of whole
// segments for the next chunk to start from.
type accumulator struct {
	cfg      models.ChunkingConfig
	estimate TokenEstimator

	segments []string
	content  string
	tokens   int
	state    accumulatorState

	// overlap is the whole-segment suffix computed by the last finalize.
	overlap []string
}

// newAccumulator assumes cfg was validated by the chunker constructor.
func newAccumulator(cfg models.ChunkingConfig, estimate TokenEstimator) *accumulator {
	return &accumulator{cfg: cfg, estimate: estimate}
}

// canFit reports whether tryAdd would accept the segment, without mutating.
func (a *accumulator) canFit(segment string) bool {
	if strings.TrimSpace(segment) == "" {
		return true
	}
	return a.estimate(a.joined(segment)) <= a.cfg.MaxTokens
}

// tryAdd appends the segment if the resulting chunk stays within the max
// token budget. Blank segments are accepted as no-ops. A refusal leaves the
// buffer untouched; an empty buffer refusing a segment means the caller
// must sub-split it.
func (a *accumulator) tryAdd(segment string) bool {
	if strings.TrimSpace(segment) == "" {
		return true
	}

	candidate := a.joined(segment)
	if a.estimate(candidate) > a.cfg.MaxTokens {
		return false
	}

	a.append(segment, candidate)
	return true
}

// forceAdd appends unconditionally. Used only when a single atomic unit (a
// sentence) exceeds the max alone; it guarantees forward progress and bounds
// oversized chunks to one oversized atomic unit each.
func (a *accumulator) forceAdd(segment string) {
	if strings.TrimSpace(segment) == "" {
		return
	}
	a.append(segment, a.joined(segment))
}

func (a *accumulator) joined(segment string) string {
	if a.content == "" {
		return segment
	}
	return a.content + segmentSeparator + segment
}

func (a *accumulator) append(segment, candidate string) {
	a.segments = append(a.segments, segment)
	a.content = candidate
	a.tokens = a.estimate(candidate)
	a.state = stateAccumulating
}

// finalize trims the buffered content and builds the chunk, or returns nil
// when nothing meaningful accumulated. Computing the next chunk's overlap is
// a side effect; reset(true) consumes it.
func (a *accumulator) finalize(documentID string, index int, title string, startPos int, meta *models.DocumentMetadata) *models.DocumentChunk {
	content := strings.TrimSpace(a.content)
	if content == "" {
		return nil
	}

	a.overlap = a.computeOverlap()
	a.state = stateFinalized

	return &models.DocumentChunk{
		ID:               models.ChunkID(documentID, index),
		ParentDocumentID: documentID,
		ChunkIndex:       index,
		Title:            title,
		Content:          content,
		TokenCount:       a.estimate(content),
		StartPosition:    startPos,
		EndPosition:      startPos + len(content),
		Metadata:         meta,
	}
}

// computeOverlap walks the recorded segments backwards, taking whole
// segments until the overlap token budget is met. Segments are never split,
// so overlap boundaries always align with paragraph or sentence boundaries.
func (a *accumulator) computeOverlap() []string {
	target := int(math.Floor(float64(a.tokens) * a.cfg.OverlapPercentage))
	if target <= 0 {
		return nil
	}
	if a.tokens <= target {
		// The whole chunk fits the budget; carry all of it.
		out := make([]string, len(a.segments))
		copy(out, a.segments)
		return out
	}

	var taken []string
	accumulated := 0
	for i := len(a.segments) - 1; i >= 0 && accumulated < target; i-- {
		taken = append([]string{a.segments[i]}, taken...)
		accumulated = a.estimate(strings.Join(taken, segmentSeparator))
	}
	return taken
}

// reset clears the buffer. With includeOverlap the new buffer is seeded
// with the overlap recorded by the last finalize, which is then consumed.
func (a *accumulator) reset(includeOverlap bool) {
	seed := a.overlap
	a.segments = nil
	a.content = ""
	a.tokens = 0
	a.state = stateEmpty
	a.overlap = nil

	if !includeOverlap || len(seed) == 0 {
		return
	}

	a.segments = append(a.segments, seed...)
	a.content = strings.Join(seed, segmentSeparator)
	a.tokens = a.estimate(a.content)
	a.state = stateAccumulating
}
