// Package scorer assigns content-likelihood scores to DOM elements. The
// score is a sum of independent heuristics (element type, class/id
// vocabulary, text shape, link density); confidence is the score normalized
// into [0,1]. Scoring is side-effect-free and never errors.
package scorer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Score is the result of scoring one element.
type Score struct {
	// Value is the raw additive score. Negative values indicate likely
	// boilerplate, values above ~25 likely primary content.
	Value int

	// Confidence is Value mapped into [0,1]: clamp(value+50, 0, 100)/100.
	Confidence float64
}

// Scorer scores elements against a class/id vocabulary. The zero value is
// not usable; construct with New or Default.
type Scorer struct {
	vocab matcher
}

// New creates a Scorer from the given vocabulary. It fails only when a
// vocabulary term cannot be compiled into a pattern.
func New(vocab Vocabulary) (*Scorer, error) {
	m, err := vocab.compile()
	if err != nil {
		return nil, err
	}
	return &Scorer{vocab: m}, nil
}

// Default returns a Scorer with the built-in vocabulary.
func Default() *Scorer {
	s, err := New(DefaultVocabulary())
	if err != nil {
		// The built-in vocabulary is static and known to compile.
		panic(err)
	}
	return s
}

// Element-type priors. Containers that typically wrap prose score higher.
var tagPriors = map[string]int{
	"article": 25,
	"main":    20,
	"section": 15,
	"div":     5,
	"p":       3,
	"td":      3,
	"pre":     3,
}

// Element scores a single element and returns its raw score and normalized
// confidence. The selection is expected to wrap one node; for multi-node
// selections the first node's tag and attributes are used.
func (s *Scorer) Element(sel *goquery.Selection) Score {
	if sel == nil || sel.Length() == 0 {
		return Score{Value: 0, Confidence: 0.5}
	}

	score := tagPriors[goquery.NodeName(sel)]
	score += s.classIDScore(sel)
	score += contentScore(sel)
	score += linkDensityPenalty(sel)
	score += imageRatioPenalty(sel)

	return Score{Value: score, Confidence: confidence(score)}
}

// classIDScore applies the lexical vocabularies to the concatenated class
// and id attributes. Negative and positive matches are independent, not
// mutually exclusive, so an element can earn both.
func (s *Scorer) classIDScore(sel *goquery.Selection) int {
	classID := strings.TrimSpace(sel.AttrOr("class", "") + " " + sel.AttrOr("id", ""))

	score := 0
	if classID != "" {
		if s.vocab.negative.MatchString(classID) {
			score -= 25
		}
		if s.vocab.positive.MatchString(classID) {
			score += 25
		}
	}
	if strings.EqualFold(sel.AttrOr("role", ""), "main") {
		score += 25
	}
	return score
}

// contentScore rewards text shape that looks like prose: commas, overall
// text volume, and paragraph children.
func contentScore(sel *goquery.Selection) int {
	text := sel.Text()

	commas := strings.Count(text, ",")
	if commas > 10 {
		commas = 10
	}

	lengthBonus := len(text) / 100
	if lengthBonus > 30 {
		lengthBonus = 30
	}

	return commas + lengthBonus + 3*sel.Find("p").Length()
}

func linkDensityPenalty(sel *goquery.Selection) int {
	density := LinkDensity(sel)
	switch {
	case density > 0.5:
		return -25
	case density > 0.3:
		return -10
	default:
		return 0
	}
}

// imageRatioPenalty demotes galleries: more images than paragraphs and more
// than a single image.
func imageRatioPenalty(sel *goquery.Selection) int {
	images := sel.Find("img").Length()
	if images > sel.Find("p").Length() && images > 1 {
		return -10
	}
	return 0
}

// LinkDensity returns the ratio of anchor text length to total text length
// in the subtree. An empty subtree has density 1.0; no text means nothing
// worth keeping.
func LinkDensity(sel *goquery.Selection) float64 {
	if sel == nil || sel.Length() == 0 {
		return 1.0
	}

	textLen := len(sel.Text())
	if textLen == 0 {
		return 1.0
	}

	linkLen := 0
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(a.Text())
	})

	return float64(linkLen) / float64(textLen)
}

// TextDensity returns the ratio of text length to markup length for the
// subtree. Dense markup with little text suggests chrome, not content.
func TextDensity(sel *goquery.Selection) float64 {
	if sel == nil || sel.Length() == 0 {
		return 0
	}

	markup, err := goquery.OuterHtml(sel)
	if err != nil || len(markup) == 0 {
		return 0
	}

	return float64(len(sel.Text())) / float64(len(markup))
}

func confidence(score int) float64 {
	n := score + 50
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return float64(n) / 100
}
