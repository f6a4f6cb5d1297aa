// Package detector performs cheap analysis of extracted text to enrich
// document metadata before indexing.
package detector

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// minLanguageConfidence is the floor below which a detection is reported
// as not found rather than as a wrong guess.
const minLanguageConfidence = 0.6

// sampleSize bounds how much text lingua sees; detection quality plateaus
// well before this and the models are expensive on long inputs.
const sampleSize = 2048

// LanguageDetector identifies the natural language of extracted content.
// Building one loads lingua's language models, so construct once and reuse.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector builds a detector restricted to the languages the
// pipeline commonly ingests, which keeps model memory manageable.
func NewLanguageDetector() *LanguageDetector {
	languages := []lingua.Language{
		lingua.English,
		lingua.German,
		lingua.French,
		lingua.Spanish,
		lingua.Portuguese,
		lingua.Italian,
		lingua.Dutch,
		lingua.Russian,
		lingua.Chinese,
		lingua.Japanese,
		lingua.Korean,
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect returns the lower-case ISO-639-1 code of the detected language and
// its confidence. ok is false for blank input or when confidence is below
// the reporting floor.
func (d *LanguageDetector) Detect(text string) (code string, confidence float64, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, false
	}
	if len(text) > sampleSize {
		text = text[:sampleSize]
	}

	language, exists := d.detector.DetectLanguageOf(text)
	if !exists {
		return "", 0, false
	}

	confidence = d.detector.ComputeLanguageConfidence(text, language)
	if confidence < minLanguageConfidence {
		return "", confidence, false
	}

	return strings.ToLower(language.IsoCode639_1().String()), confidence, true
}
