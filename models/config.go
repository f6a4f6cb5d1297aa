// Package models defines the data structures shared across the content
// preparation pipeline: chunks, sections, metadata, and configuration.
package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig holds the token budgets for the semantic chunker.
// The bounds must satisfy 0 < min < target < max.
type ChunkingConfig struct {
	MinTokens         int     `yaml:"min_tokens"`
	TargetTokens      int     `yaml:"target_tokens"`
	MaxTokens         int     `yaml:"max_tokens"`
	OverlapPercentage float64 `yaml:"overlap_percentage"`
}

// ExtractionConfig holds tunables for the HTML content extractor.
type ExtractionConfig struct {
	// ContentSelectors are CSS selector hints tried first when picking the
	// main content region, e.g. "#main-content" or "article.post".
	ContentSelectors []string `yaml:"content_selectors,omitempty"`

	// RemoveClassNames and RemoveIDs are deny lists applied before scoring.
	// Class names match on word boundaries within the class attribute;
	// IDs match exactly.
	RemoveClassNames []string `yaml:"remove_class_names,omitempty"`
	RemoveIDs        []string `yaml:"remove_ids,omitempty"`

	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold"`
	AggressiveCleaning     bool    `yaml:"aggressive_cleaning"`
	ResolveRelativeURLs    bool    `yaml:"resolve_relative_urls"`
	BaseURL                string  `yaml:"base_url,omitempty"`

	// NegativeVocabulary and PositiveVocabulary override the scorer's
	// class/id word lists when non-empty.
	NegativeVocabulary []string `yaml:"negative_vocabulary,omitempty"`
	PositiveVocabulary []string `yaml:"positive_vocabulary,omitempty"`
}

// Config is the top-level configuration file for the pipeline.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Extraction ExtractionConfig `yaml:"extraction"`

	// DBPath is the SQLite database used by the ingest command.
	DBPath string `yaml:"db_path,omitempty"`

	// OutputDir is where chunk artifacts are written.
	OutputDir string `yaml:"output_dir,omitempty"`
}

// DefaultConfig returns the defaults used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingConfig{
			MinTokens:         100,
			TargetTokens:      512,
			MaxTokens:         1024,
			OverlapPercentage: 0.1,
		},
		Extraction: ExtractionConfig{
			MinConfidenceThreshold: 0.5,
			AggressiveCleaning:     true,
			ResolveRelativeURLs:    false,
		},
		DBPath:    "ragprep.db",
		OutputDir: "chunks",
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
