// Package pipeline drives one document through content preparation:
// extract the main content from HTML, convert it to Markdown, strip
// frontmatter, chunk, enrich metadata, and optionally persist the result.
// Each call processes a single document synchronously; callers fan out
// across documents with their own workers.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ragprep/ragprep/models"
	"github.com/ragprep/ragprep/pkg/chunker"
	"github.com/ragprep/ragprep/pkg/convert"
	"github.com/ragprep/ragprep/pkg/detector"
	"github.com/ragprep/ragprep/pkg/extractor"
	"github.com/ragprep/ragprep/pkg/store"
)

// Result is the outcome of preparing one document.
type Result struct {
	DocumentID string
	Markdown   string
	Metadata   *models.DocumentMetadata
	Chunks     []models.DocumentChunk
}

// Pipeline wires the preparation stages together. Build once, reuse across
// documents; it holds no per-document state.
type Pipeline struct {
	extractor *extractor.Extractor
	converter *convert.Converter
	chunker   *chunker.Chunker
	language  *detector.LanguageDetector
	store     *store.Store
	log       zerolog.Logger
}

// New builds a pipeline from configuration. Configuration errors (bad token
// budgets, bad vocabulary) surface here, before any document is processed.
func New(cfg models.Config, log zerolog.Logger) (*Pipeline, error) {
	ext, err := extractor.New(cfg.Extraction, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build extractor: %w", err)
	}

	ch, err := chunker.New(cfg.Chunking, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunker: %w", err)
	}

	return &Pipeline{
		extractor: ext,
		converter: convert.NewConverter(),
		chunker:   ch,
		language:  detector.NewLanguageDetector(),
		log:       log,
	}, nil
}

// SetStore attaches a chunk store; when set, Ingest persists the document
// and its chunks after preparation.
func (p *Pipeline) SetStore(st *store.Store) {
	p.store = st
}

// IngestHTML prepares a raw HTML document end to end.
func (p *Pipeline) IngestHTML(sourceURL, htmlStr string) (*Result, error) {
	pageMeta := make(map[string]string)

	cleaned, err := p.extractor.Extract(htmlStr, pageMeta)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	markdown, err := p.converter.ToMarkdown(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to convert content: %w", err)
	}

	meta := metadataFromPage(pageMeta, sourceURL, "html")
	return p.chunkAndFinish(markdown, meta)
}

// IngestMarkdown prepares a document that is already Markdown, skipping
// extraction and conversion.
func (p *Pipeline) IngestMarkdown(sourceURL, markdown string) (*Result, error) {
	meta := &models.DocumentMetadata{
		SourceURL:  sourceURL,
		SourceType: "markdown",
	}
	return p.chunkAndFinish(markdown, meta)
}

func (p *Pipeline) chunkAndFinish(markdown string, meta *models.DocumentMetadata) (*Result, error) {
	documentID := uuid.NewString()

	chunks, err := p.chunker.Chunk(markdown, documentID, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	// Frontmatter may have carried a title the page metadata lacked.
	if meta.Title == "" {
		if t, ok := meta.Extra["title"]; ok {
			meta.Title = t
		}
	}
	if tags, ok := meta.Extra["tags"]; ok && len(meta.Tags) == 0 {
		meta.Tags = strings.Split(tags, ",")
	}

	if code, conf, ok := p.language.Detect(markdown); ok {
		meta.Language = code
		p.log.Debug().Str("language", code).Float64("confidence", conf).Msg("detected document language")
	}

	if p.store != nil {
		if err := p.store.SaveDocument(documentID, meta); err != nil {
			return nil, err
		}
		if err := p.store.SaveChunks(documentID, chunks); err != nil {
			return nil, err
		}
	}

	p.log.Info().
		Str("document_id", documentID).
		Int("chunks", len(chunks)).
		Msg("document prepared")

	return &Result{
		DocumentID: documentID,
		Markdown:   markdown,
		Metadata:   meta,
		Chunks:     chunks,
	}, nil
}

// metadataFromPage maps collected page metadata onto the typed fields,
// keeping the remainder in the extras map.
func metadataFromPage(pageMeta map[string]string, sourceURL, sourceType string) *models.DocumentMetadata {
	meta := &models.DocumentMetadata{
		SourceURL:  sourceURL,
		SourceType: sourceType,
	}

	for key, value := range pageMeta {
		switch key {
		case "title":
			meta.Title = value
		case "description", "og:description":
			if meta.Description == "" || key == "description" {
				meta.Description = value
			}
		case "keywords":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					meta.Tags = append(meta.Tags, tag)
				}
			}
		default:
			meta.SetExtra(key, value)
		}
	}

	return meta
}
