package models

import "fmt"

// DocumentChunk is a bounded, contiguous span of document text, the unit
// that downstream embedding and indexing consume. Chunks are immutable once
// created; only the chunk accumulator builds them.
type DocumentChunk struct {
	ID               string            `json:"id" yaml:"id"`
	ParentDocumentID string            `json:"parent_document_id" yaml:"parent_document_id"`
	ChunkIndex       int               `json:"chunk_index" yaml:"chunk_index"`
	Title            string            `json:"title,omitempty" yaml:"title,omitempty"`
	Content          string            `json:"content" yaml:"content"`
	TokenCount       int               `json:"token_count" yaml:"token_count"`
	StartPosition    int               `json:"start_position" yaml:"start_position"`
	EndPosition      int               `json:"end_position" yaml:"end_position"`
	Metadata         *DocumentMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ChunkID builds the canonical chunk identifier for a document and index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// DocumentMetadata carries document-level metadata shared by every chunk of
// one document. Known fields are typed; anything else goes in Extra.
type DocumentMetadata struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	SourceURL   string   `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	SourceType  string   `json:"source_type,omitempty" yaml:"source_type,omitempty"` // html, markdown
	Language    string   `json:"language,omitempty" yaml:"language,omitempty"`       // ISO-639-1 if detected
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Extra holds arbitrary string metadata that has no typed field, e.g.
	// frontmatter keys or meta tags collected during extraction.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// SetExtra stores a key in the escape-hatch map, allocating it on first use.
func (m *DocumentMetadata) SetExtra(key, value string) {
	if m.Extra == nil {
		m.Extra = make(map[string]string)
	}
	m.Extra[key] = value
}
