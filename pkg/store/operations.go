package store

import (
	"fmt"
	"strings"

	"github.com/ragprep/ragprep/models"
)

// DocumentInfo summarizes a stored document.
type DocumentInfo struct {
	DocumentID string
	Title      string
	SourceURL  string
	SourceType string
	Language   string
	ChunkCount int
}

// SaveDocument upserts the document row described by the metadata.
func (s *Store) SaveDocument(documentID string, meta *models.DocumentMetadata) error {
	if documentID == "" {
		return fmt.Errorf("document id must not be empty")
	}

	var title, description, sourceURL, sourceType, language, tags string
	if meta != nil {
		title = meta.Title
		description = meta.Description
		sourceURL = meta.SourceURL
		sourceType = meta.SourceType
		language = meta.Language
		tags = strings.Join(meta.Tags, ",")
	}

	_, err := s.Exec(`
		INSERT INTO documents (document_id, title, description, source_url, source_type, language, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			source_url = excluded.source_url,
			source_type = excluded.source_type,
			language = excluded.language,
			tags = excluded.tags
	`, documentID, title, description, sourceURL, sourceType, language, tags)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SaveChunks replaces a document's chunks in one transaction, preserving
// chunk order. The document row must exist first.
func (s *Store) SaveChunks(documentID string, chunks []models.DocumentChunk) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear existing chunks: %w", err)
	}

	for _, ch := range chunks {
		_, err := tx.Exec(`
			INSERT INTO chunks (chunk_id, document_id, chunk_index, title, content, token_count, start_position, end_position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, ch.ID, documentID, ch.ChunkIndex, ch.Title, ch.Content, ch.TokenCount, ch.StartPosition, ch.EndPosition)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", ch.ID, err)
		}
	}

	if _, err := tx.Exec("UPDATE documents SET chunk_count = ? WHERE document_id = ?", len(chunks), documentID); err != nil {
		return fmt.Errorf("failed to update chunk count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(documentID string) ([]models.DocumentChunk, error) {
	rows, err := s.Query(`
		SELECT chunk_id, document_id, chunk_index, title, content, token_count, start_position, end_position
		FROM chunks
		WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		if err := rows.Scan(&ch.ID, &ch.ParentDocumentID, &ch.ChunkIndex, &ch.Title, &ch.Content,
			&ch.TokenCount, &ch.StartPosition, &ch.EndPosition); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	return chunks, nil
}

// ListDocuments returns summaries of all stored documents, newest first.
func (s *Store) ListDocuments() ([]DocumentInfo, error) {
	rows, err := s.Query(`
		SELECT document_id, title, source_url, source_type, language, chunk_count
		FROM documents
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.DocumentID, &d.Title, &d.SourceURL, &d.SourceType, &d.Language, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document and, via cascade, its chunks.
func (s *Store) DeleteDocument(documentID string) error {
	if _, err := s.Exec("DELETE FROM documents WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
