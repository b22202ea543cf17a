package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DocumentRecord is the parent row for a set of chunks.
type DocumentRecord struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	CreatedAt time.Time
}

// ChunkRecord is one embeddable slice of a document.
type ChunkRecord struct {
	ID         uuid.UUID
	ChunkIndex int
	Content    string
	WordCount  int
	Embedding  []float32
}

// CreateDocument inserts a document and its chunks in one transaction so a
// partial ingest never leaves orphaned chunks behind.
func (s *PostgresStore) CreateDocument(ctx context.Context, rec DocumentRecord, chunks []ChunkRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin document transaction: %w", err)
	}
	defer tx.Rollback()

	const docQuery = `
        INSERT INTO documents (id, user_id, title, created_at)
        VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, docQuery, rec.ID, rec.UserID, rec.Title); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create document: %w", err)
	}

	const chunkQuery = `
        INSERT INTO document_chunks (id, document_id, user_id, chunk_index, content, word_count, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		var vec any
		if chunk.Embedding != nil {
			vec = pgvector.NewVector(chunk.Embedding)
		}
		if _, err := tx.ExecContext(ctx, chunkQuery, chunk.ID, rec.ID, rec.UserID, chunk.ChunkIndex, chunk.Content, chunk.WordCount, vec); err != nil {
			return uuid.Nil, fmt.Errorf("failed to create document chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit document transaction: %w", err)
	}
	return rec.ID, nil
}

// DeleteDocument removes a document and, via cascade, its chunks.
func (s *PostgresStore) DeleteDocument(ctx context.Context, userID string, documentID uuid.UUID) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, documentID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	return res.RowsAffected()
}

// ListDocuments returns the documents owned by userID, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context, userID string) ([]DocumentRecord, error) {
	const query = `
        SELECT id, user_id, title, created_at
        FROM documents
        WHERE user_id = $1
        ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
