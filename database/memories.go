package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// MemoryRecord is a long-term semantic memory owned by a user.
type MemoryRecord struct {
	ID          uuid.UUID
	UserID      string
	Kind        string
	Content     string
	Importance  float64
	Tags        []string
	AccessCount int
	CreatedAt   time.Time
}

// CreateMemory inserts a memory with its embedding. A nil embedding is stored
// as NULL and the row is only reachable through keyword search.
func (s *PostgresStore) CreateMemory(ctx context.Context, rec MemoryRecord, embedding []float32) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Kind == "" {
		rec.Kind = "fact"
	}
	if rec.Importance <= 0 {
		rec.Importance = 0.5
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	const query = `
        INSERT INTO memories (id, user_id, kind, content, importance, tags, access_count, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NOW())`

	var vec any
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}
	if _, err := s.DB.ExecContext(ctx, query, rec.ID, rec.UserID, rec.Kind, rec.Content, rec.Importance, pq.Array(rec.Tags), vec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create memory: %w", err)
	}
	return rec.ID, nil
}

// TouchMemories increments the access counter for memories that were served
// in an assembled context.
func (s *PostgresStore) TouchMemories(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE memories SET access_count = access_count + 1 WHERE id = ANY($1)`
	if _, err := s.DB.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to touch memories: %w", err)
	}
	return nil
}

// DeleteMemoriesByUser removes all memories owned by userID and reports how
// many rows were deleted.
func (s *PostgresStore) DeleteMemoriesByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM memories WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memories: %w", err)
	}
	return res.RowsAffected()
}
