package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MessageRecord is a single prior conversation message.
type MessageRecord struct {
	ID        uuid.UUID
	UserID    string
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// CreateMessage inserts a conversation message with its embedding.
func (s *PostgresStore) CreateMessage(ctx context.Context, rec MessageRecord, embedding []float32) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	const query = `
        INSERT INTO messages (id, user_id, chat_id, role, content, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	var vec any
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}
	if _, err := s.DB.ExecContext(ctx, query, rec.ID, rec.UserID, rec.ChatID, rec.Role, rec.Content, vec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create message: %w", err)
	}
	return rec.ID, nil
}

// DeleteMessagesByChat removes all messages for one chat owned by userID.
func (s *PostgresStore) DeleteMessagesByChat(ctx context.Context, userID, chatID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM messages WHERE user_id = $1 AND chat_id = $2`, userID, chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return res.RowsAffected()
}
