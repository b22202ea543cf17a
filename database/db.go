package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PostgresStore struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(connStr string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{DB: db, logger: logger}, nil
}

// EnsureSchema creates the required tables if they do not already exist.
// Embedding columns use pgvector; keyword search runs over generated tsvector
// columns.
func (s *PostgresStore) EnsureSchema(ctx context.Context, embeddingDims int) error {
	if embeddingDims <= 0 {
		embeddingDims = 768
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memories (
            id UUID PRIMARY KEY,
            user_id TEXT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'fact',
            content TEXT NOT NULL,
            importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
            tags TEXT[] NOT NULL DEFAULT '{}'::TEXT[],
            access_count INTEGER NOT NULL DEFAULT 0,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
        )`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_memories_user_id ON memories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_tsv ON memories USING GIN(tsv)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            user_id TEXT NOT NULL,
            chat_id TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL,
            content TEXT NOT NULL,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
        )`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_messages_user_chat ON messages(user_id, chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_tsv ON messages USING GIN(tsv)`,
		`CREATE TABLE IF NOT EXISTS documents (
            id UUID PRIMARY KEY,
            user_id TEXT NOT NULL,
            title TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
            id UUID PRIMARY KEY,
            document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            chunk_index INTEGER NOT NULL,
            content TEXT NOT NULL,
            word_count INTEGER NOT NULL DEFAULT 0,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
        )`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_user_id ON document_chunks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_tsv ON document_chunks USING GIN(tsv)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}
