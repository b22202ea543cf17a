package ingest

import (
	"context"
	"strings"

	"context-engine/database"
	apperrors "context-engine/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Embedder produces embedding vectors for ingested content.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service writes memories, messages and documents into the store with their
// embeddings. Embedding failures degrade to keyword-only rows instead of
// rejecting the write.
type Service struct {
	store    *database.PostgresStore
	embedder Embedder
	splitter SentenceSplitter
	maxChars int
	logger   *zap.Logger
}

func NewService(store *database.PostgresStore, embedder Embedder, maxChunkChars int, logger *zap.Logger) *Service {
	if maxChunkChars <= 0 {
		maxChunkChars = 1000
	}
	return &Service{
		store:    store,
		embedder: embedder,
		splitter: NewRegexSentenceSplitter(),
		maxChars: maxChunkChars,
		logger:   logger,
	}
}

// IngestMemory stores one long-term memory.
func (s *Service) IngestMemory(ctx context.Context, rec database.MemoryRecord) (uuid.UUID, error) {
	if strings.TrimSpace(rec.Content) == "" {
		return uuid.Nil, apperrors.WrapError(apperrors.ErrInvalidInput, "memory content is empty")
	}
	embedding := s.tryEmbed(ctx, rec.Content)
	return s.store.CreateMemory(ctx, rec, embedding)
}

// IngestMessage stores one conversation message.
func (s *Service) IngestMessage(ctx context.Context, rec database.MessageRecord) (uuid.UUID, error) {
	if strings.TrimSpace(rec.Content) == "" {
		return uuid.Nil, apperrors.WrapError(apperrors.ErrInvalidInput, "message content is empty")
	}
	embedding := s.tryEmbed(ctx, rec.Content)
	return s.store.CreateMessage(ctx, rec, embedding)
}

// IngestDocument chunks the text, embeds each chunk and persists the document
// with its chunks.
func (s *Service) IngestDocument(ctx context.Context, userID, title, text string) (uuid.UUID, int, error) {
	chunks := BuildChunks(s.splitter, text, s.maxChars)
	if len(chunks) == 0 {
		return uuid.Nil, 0, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "document %q has no extractable text", title)
	}

	records := make([]database.ChunkRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, database.ChunkRecord{
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
			WordCount:  chunk.WordCount,
			Embedding:  s.tryEmbed(ctx, chunk.Content),
		})
	}

	docID, err := s.store.CreateDocument(ctx, database.DocumentRecord{
		UserID: userID,
		Title:  title,
	}, records)
	if err != nil {
		return uuid.Nil, 0, err
	}

	s.logger.Info("Document ingested",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.Int("chunks", len(records)))
	return docID, len(records), nil
}

// ListDocuments returns the caller's documents, newest first.
func (s *Service) ListDocuments(ctx context.Context, userID string) ([]database.DocumentRecord, error) {
	return s.store.ListDocuments(ctx, userID)
}

// DeleteDocument removes one document and its chunks.
func (s *Service) DeleteDocument(ctx context.Context, userID string, documentID uuid.UUID) (int64, error) {
	return s.store.DeleteDocument(ctx, userID, documentID)
}

// DeleteUserMemories wipes every memory the user owns.
func (s *Service) DeleteUserMemories(ctx context.Context, userID string) (int64, error) {
	return s.store.DeleteMemoriesByUser(ctx, userID)
}

// DeleteChatMessages wipes one chat's message history.
func (s *Service) DeleteChatMessages(ctx context.Context, userID, chatID string) (int64, error) {
	return s.store.DeleteMessagesByChat(ctx, userID, chatID)
}

func (s *Service) tryEmbed(ctx context.Context, content string) []float32 {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.Warn("Embedding failed, storing content without vector", zap.Error(err))
		return nil
	}
	return vec
}
