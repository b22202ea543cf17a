package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"context-engine/retrieval"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// EmbedFunc produces an embedding vector for arbitrary text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// SearchService fuses pgvector cosine similarity with Postgres full-text rank
// into a single hybrid score per candidate. It implements retrieval.Searcher.
type SearchService struct {
	store          *PostgresStore
	embed          EmbedFunc
	semanticWeight float64
	keywordWeight  float64
	logger         *zap.Logger
}

func NewSearchService(store *PostgresStore, embed EmbedFunc, semanticWeight, keywordWeight float64, logger *zap.Logger) *SearchService {
	if semanticWeight <= 0 {
		semanticWeight = 0.7
	}
	if keywordWeight <= 0 {
		keywordWeight = 0.3
	}
	return &SearchService{
		store:          store,
		embed:          embed,
		semanticWeight: semanticWeight,
		keywordWeight:  keywordWeight,
		logger:         logger,
	}
}

type hybridRow struct {
	id          string
	content     string
	createdAt   time.Time
	metadata    map[string]string
	semantic    float64
	keyword     float64
	hasSemantic bool
	hasKeyword  bool
}

// HybridSearch returns up to limit candidates for one source type, scored in
// [0,1]. Semantic and keyword results are merged by id, max-normalized per
// signal and blended with the configured weights; a candidate found by only
// one signal is scored over that signal's weight alone.
func (s *SearchService) HybridSearch(ctx context.Context, source retrieval.ItemType, userID, query string, limit int, filters retrieval.SearchFilters) ([]retrieval.SearchCandidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	candidateLimit := limit * 4
	if candidateLimit < 20 {
		candidateLimit = 20
	}

	byID := make(map[string]*hybridRow)

	queryVec, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("Embedding failed, falling back to keyword search only",
			zap.String("source", string(source)),
			zap.Error(err))
	} else {
		semanticRows, err := s.semanticSearch(ctx, source, userID, queryVec, candidateLimit, filters)
		if err != nil {
			return nil, fmt.Errorf("semantic search failed for %s: %w", source, err)
		}
		for _, row := range semanticRows {
			row.hasSemantic = true
			byID[row.id] = row
		}
	}

	keywordRows, err := s.keywordSearch(ctx, source, userID, query, candidateLimit, filters)
	if err != nil {
		s.logger.Warn("Keyword search failed, using semantic results only",
			zap.String("source", string(source)),
			zap.Error(err))
		keywordRows = nil
	}
	for _, row := range keywordRows {
		if existing, ok := byID[row.id]; ok {
			existing.keyword = row.keyword
			existing.hasKeyword = true
			continue
		}
		row.hasKeyword = true
		byID[row.id] = row
	}

	if len(byID) == 0 {
		return nil, nil
	}

	var maxSemantic, maxKeyword float64
	for _, row := range byID {
		if row.semantic > maxSemantic {
			maxSemantic = row.semantic
		}
		if row.keyword > maxKeyword {
			maxKeyword = row.keyword
		}
	}

	merged := make([]*hybridRow, 0, len(byID))
	for _, row := range byID {
		merged = append(merged, row)
	}

	candidates := make([]retrieval.SearchCandidate, 0, len(merged))
	for _, row := range merged {
		weighted := 0.0
		weightSum := 0.0
		if row.hasSemantic && maxSemantic > 0 {
			weighted += s.semanticWeight * (row.semantic / maxSemantic)
			weightSum += s.semanticWeight
		}
		if row.hasKeyword && maxKeyword > 0 {
			weighted += s.keywordWeight * (row.keyword / maxKeyword)
			weightSum += s.keywordWeight
		}
		score := 0.0
		if weightSum > 0 {
			score = weighted / weightSum
		}
		candidates = append(candidates, retrieval.SearchCandidate{
			ID:        row.id,
			Content:   row.content,
			Score:     score,
			CreatedAt: row.createdAt,
			Metadata:  row.metadata,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if source == retrieval.ItemTypeMemory {
		s.touchServedMemories(candidates)
	}
	return candidates, nil
}

// touchServedMemories bumps access counters for memories returned as
// candidates. The update runs off the request path; failures only log.
func (s *SearchService) touchServedMemories(candidates []retrieval.SearchCandidate) {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, cand := range candidates {
		id, err := uuid.Parse(cand.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.TouchMemories(ctx, ids); err != nil {
			s.logger.Warn("Failed to update memory access counts", zap.Error(err))
		}
	}()
}

func (s *SearchService) semanticSearch(ctx context.Context, source retrieval.ItemType, userID string, queryVec []float32, limit int, filters retrieval.SearchFilters) ([]*hybridRow, error) {
	vec := pgvector.NewVector(queryVec)

	switch source {
	case retrieval.ItemTypeMemory:
		const q = `
            SELECT id, content, kind, importance, tags, access_count, created_at,
                   1 - (embedding <=> $1) AS similarity
            FROM memories
            WHERE user_id = $2 AND embedding IS NOT NULL
            ORDER BY embedding <=> $1
            LIMIT $3`
		rows, err := s.store.DB.QueryContext(ctx, q, vec, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanMemoryRows(rows, true)

	case retrieval.ItemTypeMessage:
		q := `
            SELECT id, content, role, chat_id, created_at,
                   1 - (embedding <=> $1) AS similarity
            FROM messages
            WHERE user_id = $2 AND embedding IS NOT NULL`
		args := []any{vec, userID}
		if filters.ChatID != "" {
			q += ` AND chat_id = $3 ORDER BY embedding <=> $1 LIMIT $4`
			args = append(args, filters.ChatID, limit)
		} else {
			q += ` ORDER BY embedding <=> $1 LIMIT $3`
			args = append(args, limit)
		}
		rows, err := s.store.DB.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanMessageRows(rows, true)

	case retrieval.ItemTypeDocument:
		const q = `
            SELECT c.id, c.content, d.title, c.chunk_index, c.word_count, c.created_at,
                   1 - (c.embedding <=> $1) AS similarity
            FROM document_chunks c
            JOIN documents d ON d.id = c.document_id
            WHERE c.user_id = $2 AND c.embedding IS NOT NULL
            ORDER BY c.embedding <=> $1
            LIMIT $3`
		rows, err := s.store.DB.QueryContext(ctx, q, vec, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanDocumentRows(rows, true)
	}
	return nil, fmt.Errorf("unknown source type %q", source)
}

func (s *SearchService) keywordSearch(ctx context.Context, source retrieval.ItemType, userID, query string, limit int, filters retrieval.SearchFilters) ([]*hybridRow, error) {
	switch source {
	case retrieval.ItemTypeMemory:
		const q = `
            SELECT id, content, kind, importance, tags, access_count, created_at,
                   ts_rank_cd(tsv, plainto_tsquery('english', $1)) AS rank
            FROM memories
            WHERE user_id = $2 AND tsv @@ plainto_tsquery('english', $1)
            ORDER BY rank DESC
            LIMIT $3`
		rows, err := s.store.DB.QueryContext(ctx, q, query, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanMemoryRows(rows, false)

	case retrieval.ItemTypeMessage:
		q := `
            SELECT id, content, role, chat_id, created_at,
                   ts_rank_cd(tsv, plainto_tsquery('english', $1)) AS rank
            FROM messages
            WHERE user_id = $2 AND tsv @@ plainto_tsquery('english', $1)`
		args := []any{query, userID}
		if filters.ChatID != "" {
			q += ` AND chat_id = $3 ORDER BY rank DESC LIMIT $4`
			args = append(args, filters.ChatID, limit)
		} else {
			q += ` ORDER BY rank DESC LIMIT $3`
			args = append(args, limit)
		}
		rows, err := s.store.DB.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanMessageRows(rows, false)

	case retrieval.ItemTypeDocument:
		const q = `
            SELECT c.id, c.content, d.title, c.chunk_index, c.word_count, c.created_at,
                   ts_rank_cd(c.tsv, plainto_tsquery('english', $1)) AS rank
            FROM document_chunks c
            JOIN documents d ON d.id = c.document_id
            WHERE c.user_id = $2 AND c.tsv @@ plainto_tsquery('english', $1)
            ORDER BY rank DESC
            LIMIT $3`
		rows, err := s.store.DB.QueryContext(ctx, q, query, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanDocumentRows(rows, false)
	}
	return nil, fmt.Errorf("unknown source type %q", source)
}

func scanMemoryRows(rows *sql.Rows, semantic bool) ([]*hybridRow, error) {
	var out []*hybridRow
	for rows.Next() {
		var (
			row         hybridRow
			kind        string
			importance  float64
			tags        []string
			accessCount int
			score       float64
		)
		if err := rows.Scan(&row.id, &row.content, &kind, &importance, pq.Array(&tags), &accessCount, &row.createdAt, &score); err != nil {
			return nil, err
		}
		row.metadata = map[string]string{
			"type":         kind,
			"importance":   strconv.FormatFloat(importance, 'f', -1, 64),
			"tags":         strings.Join(tags, ","),
			"access_count": strconv.Itoa(accessCount),
		}
		assignScore(&row, score, semantic)
		out = append(out, &row)
	}
	return out, rows.Err()
}

func scanMessageRows(rows *sql.Rows, semantic bool) ([]*hybridRow, error) {
	var out []*hybridRow
	for rows.Next() {
		var (
			row    hybridRow
			role   string
			chatID string
			score  float64
		)
		if err := rows.Scan(&row.id, &row.content, &role, &chatID, &row.createdAt, &score); err != nil {
			return nil, err
		}
		row.metadata = map[string]string{
			"role":    role,
			"chat_id": chatID,
		}
		assignScore(&row, score, semantic)
		out = append(out, &row)
	}
	return out, rows.Err()
}

func scanDocumentRows(rows *sql.Rows, semantic bool) ([]*hybridRow, error) {
	var out []*hybridRow
	for rows.Next() {
		var (
			row        hybridRow
			title      string
			chunkIndex int
			wordCount  int
			score      float64
		)
		if err := rows.Scan(&row.id, &row.content, &title, &chunkIndex, &wordCount, &row.createdAt, &score); err != nil {
			return nil, err
		}
		row.metadata = map[string]string{
			"document_title": title,
			"chunk_index":    strconv.Itoa(chunkIndex),
			"word_count":     strconv.Itoa(wordCount),
		}
		assignScore(&row, score, semantic)
		out = append(out, &row)
	}
	return out, rows.Err()
}

func assignScore(row *hybridRow, score float64, semantic bool) {
	if score < 0 {
		score = 0
	}
	if semantic {
		row.semantic = score
	} else {
		row.keyword = score
	}
}
