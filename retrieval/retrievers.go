package retrieval

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

// Per-source candidate ceilings. These bound the fan-out fetch regardless of
// the caller's maxItems.
const (
	memoryCandidateCap   = 20
	messageCandidateCap  = 30
	documentCandidateCap = 15
)

// Formatting wrapper tokens added on top of the content estimate per type.
const (
	memoryTokenOverhead   = 50
	messageTokenOverhead  = 30
	documentTokenOverhead = 40
)

// recencyDecayDays is the exponential decay constant for recency scoring.
const recencyDecayDays = 30.0

func candidateCap(source ItemType) int {
	switch source {
	case ItemTypeMemory:
		return memoryCandidateCap
	case ItemTypeMessage:
		return messageCandidateCap
	case ItemTypeDocument:
		return documentCandidateCap
	}
	return 0
}

func tokenOverhead(source ItemType) int {
	switch source {
	case ItemTypeMemory:
		return memoryTokenOverhead
	case ItemTypeMessage:
		return messageTokenOverhead
	case ItemTypeDocument:
		return documentTokenOverhead
	}
	return 0
}

// estimateTokens approximates the LLM token cost of injecting content,
// including the per-type formatting wrapper.
func estimateTokens(content string, source ItemType) int {
	return int(math.Ceil(float64(len(content))*0.25)) + tokenOverhead(source)
}

// recencyScore decays exponentially with item age at a 30-day constant.
func recencyScore(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-days / recencyDecayDays)
}

// retrieveSource fetches candidates for one source type and converts them into
// the common RetrievedItem shape. The returned error is mapped to an empty
// result at the fan-out join point; this function never panics on malformed
// metadata.
func retrieveSource(ctx context.Context, searcher Searcher, source ItemType, userID string, query EnhancedQuery, maxItems int, filters SearchFilters, now time.Time) ([]RetrievedItem, error) {
	limit := maxItems
	if cap := candidateCap(source); limit > cap {
		limit = cap
	}
	if limit <= 0 {
		return nil, nil
	}

	candidates, err := searcher.HybridSearch(ctx, source, userID, query.SemanticQuery, limit, filters)
	if err != nil {
		return nil, err
	}

	items := make([]RetrievedItem, 0, len(candidates))
	for _, cand := range candidates {
		item := RetrievedItem{
			ID:              cand.ID,
			Type:            source,
			Content:         cand.Content,
			Score:           cand.Score,
			RecencyScore:    recencyScore(cand.CreatedAt, now),
			CreatedAt:       cand.CreatedAt,
			EstimatedTokens: estimateTokens(cand.Content, source),
		}
		attachMetadata(&item, cand.Metadata)
		items = append(items, item)
	}
	return items, nil
}

// attachMetadata parses the collaborator's string metadata into the typed
// variant matching the item's source.
func attachMetadata(item *RetrievedItem, meta map[string]string) {
	switch item.Type {
	case ItemTypeMemory:
		m := &MemoryMeta{Kind: meta["type"]}
		if v, err := strconv.ParseFloat(meta["importance"], 64); err == nil {
			m.Importance = v
		}
		if v, err := strconv.Atoi(meta["access_count"]); err == nil {
			m.AccessCount = v
		}
		if tags := strings.TrimSpace(meta["tags"]); tags != "" {
			m.Tags = strings.Split(tags, ",")
		}
		item.Memory = m
	case ItemTypeMessage:
		item.Message = &MessageMeta{
			Role:   meta["role"],
			ChatID: meta["chat_id"],
		}
	case ItemTypeDocument:
		d := &DocumentMeta{Title: meta["document_title"]}
		if v, err := strconv.Atoi(meta["chunk_index"]); err == nil {
			d.ChunkIndex = v
		}
		if v, err := strconv.Atoi(meta["word_count"]); err == nil {
			d.WordCount = v
		}
		item.Document = d
	}
}
