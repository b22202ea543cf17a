package retrieval

import (
	"context"
	"time"
)

// ItemType discriminates the three knowledge sources an item can come from.
type ItemType string

const (
	ItemTypeMemory   ItemType = "memory"
	ItemTypeMessage  ItemType = "message"
	ItemTypeDocument ItemType = "document"
)

// MemoryMeta carries memory-specific attributes.
type MemoryMeta struct {
	Kind        string
	Importance  float64
	Tags        []string
	AccessCount int
}

// MessageMeta carries conversation-message attributes.
type MessageMeta struct {
	Role   string
	ChatID string
}

// DocumentMeta carries document-chunk attributes.
type DocumentMeta struct {
	Title      string
	ChunkIndex int
	WordCount  int
}

// RetrievedItem is the common shape all source candidates are converted into.
// Exactly one of Memory/Message/Document is set, matching Type. Score starts as
// the source-provided base relevance in [0,1] and is overwritten with the
// combined score during ranking.
type RetrievedItem struct {
	ID              string
	Type            ItemType
	Content         string
	Score           float64
	RecencyScore    float64
	CreatedAt       time.Time
	EstimatedTokens int
	Memory          *MemoryMeta
	Message         *MessageMeta
	Document        *DocumentMeta
}

// metadataMap projects the typed metadata into the prompt-facing map shape.
func (it *RetrievedItem) metadataMap() map[string]any {
	switch it.Type {
	case ItemTypeMemory:
		if it.Memory == nil {
			return map[string]any{}
		}
		return map[string]any{
			"type":        it.Memory.Kind,
			"importance":  it.Memory.Importance,
			"tags":        it.Memory.Tags,
			"accessCount": it.Memory.AccessCount,
		}
	case ItemTypeMessage:
		if it.Message == nil {
			return map[string]any{}
		}
		return map[string]any{
			"role":   it.Message.Role,
			"chatId": it.Message.ChatID,
		}
	case ItemTypeDocument:
		if it.Document == nil {
			return map[string]any{}
		}
		return map[string]any{
			"documentTitle": it.Document.Title,
			"chunkIndex":    it.Document.ChunkIndex,
			"wordCount":     it.Document.WordCount,
		}
	}
	return map[string]any{}
}

// EnhancedQuery is the keyword-expanded form of a raw user query.
type EnhancedQuery struct {
	Original      string
	Keywords      []string
	SemanticQuery string
}

// ContextItem is the prompt-ready projection of a RetrievedItem.
type ContextItem struct {
	Content   string         `json:"content"`
	Type      ItemType       `json:"type"`
	Score     float64        `json:"score"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
	Tokens    int            `json:"tokens"`
}

// TimeRange spans the oldest and newest timestamps among assembled items.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ContextSummary aggregates statistics over an assembled context.
type ContextSummary struct {
	MemoriesCount     int        `json:"memoriesCount"`
	MessagesCount     int        `json:"messagesCount"`
	DocumentsCount    int        `json:"documentsCount"`
	AvgRelevanceScore float64    `json:"avgRelevanceScore"`
	TimeRange         *TimeRange `json:"timeRange,omitempty"`
}

// AssembledContext is the engine's sole output artifact. The sum of item token
// estimates never exceeds the requested token budget.
type AssembledContext struct {
	Items       []ContextItem  `json:"items"`
	TotalTokens int            `json:"totalTokens"`
	Summary     ContextSummary `json:"summary"`
}

// Options control a single RetrieveContext call. Use DefaultOptions as a
// starting point; the engine clamps out-of-range values instead of rejecting
// them.
type Options struct {
	ChatID            string
	TokenBudget       int
	IncludeMemories   bool
	IncludeMessages   bool
	IncludeDocuments  bool
	MinRelevanceScore float64
	MaxItems          int
	UseCache          bool
}

// DefaultOptions returns the documented defaults: every source enabled, a
// 4000-token budget, a 0.5 relevance floor, at most 50 items, caching on.
func DefaultOptions() Options {
	return Options{
		TokenBudget:       defaultTokenBudget,
		IncludeMemories:   true,
		IncludeMessages:   true,
		IncludeDocuments:  true,
		MinRelevanceScore: defaultMinScore,
		MaxItems:          defaultMaxItems,
		UseCache:          true,
	}
}

// SearchFilters narrow a hybrid search beyond the owner identifier.
type SearchFilters struct {
	ChatID string
}

// SearchCandidate is one pre-scored result from a hybrid search collaborator.
// Score is expected in [0,1]; Metadata holds source-specific string fields.
type SearchCandidate struct {
	ID        string
	Content   string
	Score     float64
	CreatedAt time.Time
	Metadata  map[string]string
}

// Searcher is the per-source hybrid search collaborator. Implementations fuse
// semantic and keyword signals and return ranked candidates for one source
// type, scoped to the given owner.
type Searcher interface {
	HybridSearch(ctx context.Context, source ItemType, userID string, query string, limit int, filters SearchFilters) ([]SearchCandidate, error)
}
