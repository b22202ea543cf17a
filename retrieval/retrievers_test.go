package retrieval

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		source  ItemType
		want    int
	}{
		{"memory_overhead", "abcd", ItemTypeMemory, 1 + 50},
		{"message_overhead", "abcd", ItemTypeMessage, 1 + 30},
		{"document_overhead", "abcd", ItemTypeDocument, 1 + 40},
		{"rounds_up", "abcde", ItemTypeMessage, 2 + 30},
		{"empty_content", "", ItemTypeMemory, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateTokens(tt.content, tt.source); got != tt.want {
				t.Errorf("estimateTokens(%q, %s) = %d, want %d", tt.content, tt.source, got, tt.want)
			}
		})
	}
}

func TestRecencyScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		daysAgo int
		want    float64
	}{
		{"now", 0, 1.0},
		{"thirty_days", 30, math.Exp(-1)},
		{"sixty_days", 60, math.Exp(-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recencyScore(now.AddDate(0, 0, -tt.daysAgo), now)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("recencyScore(%d days) = %v, want %v", tt.daysAgo, got, tt.want)
			}
		})
	}

	// Clock skew: a future timestamp scores as fresh, never above 1.
	if got := recencyScore(now.Add(time.Hour), now); got != 1.0 {
		t.Errorf("future timestamp score = %v, want 1.0", got)
	}
}

type countingSearcher struct {
	lastLimit int
}

func (s *countingSearcher) HybridSearch(ctx context.Context, source ItemType, userID, query string, limit int, filters SearchFilters) ([]SearchCandidate, error) {
	s.lastLimit = limit
	return nil, nil
}

func TestRetrieveSourceCapsLimit(t *testing.T) {
	tests := []struct {
		source ItemType
		want   int
	}{
		{ItemTypeMemory, 20},
		{ItemTypeMessage, 30},
		{ItemTypeDocument, 15},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			searcher := &countingSearcher{}
			_, err := retrieveSource(context.Background(), searcher, tt.source, "u1", EnhancedQuery{SemanticQuery: "q"}, 100, SearchFilters{}, time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if searcher.lastLimit != tt.want {
				t.Errorf("limit = %d, want %d", searcher.lastLimit, tt.want)
			}
		})
	}
}

func TestAttachMetadata(t *testing.T) {
	memory := RetrievedItem{Type: ItemTypeMemory}
	attachMetadata(&memory, map[string]string{
		"type":         "preference",
		"importance":   "0.8",
		"access_count": "4",
		"tags":         "lang,tooling",
	})
	if memory.Memory == nil {
		t.Fatal("memory metadata not attached")
	}
	if memory.Memory.Kind != "preference" || memory.Memory.Importance != 0.8 || memory.Memory.AccessCount != 4 {
		t.Errorf("memory metadata = %+v", memory.Memory)
	}
	if len(memory.Memory.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", memory.Memory.Tags)
	}

	message := RetrievedItem{Type: ItemTypeMessage}
	attachMetadata(&message, map[string]string{"role": "user", "chat_id": "c-1"})
	if message.Message == nil || message.Message.Role != "user" || message.Message.ChatID != "c-1" {
		t.Errorf("message metadata = %+v", message.Message)
	}

	document := RetrievedItem{Type: ItemTypeDocument}
	attachMetadata(&document, map[string]string{"document_title": "Guide", "chunk_index": "3", "word_count": "210"})
	if document.Document == nil || document.Document.Title != "Guide" || document.Document.ChunkIndex != 3 || document.Document.WordCount != 210 {
		t.Errorf("document metadata = %+v", document.Document)
	}

	// Malformed numerics fall back to zero values without panicking.
	malformed := RetrievedItem{Type: ItemTypeMemory}
	attachMetadata(&malformed, map[string]string{"importance": "not-a-number"})
	if malformed.Memory == nil || malformed.Memory.Importance != 0 {
		t.Errorf("malformed importance should zero out, got %+v", malformed.Memory)
	}
}
