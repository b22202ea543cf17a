package retrieval

import (
	"testing"
	"time"
)

func TestRankItemsFiltersBelowMinScore(t *testing.T) {
	items := []RetrievedItem{
		{ID: "a", Type: ItemTypeMemory, Score: 0.9},
		{ID: "b", Type: ItemTypeMemory, Score: 0.49},
		{ID: "c", Type: ItemTypeMessage, Score: 0.5},
	}

	ranked := rankItems(items, nil, 0.5)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 items after filtering, got %d", len(ranked))
	}
	for _, it := range ranked {
		if it.ID == "b" {
			t.Error("item below the relevance floor should have been dropped")
		}
	}
}

func TestRankItemsCombinedScore(t *testing.T) {
	tests := []struct {
		name     string
		item     RetrievedItem
		keywords []string
		want     float64
	}{
		{
			name: "base_plus_recency",
			item: RetrievedItem{Type: ItemTypeMessage, Score: 0.6, RecencyScore: 1.0},
			want: 0.6 + 1.0*0.1,
		},
		{
			name: "memory_importance_boost",
			item: RetrievedItem{
				Type:         ItemTypeMemory,
				Score:        0.6,
				RecencyScore: 0.5,
				Memory:       &MemoryMeta{Importance: 0.8},
			},
			want: 0.6 + 0.5*0.1 + 0.8*0.2,
		},
		{
			name: "keyword_match_bonus",
			item: RetrievedItem{
				Type:    ItemTypeDocument,
				Score:   0.7,
				Content: "The Deployment Pipeline uses docker images",
			},
			keywords: []string{"deployment", "docker", "terraform"},
			want:     0.7 + 2*0.1,
		},
		{
			name: "importance_ignored_for_non_memory",
			item: RetrievedItem{Type: ItemTypeMessage, Score: 0.7, RecencyScore: 0},
			want: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := rankItems([]RetrievedItem{tt.item}, tt.keywords, 0)
			if len(ranked) != 1 {
				t.Fatalf("expected 1 item, got %d", len(ranked))
			}
			if diff := ranked[0].Score - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("combined score = %v, want %v", ranked[0].Score, tt.want)
			}
		})
	}
}

func TestRankItemsSortedDescending(t *testing.T) {
	now := time.Now()
	items := []RetrievedItem{
		{ID: "low", Type: ItemTypeMessage, Score: 0.55, CreatedAt: now},
		{ID: "high", Type: ItemTypeMemory, Score: 0.9, Memory: &MemoryMeta{Importance: 1}, CreatedAt: now},
		{ID: "mid", Type: ItemTypeDocument, Score: 0.7, CreatedAt: now},
	}

	ranked := rankItems(items, nil, 0)

	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	if ranked[0].ID != "high" {
		t.Errorf("expected highest-scored item first, got %q", ranked[0].ID)
	}
}

func TestCountKeywordMatches(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		keywords []string
		want     int
	}{
		{"no_keywords", "anything", nil, 0},
		{"case_insensitive", "GraphQL Schema Design", []string{"graphql", "schema"}, 2},
		{"substring_match", "refactoring", []string{"factor"}, 1},
		{"no_match", "apples", []string{"oranges"}, 0},
		{"empty_keyword_skipped", "apples", []string{""}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countKeywordMatches(tt.content, tt.keywords); got != tt.want {
				t.Errorf("countKeywordMatches(%q, %v) = %d, want %d", tt.content, tt.keywords, got, tt.want)
			}
		})
	}
}
