package retrieval

import (
	"reflect"
	"strings"
	"testing"
)

func TestEnhanceQueryKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "simple_topic_query",
			query: "typescript developer preferences",
			want:  []string{"preferences", "typescript", "developer"},
		},
		{
			name:  "stop_words_and_short_tokens_dropped",
			query: "what is the best way to learn rust",
			want:  []string{"learn", "best", "rust", "way"},
		},
		{
			name:  "duplicates_removed",
			query: "docker docker containers containers",
			want:  []string{"containers", "docker"},
		},
		{
			name:  "empty_query",
			query: "",
			want:  []string{},
		},
		{
			name:  "only_stop_words",
			query: "the and for with",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceQuery(tt.query)
			if len(got.Keywords) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got.Keywords, tt.want) {
				t.Errorf("EnhanceQuery(%q).Keywords = %v, want %v", tt.query, got.Keywords, tt.want)
			}
		})
	}
}

func TestEnhanceQueryKeywordLimit(t *testing.T) {
	query := "alpha bravo charlie deltaa echoes foxtrot golfing hotelier indiana julietta kilogram limousine"
	got := EnhanceQuery(query)
	if len(got.Keywords) > maxKeywords {
		t.Errorf("expected at most %d keywords, got %d", maxKeywords, len(got.Keywords))
	}
}

func TestEnhanceQuerySemanticExpansion(t *testing.T) {
	query := "kubernetes deployment troubleshooting"
	got := EnhanceQuery(query)

	if !strings.HasPrefix(got.SemanticQuery, query) {
		t.Errorf("semantic query should start with the original query, got %q", got.SemanticQuery)
	}
	if got.SemanticQuery == query {
		t.Error("semantic query should be expanded with keywords")
	}
	for _, kw := range got.Keywords {
		if len(kw) <= 2 {
			t.Errorf("keyword %q should have been filtered", kw)
		}
	}
}

func TestEnhanceQueryEmptyInputSemantic(t *testing.T) {
	got := EnhanceQuery("")
	if got.SemanticQuery != "" {
		t.Errorf("empty query should yield empty semantic query, got %q", got.SemanticQuery)
	}
	if got.Original != "" {
		t.Errorf("original should be preserved, got %q", got.Original)
	}
}
