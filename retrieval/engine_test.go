package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubSearcher returns canned candidates per source and records call counts.
type stubSearcher struct {
	mu      sync.Mutex
	results map[ItemType][]SearchCandidate
	errs    map[ItemType]error
	calls   int
}

func (s *stubSearcher) HybridSearch(ctx context.Context, source ItemType, userID, query string, limit int, filters SearchFilters) ([]SearchCandidate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := s.errs[source]; err != nil {
		return nil, err
	}
	return s.results[source], nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestEngine(searcher Searcher) *Engine {
	logger, _ := zap.NewDevelopment()
	return NewEngine(searcher, EngineConfig{}, logger)
}

func TestRetrieveContextEndToEnd(t *testing.T) {
	now := time.Now()
	searcher := &stubSearcher{
		results: map[ItemType][]SearchCandidate{
			ItemTypeMemory: {
				{ID: "m1", Content: "prefers typescript strict mode in every project", Score: 0.9, CreatedAt: now.AddDate(0, 0, -1)},
				{ID: "m2", Content: "works on a react frontend with a go backend", Score: 0.6, CreatedAt: now.AddDate(0, 0, -3)},
				{ID: "m3", Content: "once mentioned liking jazz music on fridays", Score: 0.3, CreatedAt: now.AddDate(0, 0, -5)},
			},
			ItemTypeMessage: {
				{ID: "c1", Content: "can you review my typescript generics usage", Score: 0.8, CreatedAt: now.AddDate(0, 0, -2), Metadata: map[string]string{"role": "user"}},
				{ID: "c2", Content: "the weather was nice last weekend", Score: 0.4, CreatedAt: now.AddDate(0, 0, -4)},
			},
			ItemTypeDocument: {
				{ID: "d1", Content: "team style guide chapter on naming conventions and linting", Score: 0.55, CreatedAt: now.AddDate(0, 0, -10), Metadata: map[string]string{"document_title": "Style Guide"}},
			},
		},
	}
	engine := newTestEngine(searcher)

	opts := DefaultOptions()
	opts.MaxItems = 10
	got := engine.RetrieveContext(context.Background(), "user-1", "typescript developer preferences", opts)

	// Of the four candidates above the relevance floor, stratification keeps
	// two from the recent band and one from the medium band.
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	s := got.Summary
	if s.MemoriesCount != 1 || s.MessagesCount != 1 || s.DocumentsCount != 1 {
		t.Errorf("summary counts = %d/%d/%d, want 1/1/1", s.MemoriesCount, s.MessagesCount, s.DocumentsCount)
	}
	for _, it := range got.Items {
		if it.Content == "once mentioned liking jazz music on fridays" ||
			it.Content == "the weather was nice last weekend" {
			t.Errorf("low-relevance item leaked into the context: %q", it.Content)
		}
	}
	for i := 1; i < len(got.Items); i++ {
		if got.Items[i].Score > got.Items[i-1].Score {
			t.Fatalf("context items not score-sorted at %d", i)
		}
	}
	if got.TotalTokens <= 0 || got.TotalTokens > opts.TokenBudget {
		t.Errorf("TotalTokens = %d, want within (0, %d]", got.TotalTokens, opts.TokenBudget)
	}
}

func TestRetrieveContextCachesResults(t *testing.T) {
	searcher := &stubSearcher{
		results: map[ItemType][]SearchCandidate{
			// Older than 30 days so the single candidate lands in the band
			// that absorbs the stratification remainder.
			ItemTypeMemory: {{ID: "m1", Content: "speaks fluent german and some french", Score: 0.9, CreatedAt: time.Now().AddDate(0, 0, -40)}},
		},
	}
	engine := newTestEngine(searcher)
	opts := DefaultOptions()

	first := engine.RetrieveContext(context.Background(), "user-1", "languages", opts)
	if len(first.Items) != 1 {
		t.Fatalf("expected 1 item in the first result, got %d", len(first.Items))
	}
	callsAfterFirst := searcher.callCount()
	second := engine.RetrieveContext(context.Background(), "user-1", "languages", opts)

	if searcher.callCount() != callsAfterFirst {
		t.Errorf("second identical request hit the searcher: %d calls, want %d", searcher.callCount(), callsAfterFirst)
	}
	if len(first.Items) != len(second.Items) || first.TotalTokens != second.TotalTokens {
		t.Error("cached result differs from the original")
	}

	engine.ClearCache()
	engine.RetrieveContext(context.Background(), "user-1", "languages", opts)
	if searcher.callCount() == callsAfterFirst {
		t.Error("request after ClearCache should hit the searcher again")
	}
}

func TestRetrieveContextCacheBypass(t *testing.T) {
	searcher := &stubSearcher{results: map[ItemType][]SearchCandidate{}}
	engine := newTestEngine(searcher)

	opts := DefaultOptions()
	opts.UseCache = false
	engine.RetrieveContext(context.Background(), "user-1", "anything", opts)
	callsAfterFirst := searcher.callCount()
	engine.RetrieveContext(context.Background(), "user-1", "anything", opts)

	if searcher.callCount() == callsAfterFirst {
		t.Error("UseCache=false should always hit the searcher")
	}
}

func TestRetrieveContextSwallowsSourceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	searcher := &stubSearcher{
		results: map[ItemType][]SearchCandidate{
			ItemTypeMessage: {{ID: "c1", Content: "asked about database migrations recently", Score: 0.9, CreatedAt: time.Now().AddDate(0, 0, -40)}},
		},
		errs: map[ItemType]error{
			ItemTypeMemory:   boom,
			ItemTypeDocument: boom,
		},
	}
	engine := newTestEngine(searcher)

	got := engine.RetrieveContext(context.Background(), "user-1", "migrations", DefaultOptions())

	if got.Summary.MessagesCount != 1 {
		t.Errorf("expected the healthy source's item, got %+v", got.Summary)
	}
	if got.Summary.MemoriesCount != 0 || got.Summary.DocumentsCount != 0 {
		t.Errorf("failed sources should contribute nothing, got %+v", got.Summary)
	}
}

func TestRetrieveContextAllSourcesFail(t *testing.T) {
	boom := errors.New("database down")
	searcher := &stubSearcher{
		errs: map[ItemType]error{
			ItemTypeMemory:   boom,
			ItemTypeMessage:  boom,
			ItemTypeDocument: boom,
		},
	}
	engine := newTestEngine(searcher)

	got := engine.RetrieveContext(context.Background(), "user-1", "anything", DefaultOptions())

	if got.Items == nil {
		t.Fatal("Items should be an empty slice, not nil")
	}
	if len(got.Items) != 0 || got.TotalTokens != 0 {
		t.Errorf("expected an empty context, got %d items / %d tokens", len(got.Items), got.TotalTokens)
	}
}

func TestRetrieveContextCancelled(t *testing.T) {
	searcher := &stubSearcher{
		results: map[ItemType][]SearchCandidate{
			ItemTypeMemory: {{ID: "m1", Content: "anything at all", Score: 0.9, CreatedAt: time.Now()}},
		},
	}
	engine := newTestEngine(searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := engine.RetrieveContext(ctx, "user-1", "anything", DefaultOptions())

	if len(got.Items) != 0 {
		t.Errorf("cancelled retrieval should yield an empty context, got %d items", len(got.Items))
	}
}

func TestRetrieveContextSourceToggles(t *testing.T) {
	old := time.Now().AddDate(0, 0, -40)
	searcher := &stubSearcher{
		results: map[ItemType][]SearchCandidate{
			ItemTypeMemory:   {{ID: "m1", Content: "enjoys long distance trail running", Score: 0.9, CreatedAt: old}},
			ItemTypeMessage:  {{ID: "c1", Content: "asked about marathon training plans", Score: 0.9, CreatedAt: old}},
			ItemTypeDocument: {{ID: "d1", Content: "training plan spreadsheet notes for spring", Score: 0.9, CreatedAt: old}},
		},
	}
	engine := newTestEngine(searcher)

	opts := DefaultOptions()
	opts.UseCache = false
	opts.IncludeMessages = false
	opts.IncludeDocuments = false
	got := engine.RetrieveContext(context.Background(), "user-1", "running", opts)

	if got.Summary.MessagesCount != 0 || got.Summary.DocumentsCount != 0 {
		t.Errorf("disabled sources contributed items: %+v", got.Summary)
	}
	if got.Summary.MemoriesCount != 1 {
		t.Errorf("enabled source missing: %+v", got.Summary)
	}
}

func TestNormalizeOptions(t *testing.T) {
	engine := newTestEngine(&stubSearcher{})

	tests := []struct {
		name string
		in   Options
		want func(Options) bool
	}{
		{
			name: "zero_values_get_defaults",
			in:   Options{},
			want: func(o Options) bool {
				return o.TokenBudget == 4000 && o.MinRelevanceScore == 0.5 && o.MaxItems == 50
			},
		},
		{
			name: "all_sources_disabled_flips_to_all_enabled",
			in:   Options{TokenBudget: 1000, MinRelevanceScore: 0.3, MaxItems: 5},
			want: func(o Options) bool {
				return o.IncludeMemories && o.IncludeMessages && o.IncludeDocuments
			},
		},
		{
			name: "oversized_max_items_clamped",
			in:   Options{MaxItems: 500, IncludeMemories: true},
			want: func(o Options) bool { return o.MaxItems == 50 },
		},
		{
			name: "valid_values_preserved",
			in:   Options{TokenBudget: 2000, MinRelevanceScore: 0.7, MaxItems: 10, IncludeMemories: true},
			want: func(o Options) bool {
				return o.TokenBudget == 2000 && o.MinRelevanceScore == 0.7 && o.MaxItems == 10
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.normalizeOptions(tt.in); !tt.want(got) {
				t.Errorf("normalizeOptions(%+v) = %+v", tt.in, got)
			}
		})
	}
}
