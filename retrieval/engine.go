package retrieval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTokenBudget = 4000
	defaultMinScore    = 0.5
	defaultMaxItems    = 50
)

// EngineConfig tunes the engine. Zero values fall back to the documented
// defaults.
type EngineConfig struct {
	CacheTTL           time.Duration
	CacheMaxEntries    int
	DefaultTokenBudget int
	DefaultMinScore    float64
	DefaultMaxItems    int
}

// Engine gathers candidates from the three knowledge sources, fuses their
// relevance, removes redundancy, balances source diversity and assembles the
// best subset under a token budget. It is safe for concurrent use.
type Engine struct {
	searcher Searcher
	cache    *contextCache
	cfg      EngineConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine builds an engine over the given hybrid search collaborator.
func NewEngine(searcher Searcher, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.DefaultTokenBudget <= 0 {
		cfg.DefaultTokenBudget = defaultTokenBudget
	}
	if cfg.DefaultMinScore <= 0 {
		cfg.DefaultMinScore = defaultMinScore
	}
	if cfg.DefaultMaxItems <= 0 {
		cfg.DefaultMaxItems = defaultMaxItems
	}
	return &Engine{
		searcher: searcher,
		cache:    newContextCache(cfg.CacheTTL, cfg.CacheMaxEntries, time.Now),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

type sourceResult struct {
	source ItemType
	items  []RetrievedItem
	err    error
}

// RetrieveContext assembles a token-budget-constrained context block for the
// query. It never fails outright: collaborator errors degrade to partial or
// empty sources, and when every source comes back empty the result is a valid
// empty context. Cancellation of ctx aborts in-flight retrievers and returns
// an empty context; no partial result is kept.
func (e *Engine) RetrieveContext(ctx context.Context, userID, query string, opts Options) AssembledContext {
	opts = e.normalizeOptions(opts)

	key := cacheKey(userID, query, opts)
	if opts.UseCache {
		if cached, ok := e.cache.Get(key); ok {
			e.logger.Debug("Context cache hit", zap.String("user_id", userID))
			return cached
		}
	}

	enhanced := EnhanceQuery(query)
	now := e.now()
	filters := SearchFilters{ChatID: opts.ChatID}

	sources := make([]ItemType, 0, 3)
	if opts.IncludeMemories {
		sources = append(sources, ItemTypeMemory)
	}
	if opts.IncludeMessages {
		sources = append(sources, ItemTypeMessage)
	}
	if opts.IncludeDocuments {
		sources = append(sources, ItemTypeDocument)
	}

	results := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(source ItemType) {
			defer wg.Done()
			items, err := retrieveSource(ctx, e.searcher, source, userID, enhanced, opts.MaxItems, filters, now)
			results <- sourceResult{source: source, items: items, err: err}
		}(source)
	}
	wg.Wait()
	close(results)

	// Map per-source failures to empty slices here at the join point rather
	// than inside the retrievers.
	var candidates []RetrievedItem
	for res := range results {
		if res.err != nil {
			e.logger.Warn("Source retrieval failed, continuing with partial sources",
				zap.String("source", string(res.source)),
				zap.Error(res.err))
			continue
		}
		candidates = append(candidates, res.items...)
	}

	if ctx.Err() != nil {
		e.logger.Debug("Context retrieval cancelled", zap.Error(ctx.Err()))
		return assembleContext(nil, opts.TokenBudget)
	}

	ranked := rankItems(candidates, enhanced.Keywords, opts.MinRelevanceScore)
	stratified := stratifyByRecency(ranked, now)
	deduped := dedupItems(stratified)
	diversified := selectDiverse(deduped, opts.MaxItems)
	assembled := assembleContext(diversified, opts.TokenBudget)

	e.logger.Debug("Context assembled",
		zap.String("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", len(ranked)),
		zap.Int("selected", len(assembled.Items)),
		zap.Int("total_tokens", assembled.TotalTokens))

	if opts.UseCache {
		e.cache.Put(key, assembled)
	}
	return assembled
}

// normalizeOptions clamps out-of-range values to defaults. Context assembly is
// best-effort, so invalid configuration degrades instead of erroring.
func (e *Engine) normalizeOptions(opts Options) Options {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = e.cfg.DefaultTokenBudget
	}
	if opts.MinRelevanceScore <= 0 {
		opts.MinRelevanceScore = e.cfg.DefaultMinScore
	}
	if opts.MaxItems <= 0 || opts.MaxItems > defaultMaxItems {
		opts.MaxItems = e.cfg.DefaultMaxItems
	}
	// A request excluding every source is treated as the default all-source
	// request.
	if !opts.IncludeMemories && !opts.IncludeMessages && !opts.IncludeDocuments {
		opts.IncludeMemories = true
		opts.IncludeMessages = true
		opts.IncludeDocuments = true
	}
	return opts
}

// ClearCache drops all memoized contexts.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheStats exposes cache counters for the maintenance endpoints.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}
