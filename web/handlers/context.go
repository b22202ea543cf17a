package handlers

import (
	"context"
	"net/http"
	"time"

	"context-engine/format"
	"context-engine/retrieval"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContextHandler struct {
	engine  *retrieval.Engine
	logger  *zap.Logger
	timeout time.Duration
}

func NewContextHandler(engine *retrieval.Engine, logger *zap.Logger, timeout time.Duration) *ContextHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ContextHandler{
		engine:  engine,
		logger:  logger,
		timeout: timeout,
	}
}

// ContextRequest mirrors the engine's options. Boolean include flags are
// pointers so an omitted flag keeps its default of true.
type ContextRequest struct {
	UserID            string  `json:"user_id" binding:"required"`
	Query             string  `json:"query" binding:"required"`
	ChatID            string  `json:"chat_id"`
	TokenBudget       int     `json:"token_budget"`
	IncludeMemories   *bool   `json:"include_memories"`
	IncludeMessages   *bool   `json:"include_messages"`
	IncludeDocuments  *bool   `json:"include_documents"`
	MinRelevanceScore float64 `json:"min_relevance_score"`
	MaxItems          int     `json:"max_items"`
	UseCache          *bool   `json:"use_cache"`
}

func (r *ContextRequest) options() retrieval.Options {
	opts := retrieval.DefaultOptions()
	opts.ChatID = r.ChatID
	if r.TokenBudget > 0 {
		opts.TokenBudget = r.TokenBudget
	}
	if r.IncludeMemories != nil {
		opts.IncludeMemories = *r.IncludeMemories
	}
	if r.IncludeMessages != nil {
		opts.IncludeMessages = *r.IncludeMessages
	}
	if r.IncludeDocuments != nil {
		opts.IncludeDocuments = *r.IncludeDocuments
	}
	if r.MinRelevanceScore > 0 {
		opts.MinRelevanceScore = r.MinRelevanceScore
	}
	if r.MaxItems > 0 {
		opts.MaxItems = r.MaxItems
	}
	if r.UseCache != nil {
		opts.UseCache = *r.UseCache
	}
	return opts
}

// Retrieve assembles a context block and returns it as JSON.
func (h *ContextHandler) Retrieve(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	assembled := h.engine.RetrieveContext(ctx, req.UserID, req.Query, req.options())
	c.JSON(http.StatusOK, assembled)
}

// Preview assembles a context block and returns the prompt-ready markdown plus
// an HTML rendering of it.
func (h *ContextHandler) Preview(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	assembled := h.engine.RetrieveContext(ctx, req.UserID, req.Query, req.options())
	md := format.ForPrompt(assembled)
	c.JSON(http.StatusOK, gin.H{
		"summary":  assembled.Summary,
		"markdown": md,
		"html":     format.ToHTML(md),
	})
}

func (h *ContextHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.CacheStats())
}

func (h *ContextHandler) CacheClear(c *gin.Context) {
	h.engine.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
