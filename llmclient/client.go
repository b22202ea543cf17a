package llmclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"context-engine/config"
	apperrors "context-engine/errors"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Embedding request/response mirror llama.cpp's expected schema
type embeddingRequest struct {
	Content string `json:"content"`
}

type embeddingResponse []struct {
	Embedding [][]float32 `json:"embedding"`
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
	cache      *lru.Cache
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	// Identical content always embeds to the same vector, so completed requests
	// are memoized in a bounded LRU.
	cacheSize := cfg.EmbeddingCacheSize
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		logger.Warn("Failed to create embedding cache, continuing without it", zap.Error(err))
		cache = nil
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
		cache:      cache,
	}
}

// Embed generates an embedding vector for the provided text using the
// llama.cpp-compatible embeddings endpoint.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	cacheKey := hashText(text)
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if vec, ok := cached.([]float32); ok {
				return vec, nil
			}
		}
	}

	reqBody := embeddingRequest{Content: text}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", strings.TrimRight(c.cfg.EmbeddingLLMHost, "/"))
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.maxRetries(); attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		r, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if r.StatusCode == http.StatusServiceUnavailable {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			lastErr = fmt.Errorf("embedding server unavailable")
			c.logger.Warn("Embedding model loading, retrying")
			c.backoffSleep(attempt)
			continue
		}

		resp = r
		break
	}
	if resp == nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrEmbeddingFailed, "no response from embedding server: %v", lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.WrapErrorf(apperrors.ErrEmbeddingFailed, "embedding server status %s: %s", resp.Status, string(bodyBytes))
	}

	var er embeddingResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(er) == 0 || len(er[0].Embedding) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrEmbeddingFailed, "embedding response was empty")
	}

	vec := er[0].Embedding[0]
	if c.cache != nil {
		c.cache.Add(cacheKey, vec)
	}
	return vec, nil
}

func (c *Client) maxRetries() int {
	if c.cfg.MaxRetries > 0 {
		return c.cfg.MaxRetries
	}
	return 3
}

func (c *Client) backoffSleep(attempt int) {
	d := time.Duration(attempt+1) * 500 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	time.Sleep(d)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
