package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-notetaking-stream/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

const logModule = "Fetch"

// Client is the cached REST fetcher used by the data-loading side of the
// assistant UI. The cache is an owned instance passed by construction, never
// a shared package-level map, so two clients never see each other's entries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *cache.Cache
	logger  logger.ILogger
}

func NewClient(baseURL, token string, ttl time.Duration, log logger.ILogger) *Client {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		cache:   cache.New(ttl, 10*time.Minute),
		logger:  log,
	}
}

// GetJSON fetches baseURL+path and decodes the body into out. Responses are
// served from the TTL cache when present.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	if body, found := c.cache.Get(path); found {
		return json.Unmarshal(body.([]byte), out)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	c.cache.Set(path, body, cache.DefaultExpiration)
	c.logger.Debug(logModule, "Cached response", map[string]interface{}{
		"path":  path,
		"bytes": len(body),
	})
	return json.Unmarshal(body, out)
}

// Invalidate drops one cached path (e.g. after a mutation).
func (c *Client) Invalidate(path string) {
	c.cache.Delete(path)
}

// Flush drops every cached entry.
func (c *Client) Flush() {
	c.cache.Flush()
}
