// Package wc is the WooCommerce REST client used at the core's boundary:
// paginated product fetch for the mirror refresh and the batch-update
// endpoint the sync engine submits chunks to.
package wc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"gadgetsync/config"
	"gadgetsync/pkg/logger"
	"gadgetsync/pkg/retry"
)

const (
	fetchPageSize = 100
	clientTimeout = 60 * time.Second
)

// fetchRetry matches the historical mirror-refresh behavior: three attempts
// per page with a five second pause, exhaustion fatal for the refresh.
var fetchRetry = retry.Policy{MaxAttempts: 3, Delay: 5 * time.Second}

type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	// pageLimiter spaces out paginated fetches so a full-catalog refresh
	// does not hammer the store.
	pageLimiter *rate.Limiter
	log         logger.Logger
}

func NewClient(cfg config.WooCommerceConfig, log logger.Logger) (*Client, error) {
	if cfg.URL == "" || cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("woocommerce credentials are not configured")
	}
	return &Client{
		baseURL:        cfg.URL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		httpClient:     &http.Client{Timeout: clientTimeout},
		pageLimiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		log:            log,
	}, nil
}

// FetchAllProducts walks the paginated products listing until an empty page.
func (c *Client) FetchAllProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	for page := 1; ; page++ {
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var batch []Product
		err := fetchRetry.Do(ctx, func() error {
			c.log.Log("fetching products page %d", page)
			return c.getJSON(ctx, fmt.Sprintf("/wp-json/wc/v3/products?per_page=%d&page=%d", fetchPageSize, page), &batch)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch products page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}
	return all, nil
}

// BatchUpdate submits one chunk of partial product updates. Transport and
// HTTP-level failures return an error; per-item failures are reported in the
// result and left to the caller.
func (c *Client) BatchUpdate(ctx context.Context, updates []ProductUpdate) (*BatchResult, error) {
	body, err := json.Marshal(batchRequest{Update: updates})
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wp-json/wc/v3/products/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read batch response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Log("batch update failed with status %d: %s", resp.StatusCode, truncateForLog(respBody))
		return nil, fmt.Errorf("batch update status %d", resp.StatusCode)
	}

	var result BatchResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("User-Agent", "gadgetsync/1.0")
}

func truncateForLog(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// ParsePrice converts a WooCommerce price string to a float pointer; empty
// strings mean the field is unset.
func ParsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FormatPrice renders a price for an outbound payload; nil becomes the empty
// string, which clears the field on the store side.
func FormatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
