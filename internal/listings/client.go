package listings

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
)

// maxBatch caps the IDs sent in one lookup request.
const maxBatch = 200

// HTTPCatalog queries the listings service over HTTP:
//
//	POST {baseURL}/api/v1/listings/batch  {"ids": [...]}
//	200 {"data": [{"id": ..., "category": ..., ...}]}
type HTTPCatalog struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Catalog = (*HTTPCatalog)(nil)

// NewHTTPCatalog creates a client for the listings service at baseURL.
func NewHTTPCatalog(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPCatalog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCatalog{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type batchResponse struct {
	Data []listingDTO `json:"data"`
}

type listingDTO struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Title      string `json:"title"`
	Currency   string `json:"currency"`
	City       string `json:"city"`
	ImageURL   string `json:"image_url"`
	PriceCents int64  `json:"price_cents"`
}

// Listings implements Catalog, splitting large lookups into batches.
func (c *HTTPCatalog) Listings(ctx context.Context, ids []string) (map[string]domain.Listing, error) {
	out := make(map[string]domain.Listing, len(ids))
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		if err := c.fetch(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *HTTPCatalog) fetch(ctx context.Context, ids []string, out map[string]domain.Listing) error {
	body, err := json.Marshal(batchRequest{IDs: ids})
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	url := c.baseURL + "/api/v1/listings/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("listings service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("listings service returned error",
			"status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("listings service returned status %d", resp.StatusCode)
	}

	var decoded batchResponse
	if err := json.UnmarshalRead(resp.Body, &decoded); err != nil {
		return fmt.Errorf("decode listings response: %w", err)
	}

	for _, d := range decoded.Data {
		out[d.ID] = domain.Listing{
			ID:         d.ID,
			Category:   d.Category,
			Title:      d.Title,
			Currency:   d.Currency,
			City:       d.City,
			ImageURL:   d.ImageURL,
			PriceCents: d.PriceCents,
		}
	}
	c.logger.Debug("listings fetched", "requested", len(ids), "found", len(decoded.Data))
	return nil
}
