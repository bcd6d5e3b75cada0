// Package marketplace implements the live price tier: a client for the
// external scraping service, the listing quality filter, and the resolver
// that aggregates surviving listings and writes the statistic back to the
// price store.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const (
	searchPath = "/v1/search"

	defaultTimeout     = 15 * time.Second
	defaultMaxListings = 20

	maxResponseBytes = 4 << 20
)

// Listing is one marketplace search result.
type Listing struct {
	Name         string  `json:"name"`
	PriceIDR     int64   `json:"price_idr"`
	Rating       float64 `json:"rating"`
	Sold         int64   `json:"sold"`
	SellerTier   string  `json:"seller_tier,omitempty"`
	SellerRegion string  `json:"seller_region,omitempty"`
	Stock        int     `json:"stock"`
	Status       string  `json:"status,omitempty"`
	URL          string  `json:"url,omitempty"`
}

// Available reports whether the listing can actually be bought.  Sold-out
// listings carry a non-active status; scrapers that do not report stock
// leave it zero, which counts as unknown rather than empty.
func (l *Listing) Available() bool {
	if l.PriceIDR <= 0 || l.Stock < 0 {
		return false
	}
	switch l.Status {
	case "", "active", "available":
		return true
	default:
		return false
	}
}

type searchResponse struct {
	Listings []Listing `json:"listings"`
}

// Client calls the scraping service.
type Client struct {
	baseURL     string
	apiToken    string
	maxListings int
	httpClient  *http.Client
	logger      logging.Logger
}

// NewClient builds the scraper client from config.
func NewClient(cfg config.MarketplaceConfig, log logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeConfigError, "marketplace base url required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxListings := cfg.MaxListings
	if maxListings <= 0 {
		maxListings = defaultMaxListings
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiToken:    cfg.APIToken,
		maxListings: maxListings,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.Named("marketplace"),
	}, nil
}

// SearchListings queries the scraping service for listings matching the
// material name.
func (c *Client) SearchListings(ctx context.Context, query string) ([]Listing, error) {
	u := fmt.Sprintf("%s%s?q=%s&limit=%s",
		c.baseURL, searchPath, url.QueryEscape(query), strconv.Itoa(c.maxListings))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to build search request")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "marketplace search failed").
			WithDetail(query)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to read search response")
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("marketplace search error",
			logging.String("query", query), logging.Int("status", resp.StatusCode))
		return nil, errors.New(errors.ErrCodeSourceUnavailable,
			fmt.Sprintf("marketplace returned status %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceBadResponse, "malformed search response")
	}
	return parsed.Listings, nil
}
