// Package generator calls the external bill-of-materials service.  The
// service wraps an LLM: given a project description it returns material
// line items, and given a quote document it returns the extracted lines.
package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bangunhq/estimator/internal/application/estimate"
	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/internal/domain/boq"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const (
	bomPath     = "/v1/bom"
	extractPath = "/v1/extract"

	defaultTimeout = 120 * time.Second

	// Responses are decoded fully; cap them so a misbehaving service
	// cannot exhaust memory.
	maxResponseBytes = 8 << 20
)

// Client talks to the generator service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds the generator client from config.
func NewClient(cfg config.GeneratorConfig, log logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeConfigError, "generator base url required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Named("generator"),
	}, nil
}

type bomRequest struct {
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	ProjectType string   `json:"project_type,omitempty"`
	Images      []string `json:"images,omitempty"`
	Model       string   `json:"model,omitempty"`
}

type bomResponse struct {
	Items []estimate.BOMItem `json:"items"`
}

// GenerateBOM implements estimate.Generator.
func (c *Client) GenerateBOM(ctx context.Context, input estimate.EstimateInput) ([]estimate.BOMItem, error) {
	req := bomRequest{
		Description: input.Description,
		Location:    input.Location,
		ProjectType: input.ProjectType,
		Images:      input.Images,
		Model:       c.model,
	}

	var resp bomResponse
	if err := c.post(ctx, bomPath, req, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenerationFailed, "bill of materials request failed")
	}
	c.logger.Debug("bill of materials generated", logging.Int("items", len(resp.Items)))
	return resp.Items, nil
}

type extractRequest struct {
	DocumentBase64 string `json:"document_base64"`
	Format         string `json:"format"`
	Filename       string `json:"filename,omitempty"`
	Model          string `json:"model,omitempty"`
}

type extractResponse struct {
	Document boq.Document `json:"document"`
}

// ExtractDocument implements estimate.Extractor.
func (c *Client) ExtractDocument(ctx context.Context, content []byte, format, filename string) (*boq.Document, error) {
	req := extractRequest{
		DocumentBase64: base64.StdEncoding.EncodeToString(content),
		Format:         format,
		Filename:       filename,
		Model:          c.model,
	}

	var resp extractResponse
	if err := c.post(ctx, extractPath, req, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBoqExtractFailed, "document extraction request failed")
	}
	c.logger.Debug("document extracted",
		logging.String("filename", filename),
		logging.Int("lines", len(resp.Document.Lines)))
	return &resp.Document, nil
}

func (c *Client) post(ctx context.Context, path string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generator service error",
			logging.String("path", path),
			logging.Int("status", resp.StatusCode))
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
