package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bangunhq/estimator/internal/domain/job"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

// EstimateInput is the client request that seeds a full-project estimate.
type EstimateInput struct {
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	ProjectType string   `json:"project_type,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Validate rejects inputs the generator cannot work with.
func (in *EstimateInput) Validate() error {
	if len(strings.TrimSpace(in.Description)) < 10 {
		return errors.Validation("project description must be at least 10 characters")
	}
	return nil
}

// BOMItem is one generated bill-of-materials line, before pricing.
type BOMItem struct {
	MaterialName string  `json:"material_name"`
	EnglishName  string  `json:"english_name,omitempty"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Category     string  `json:"category,omitempty"`
}

// Generator is the external bill-of-materials generator.
type Generator interface {
	GenerateBOM(ctx context.Context, input EstimateInput) ([]BOMItem, error)
}

// PriceResolver prices one material.  Implemented by the pricing engine.
type PriceResolver interface {
	Resolve(ctx context.Context, req domainPricing.LookupRequest) (domainPricing.LookupResult, error)
}

// PricedItem is one estimate line after price resolution.
type PricedItem struct {
	MaterialName   string  `json:"material_name"`
	EnglishName    string  `json:"english_name,omitempty"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category,omitempty"`
	UnitPriceIDR   int64   `json:"unit_price_idr"`
	TotalPriceIDR  int64   `json:"total_price_idr"`
	Source         string  `json:"source"`
	Confidence     float64 `json:"confidence"`
	MarketplaceURL string  `json:"marketplace_url,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// EstimateResult is the completed-job payload.
type EstimateResult struct {
	Items            []PricedItem   `json:"items"`
	MaterialTotalIDR int64          `json:"material_total_idr"`
	LaborTotalIDR    int64          `json:"labor_total_idr"`
	GrandTotalIDR    int64          `json:"grand_total_idr"`
	SourceCounts     map[string]int `json:"source_counts"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// EstimatePipeline turns a project description into a fully priced bill of
// materials with a labor heuristic on top.
type EstimatePipeline struct {
	generator Generator
	prices    PriceResolver
	laborRate float64
	logger    logging.Logger
}

// NewEstimatePipeline builds the pipeline.  laborRate is the fraction of
// the material total charged as labor.
func NewEstimatePipeline(generator Generator, prices PriceResolver, laborRate float64, logger logging.Logger) *EstimatePipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EstimatePipeline{
		generator: generator,
		prices:    prices,
		laborRate: laborRate,
		logger:    logger.Named("estimate"),
	}
}

// Kind implements Pipeline.
func (p *EstimatePipeline) Kind() job.Kind { return job.KindEstimate }

// Run implements Pipeline: generate the bill of materials, price each line,
// and assemble totals.
func (p *EstimatePipeline) Run(ctx context.Context, raw json.RawMessage, report ProgressFunc) (json.RawMessage, error) {
	var input EstimateInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed estimate input")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	report(job.ProgressGenerating, "generating bill of materials")
	items, err := p.generator.GenerateBOM(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenerationFailed, "bill of materials generation failed")
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeGenerationFailed, "generator returned no line items")
	}

	report(job.ProgressPricing, fmt.Sprintf("resolving prices for %d materials", len(items)))
	priced, materialTotal, counts, err := p.priceItems(ctx, items, report)
	if err != nil {
		return nil, err
	}

	report(job.ProgressTotals, "calculating totals")
	laborTotal := int64(float64(materialTotal) * p.laborRate)
	result := EstimateResult{
		Items:            priced,
		MaterialTotalIDR: materialTotal,
		LaborTotalIDR:    laborTotal,
		GrandTotalIDR:    materialTotal + laborTotal,
		SourceCounts:     counts,
		GeneratedAt:      time.Now().UTC(),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "result encoding failed")
	}
	return payload, nil
}

// priceItems resolves each line sequentially, reporting per-item progress.
// A price-store outage fails the whole pipeline; any other per-item failure
// degrades that line to the category heuristic.
func (p *EstimatePipeline) priceItems(ctx context.Context, items []BOMItem, report ProgressFunc) ([]PricedItem, int64, map[string]int, error) {
	priced := make([]PricedItem, 0, len(items))
	counts := make(map[string]int)
	var materialTotal int64
	total := len(items)

	for i, item := range items {
		report(job.PricingProgress(i, total), fmt.Sprintf("searching price for %s", displayName(item)))

		req := domainPricing.LookupRequest{
			Name:     item.MaterialName,
			Quantity: item.Quantity,
			Unit:     item.Unit,
			Category: item.Category,
		}
		res, err := p.prices.Resolve(ctx, req)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeCacheError) {
				return nil, 0, nil, err
			}
			p.logger.Warn("line degraded to heuristic estimate",
				logging.String("material", item.MaterialName), logging.Err(err))
			res = domainPricing.EstimatedResult(req, item.Category)
		}

		priced = append(priced, PricedItem{
			MaterialName:   item.MaterialName,
			EnglishName:    item.EnglishName,
			Quantity:       res.Quantity,
			Unit:           res.Unit,
			Category:       item.Category,
			UnitPriceIDR:   res.UnitPrice,
			TotalPriceIDR:  res.TotalPrice,
			Source:         string(res.Source),
			Confidence:     res.Confidence,
			MarketplaceURL: res.MarketplaceURL,
			Note:           res.Note,
		})
		materialTotal += res.TotalPrice
		counts[string(res.Source)]++

		report(job.PricingProgress(i+1, total),
			fmt.Sprintf("%s priced from %s", displayName(item), res.Source))
	}
	return priced, materialTotal, counts, nil
}

// displayName prefers the English name for progress messages, truncated so
// status payloads stay small.
func displayName(item BOMItem) string {
	name := item.EnglishName
	if name == "" {
		name = item.MaterialName
	}
	return truncate(name, 50)
}
