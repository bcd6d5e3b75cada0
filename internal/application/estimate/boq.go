package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainBoq "github.com/bangunhq/estimator/internal/domain/boq"
	"github.com/bangunhq/estimator/internal/domain/job"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

// Supported quote document formats.
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
)

// BoqInput references an uploaded quote document by its object-store key.
type BoqInput struct {
	DocumentKey string `json:"document_key"`
	Filename    string `json:"filename,omitempty"`
	Format      string `json:"format"`
}

// Validate rejects inputs without a retrievable document.
func (in *BoqInput) Validate() error {
	if in.DocumentKey == "" {
		return errors.Validation("document_key is required")
	}
	if in.Format != FormatPDF && in.Format != FormatExcel {
		return errors.Validation("format must be pdf or excel").WithDetail(in.Format)
	}
	return nil
}

// DocumentStore fetches uploaded quote documents.
type DocumentStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Extractor turns document bytes into structured quote lines.
type Extractor interface {
	ExtractDocument(ctx context.Context, content []byte, format, filename string) (*domainBoq.Document, error)
}

// BoqResult is the completed-job payload for a quote analysis.
type BoqResult struct {
	ProjectName     string            `json:"project_name,omitempty"`
	ContractorName  string            `json:"contractor_name,omitempty"`
	ProjectLocation string            `json:"project_location,omitempty"`
	Lines           []domainBoq.Line  `json:"lines"`
	Summary         domainBoq.Summary `json:"summary"`
	Warnings        []string          `json:"extraction_warnings,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// BoqPipeline analyses an uploaded contractor quote: extract lines, price
// the materials against the market, and report where the contractor sits.
type BoqPipeline struct {
	store     DocumentStore
	extractor Extractor
	prices    PriceResolver
	logger    logging.Logger
}

// NewBoqPipeline builds the pipeline.
func NewBoqPipeline(store DocumentStore, extractor Extractor, prices PriceResolver, logger logging.Logger) *BoqPipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BoqPipeline{
		store:     store,
		extractor: extractor,
		prices:    prices,
		logger:    logger.Named("boq"),
	}
}

// Kind implements Pipeline.
func (p *BoqPipeline) Kind() job.Kind { return job.KindBoq }

// Run implements Pipeline.
func (p *BoqPipeline) Run(ctx context.Context, raw json.RawMessage, report ProgressFunc) (json.RawMessage, error) {
	var input BoqInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed quote analysis input")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	report(job.ProgressGenerating, "extracting quote line items")
	content, err := p.store.Fetch(ctx, input.DocumentKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBoqDocumentInvalid, "quote document unavailable")
	}
	doc, err := p.extractor.ExtractDocument(ctx, content, input.Format, input.Filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBoqExtractFailed, "quote document extraction failed")
	}
	if len(doc.Lines) == 0 {
		return nil, errors.New(errors.ErrCodeBoqEmptyDocument, "no line items extracted from the document")
	}

	for i := range doc.Lines {
		doc.Lines[i].Annotate()
	}

	report(job.ProgressPricing, fmt.Sprintf("pricing %d extracted lines", len(doc.Lines)))
	if err := p.priceLines(ctx, doc.Lines, report); err != nil {
		return nil, err
	}

	report(job.ProgressTotals, "calculating summary")
	result := BoqResult{
		ProjectName:     doc.ProjectName,
		ContractorName:  doc.ContractorName,
		ProjectLocation: doc.ProjectLocation,
		Lines:           doc.Lines,
		Summary:         domainBoq.Summarize(doc.Lines),
		Warnings:        doc.Warnings,
		GeneratedAt:     time.Now().UTC(),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "result encoding failed")
	}
	return payload, nil
}

// priceLines resolves market prices for the priceable material lines.  A
// price-store outage fails the pipeline; other lookup failures leave the
// line without market data, which the summary tolerates.
func (p *BoqPipeline) priceLines(ctx context.Context, lines []domainBoq.Line, report ProgressFunc) error {
	total := len(lines)
	for i := range lines {
		line := &lines[i]
		report(job.PricingProgress(i, total), fmt.Sprintf("analysing %s", truncate(line.Description, 50)))
		if !line.Priceable() {
			continue
		}

		query := domainBoq.SearchQuery(line.Description)
		line.SearchQuery = query

		res, err := p.prices.Resolve(ctx, domainPricing.LookupRequest{
			Name:     query,
			Quantity: 1,
			Unit:     line.Unit,
		})
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeCacheError) {
				return err
			}
			p.logger.Warn("market lookup failed for quote line",
				logging.String("query", query), logging.Err(err))
			continue
		}
		if res.Source == domainPricing.SourceEstimated {
			// Heuristic prices say nothing about the contractor's margin.
			continue
		}

		line.ApplyMarketPrice(res.UnitPrice, string(res.Source), res.MarketplaceURL,
			domainBoq.MatchConfidence(query, res.CanonicalName))
	}
	return nil
}

// truncate caps s at max runes, never splitting a multi-byte character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
