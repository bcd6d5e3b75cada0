package estimate

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/internal/domain/job"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/pkg/errors"
)

// fakeGenerator returns canned bill-of-materials lines.
type fakeGenerator struct {
	items []BOMItem
	err   error
}

func (g *fakeGenerator) GenerateBOM(context.Context, EstimateInput) ([]BOMItem, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.items, nil
}

// fakeResolver prices by material name from a fixed table, falling back to
// an error for unknown names.
type fakeResolver struct {
	mu     sync.Mutex
	prices map[string]int64
	errFor map[string]error
	calls  []string
}

func (r *fakeResolver) Resolve(_ context.Context, req domainPricing.LookupRequest) (domainPricing.LookupResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req.Name)
	r.mu.Unlock()

	if err, ok := r.errFor[req.Name]; ok {
		return domainPricing.LookupResult{}, err
	}
	price, ok := r.prices[req.Name]
	if !ok {
		return domainPricing.LookupResult{}, errors.New(errors.ErrCodeLookupFailed, "marketplace unavailable")
	}
	req.Normalize()
	return domainPricing.LookupResult{
		Name:          req.Name,
		CanonicalName: domainPricing.Canonicalize(req.Name),
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		UnitPrice:     price,
		TotalPrice:    int64(float64(price) * req.Quantity),
		Source:        domainPricing.SourceCached,
		Confidence:    0.95,
	}, nil
}

func discardProgress(int, string) {}

func estimateInput(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(EstimateInput{
		Description: "renovate a 3x4 bathroom with new tiles and plumbing",
		Location:    "Jakarta Selatan",
	})
	require.NoError(t, err)
	return raw
}

func TestEstimatePipelineRun(t *testing.T) {
	gen := &fakeGenerator{items: []BOMItem{
		{MaterialName: "keramik lantai 40x40", EnglishName: "floor tile", Quantity: 12, Unit: "m2", Category: "finishing"},
		{MaterialName: "semen portland 50kg", EnglishName: "cement", Quantity: 5, Unit: "pcs", Category: "structural"},
	}}
	resolver := &fakeResolver{prices: map[string]int64{
		"keramik lantai 40x40": 85_000,
		"semen portland 50kg":  70_000,
	}}
	p := NewEstimatePipeline(gen, resolver, 0.30, nil)

	payload, err := p.Run(context.Background(), estimateInput(t), discardProgress)
	require.NoError(t, err)

	var result EstimateResult
	require.NoError(t, json.Unmarshal(payload, &result))
	require.Len(t, result.Items, 2)

	assert.Equal(t, int64(85_000*12), result.Items[0].TotalPriceIDR)
	assert.Equal(t, int64(70_000*5), result.Items[1].TotalPriceIDR)

	materialTotal := int64(85_000*12 + 70_000*5)
	assert.Equal(t, materialTotal, result.MaterialTotalIDR)
	assert.Equal(t, int64(float64(materialTotal)*0.30), result.LaborTotalIDR)
	assert.Equal(t, result.MaterialTotalIDR+result.LaborTotalIDR, result.GrandTotalIDR)
	assert.Equal(t, map[string]int{"cached": 2}, result.SourceCounts)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestEstimatePipelineReportsPerItemProgress(t *testing.T) {
	gen := &fakeGenerator{items: []BOMItem{
		{MaterialName: "keramik lantai 40x40", Quantity: 1, Unit: "m2"},
		{MaterialName: "semen portland 50kg", Quantity: 1, Unit: "pcs"},
	}}
	resolver := &fakeResolver{prices: map[string]int64{
		"keramik lantai 40x40": 85_000,
		"semen portland 50kg":  70_000,
	}}
	p := NewEstimatePipeline(gen, resolver, 0.30, nil)

	var progress []int
	report := func(pct int, _ string) { progress = append(progress, pct) }

	_, err := p.Run(context.Background(), estimateInput(t), report)
	require.NoError(t, err)

	assert.Equal(t, job.ProgressGenerating, progress[0])
	assert.Equal(t, job.ProgressTotals, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress never moves backwards")
	}
}

func TestEstimatePipelineDegradesFailedLookup(t *testing.T) {
	gen := &fakeGenerator{items: []BOMItem{
		{MaterialName: "keramik lantai 40x40", Quantity: 10, Unit: "m2", Category: "finishing"},
		{MaterialName: "granit impor langka", Quantity: 4, Unit: "m2", Category: "finishing"},
	}}
	resolver := &fakeResolver{prices: map[string]int64{"keramik lantai 40x40": 85_000}}
	p := NewEstimatePipeline(gen, resolver, 0.30, nil)

	payload, err := p.Run(context.Background(), estimateInput(t), discardProgress)
	require.NoError(t, err)

	var result EstimateResult
	require.NoError(t, json.Unmarshal(payload, &result))
	require.Len(t, result.Items, 2)

	degraded := result.Items[1]
	assert.Equal(t, string(domainPricing.SourceEstimated), degraded.Source)
	assert.InDelta(t, 0.30, degraded.Confidence, 1e-9)
	// finishing / m2 heuristic price.
	assert.Equal(t, int64(300_000), degraded.UnitPriceIDR)
	assert.Equal(t, int64(1_200_000), degraded.TotalPriceIDR)
	assert.Equal(t, map[string]int{"cached": 1, "estimated": 1}, result.SourceCounts)
}

func TestEstimatePipelineStoreOutageFailsRun(t *testing.T) {
	gen := &fakeGenerator{items: []BOMItem{
		{MaterialName: "keramik lantai 40x40", Quantity: 1, Unit: "m2"},
	}}
	resolver := &fakeResolver{errFor: map[string]error{
		"keramik lantai 40x40": errors.New(errors.ErrCodeCacheError, "price store unavailable"),
	}}
	p := NewEstimatePipeline(gen, resolver, 0.30, nil)

	_, err := p.Run(context.Background(), estimateInput(t), discardProgress)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestEstimatePipelineGeneratorFailure(t *testing.T) {
	p := NewEstimatePipeline(&fakeGenerator{err: assert.AnError}, &fakeResolver{}, 0.30, nil)

	_, err := p.Run(context.Background(), estimateInput(t), discardProgress)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenerationFailed))
}

func TestEstimatePipelineEmptyBOM(t *testing.T) {
	p := NewEstimatePipeline(&fakeGenerator{}, &fakeResolver{}, 0.30, nil)

	_, err := p.Run(context.Background(), estimateInput(t), discardProgress)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenerationFailed))
}

func TestEstimatePipelineRejectsShortDescription(t *testing.T) {
	p := NewEstimatePipeline(&fakeGenerator{}, &fakeResolver{}, 0.30, nil)

	raw, err := json.Marshal(EstimateInput{Description: "fix sink"})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), raw, discardProgress)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEstimatePipelineRejectsMalformedInput(t *testing.T) {
	p := NewEstimatePipeline(&fakeGenerator{}, &fakeResolver{}, 0.30, nil)

	_, err := p.Run(context.Background(), json.RawMessage(`{"description": 42}`), discardProgress)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEstimatePipelineKind(t *testing.T) {
	p := NewEstimatePipeline(&fakeGenerator{}, &fakeResolver{}, 0.30, nil)
	assert.Equal(t, job.KindEstimate, p.Kind())
}
