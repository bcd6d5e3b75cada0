package pricing

import (
	"strings"
	"time"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Source tags where a resolved price came from.
type Source string

const (
	// SourceCached means the price came from a fresh exact-tier cache hit.
	SourceCached Source = "cached"
	// SourceFuzzy means the price came from a fuzzy-similarity cache hit.
	SourceFuzzy Source = "fuzzy-cached"
	// SourceLive means the price was resolved by a live marketplace lookup.
	SourceLive Source = "live"
	// SourceEstimated means the price is a degraded fallback: a stale cache
	// record or the category heuristic, never live data.
	SourceEstimated Source = "estimated"
)

// Seller tiers, ordered by trustworthiness.
const (
	SellerTierOfficial = "official_store"
	SellerTierPower    = "power_merchant"
	SellerTierRegular  = "regular"
)

// SellerTierRank orders seller tiers: official_store > power_merchant >
// regular.  Unknown tiers rank lowest.
func SellerTierRank(tier string) int {
	switch tier {
	case SellerTierOfficial:
		return 3
	case SellerTierPower:
		return 2
	case SellerTierRegular:
		return 1
	default:
		return 0
	}
}

// PriceRecord is the durable price statistic for one canonical material
// name.  Records are written only by the marketplace resolver (live lookup
// write-back) or batch backfill; read paths never mutate them.  Writes are
// whole-record upserts keyed by CanonicalName, so last-writer-wins is safe
// and staleness stays detectable through LastUpdated.
type PriceRecord struct {
	CanonicalName string    `json:"canonical_name"`
	DisplayName   string    `json:"display_name"`
	MaterialCode  string    `json:"material_code"`
	Unit          string    `json:"unit"`
	Category      string    `json:"category"`
	Aliases       []string  `json:"aliases,omitempty"`
	PriceLow      int64     `json:"price_low"`
	PriceHigh     int64     `json:"price_high"`
	PriceAvg      int64     `json:"price_avg"`
	PriceMedian   int64     `json:"price_median"`
	SampleSize    int       `json:"sample_size"`
	SellerTier    string    `json:"seller_tier,omitempty"`
	RatingAvg     float64   `json:"rating_avg,omitempty"`
	TotalSold     int64     `json:"total_sold,omitempty"`
	MarketplaceURL string   `json:"marketplace_url,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Validate checks the record invariants before persistence.
func (r *PriceRecord) Validate() error {
	if r.CanonicalName == "" {
		return errors.New(errors.ErrCodeInvalidPriceRecord, "canonical_name is required")
	}
	if r.CanonicalName != Canonicalize(r.CanonicalName) {
		return errors.New(errors.ErrCodeInvalidPriceRecord, "canonical_name is not in canonical form").
			WithDetail(r.CanonicalName)
	}
	if r.PriceAvg > 0 && r.SampleSize < 1 {
		return errors.New(errors.ErrCodeInvalidPriceRecord, "sample_size must be >= 1 when price_avg is set")
	}
	if r.PriceLow > r.PriceHigh {
		return errors.New(errors.ErrCodeInvalidPriceRecord, "price_low exceeds price_high")
	}
	return nil
}

// Age returns how long ago the record was refreshed.
func (r *PriceRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastUpdated)
}

// IsFresh reports whether the record is usable without re-scraping.
func (r *PriceRecord) IsFresh(now time.Time, window time.Duration) bool {
	return r.Age(now) < window
}

// stalenessFloor bounds how far staleness alone can degrade confidence.
const stalenessFloor = 0.5

// StalenessFactor returns a confidence multiplier in [stalenessFloor, 1]:
// 1.0 while the record is within the freshness window, declining linearly to
// the floor at three times the window.
func StalenessFactor(age, window time.Duration) float64 {
	if window <= 0 || age <= window {
		return 1
	}
	if age >= 3*window {
		return stalenessFloor
	}
	frac := float64(age-window) / float64(2*window)
	return 1 - frac*(1-stalenessFloor)
}

// LookupRequest asks for the market price of one material.  Ephemeral, never
// persisted.
type LookupRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category,omitempty"`
}

// Normalize fills defaults: quantity 1, unit "pcs".
func (q *LookupRequest) Normalize() {
	if q.Quantity <= 0 {
		q.Quantity = 1
	}
	if q.Unit == "" {
		q.Unit = "pcs"
	}
}

// Validate rejects requests with no material name.
func (q *LookupRequest) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return errors.Validation("material name is required")
	}
	return nil
}

// LookupResult is the resolved price for one LookupRequest.
type LookupResult struct {
	Name           string  `json:"name"`
	CanonicalName  string  `json:"canonical_name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	UnitPrice      int64   `json:"unit_price"`
	TotalPrice     int64   `json:"total_price"`
	Source         Source  `json:"source"`
	Confidence     float64 `json:"confidence"`
	MarketplaceURL string  `json:"marketplace_url,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// Failed reports whether this result is the zero-confidence sentinel emitted
// when an item's lookup failed inside a batch.
func (r *LookupResult) Failed() bool {
	return r.Confidence == 0 && r.Note != ""
}

// estimateConfidence is the confidence assigned to heuristic fallback prices.
const estimateConfidence = 0.30

// fallbackPrices is the category × unit heuristic table used as the
// last-resort estimate when neither cache nor live data exists.  Values are
// IDR.
var fallbackPrices = map[string]map[string]int64{
	"structural":    {"m2": 500_000, "m3": 2_000_000, "kg": 15_000, "pcs": 50_000},
	"finishing":     {"m2": 300_000, "pcs": 25_000, "liter": 100_000, "kg": 50_000},
	"electrical":    {"pcs": 75_000, "meter": 15_000, "set": 200_000},
	"plumbing":      {"pcs": 100_000, "meter": 25_000, "set": 250_000},
	"hvac":          {"pcs": 500_000, "set": 2_000_000},
	"landscaping":   {"m2": 150_000, "pcs": 50_000, "kg": 20_000},
	"fixtures":      {"pcs": 150_000, "set": 500_000},
	"miscellaneous": {"pcs": 50_000, "kg": 25_000, "liter": 75_000},
}

// FallbackUnitPrice returns the heuristic unit price for a category and
// unit.  Unknown categories fall back to miscellaneous; unknown units fall
// back to the category's pcs price.
func FallbackUnitPrice(category, unit string) int64 {
	table, ok := fallbackPrices[strings.ToLower(category)]
	if !ok {
		table = fallbackPrices["miscellaneous"]
	}
	if price, ok := table[strings.ToLower(unit)]; ok {
		return price
	}
	if price, ok := table["pcs"]; ok {
		return price
	}
	return 50_000
}

// EstimatedResult builds the heuristic fallback result for a request,
// tagged estimated with the fixed low confidence.  An empty category falls
// back to the request's own category hint.
func EstimatedResult(req LookupRequest, category string) LookupResult {
	req.Normalize()
	if category == "" {
		category = req.Category
	}
	unitPrice := FallbackUnitPrice(category, req.Unit)
	return LookupResult{
		Name:          req.Name,
		CanonicalName: Canonicalize(req.Name),
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		UnitPrice:     unitPrice,
		TotalPrice:    int64(float64(unitPrice) * req.Quantity),
		Source:        SourceEstimated,
		Confidence:    estimateConfidence,
	}
}
