package marketplace

import (
	"sort"

	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/pkg/scoring"
)

// Quality score weights.  Rating dominates, sales volume second,
// price proximity to the field median keeps outliers from winning.
const (
	weightRating    = 0.40
	weightSales     = 0.35
	weightProximity = 0.25

	// log10 scale for sales volume: 10k units sold saturates the signal.
	salesLogScale = 4

	maxRating = 5

	defaultMinQualityScore = 0.3
	defaultTopListings     = 3
)

type scoredListing struct {
	Listing
	score float64
}

// qualityScore rates one listing in [0,1] against the reference price of
// its search result set.
func qualityScore(l Listing, referencePrice float64) float64 {
	return scoring.Composite([]scoring.Component{
		{Name: "rating", Weight: weightRating, Value: scoring.Ratio(l.Rating, maxRating)},
		{Name: "sales", Weight: weightSales, Value: scoring.LogRatio(float64(l.Sold), salesLogScale)},
		{Name: "price_proximity", Weight: weightProximity, Value: scoring.Proximity(float64(l.PriceIDR), referencePrice)},
	})
}

// filterListings applies the availability filter, scores what remains, and
// keeps the best few.  Listings below the minimum score are dropped only
// when better alternatives exist; a result set where everything scores low
// is kept whole rather than discarded.  Preferred-region and seller-tier
// ordering are tie-breaks only, never exclusion filters.
func filterListings(listings []Listing, minScore float64, top int, preferredRegion string) []Listing {
	if minScore <= 0 {
		minScore = defaultMinQualityScore
	}
	if top <= 0 {
		top = defaultTopListings
	}

	available := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Available() {
			available = append(available, l)
		}
	}
	if len(available) == 0 {
		return nil
	}

	reference := float64(medianPrice(available))
	scored := make([]scoredListing, 0, len(available))
	for _, l := range available {
		scored = append(scored, scoredListing{Listing: l, score: qualityScore(l, reference)})
	}

	passing := scored[:0:0]
	for _, s := range scored {
		if s.score >= minScore {
			passing = append(passing, s)
		}
	}
	if len(passing) == 0 {
		passing = scored
	}

	sort.SliceStable(passing, func(i, j int) bool {
		if passing[i].score != passing[j].score {
			return passing[i].score > passing[j].score
		}
		if preferredRegion != "" {
			iPref := passing[i].SellerRegion == preferredRegion
			jPref := passing[j].SellerRegion == preferredRegion
			if iPref != jPref {
				return iPref
			}
		}
		return domainPricing.SellerTierRank(passing[i].SellerTier) > domainPricing.SellerTierRank(passing[j].SellerTier)
	})

	if len(passing) > top {
		passing = passing[:top]
	}
	kept := make([]Listing, len(passing))
	for i, s := range passing {
		kept[i] = s.Listing
	}
	return kept
}

// medianPrice returns the median listing price.  Even-length sets take the
// lower middle so the result is always an observed price.
func medianPrice(listings []Listing) int64 {
	if len(listings) == 0 {
		return 0
	}
	prices := make([]int64, len(listings))
	for i, l := range listings {
		prices[i] = l.PriceIDR
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	return prices[(len(prices)-1)/2]
}
