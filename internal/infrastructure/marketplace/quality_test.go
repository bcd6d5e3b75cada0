package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodListing(name string, price int64) Listing {
	return Listing{
		Name:     name,
		PriceIDR: price,
		Rating:   4.8,
		Sold:     2500,
		Status:   "active",
		Stock:    10,
	}
}

func TestFilterListingsDropsUnavailable(t *testing.T) {
	listings := []Listing{
		goodListing("semen 50kg", 72_000),
		{Name: "semen 50kg promo", PriceIDR: 65_000, Rating: 4.9, Sold: 9000, Status: "sold_out"},
		{Name: "semen gratis", PriceIDR: 0, Rating: 5, Sold: 100, Status: "active"},
	}

	kept := filterListings(listings, 0.3, 3, "")
	require.Len(t, kept, 1)
	assert.Equal(t, "semen 50kg", kept[0].Name)
}

func TestFilterListingsDropsLowQualityWhenBetterExist(t *testing.T) {
	listings := []Listing{
		goodListing("granit 60x60 glossy", 250_000),
		goodListing("granit 60x60 kw1", 245_000),
		// Unrated, never sold, priced far from the field.
		{Name: "granit murah", PriceIDR: 950_000, Rating: 0, Sold: 0, Status: "active", Stock: 1},
	}

	kept := filterListings(listings, 0.3, 3, "")
	require.Len(t, kept, 2)
	for _, l := range kept {
		assert.NotEqual(t, "granit murah", l.Name)
	}
}

func TestFilterListingsKeepsAllWhenNonePass(t *testing.T) {
	// Low ratings across the board: the threshold must not empty the set.
	listings := []Listing{
		{Name: "a", PriceIDR: 10_000, Rating: 0.5, Sold: 1, Status: "active", Stock: 5},
		{Name: "b", PriceIDR: 11_000, Rating: 0.4, Sold: 2, Status: "active", Stock: 5},
	}

	kept := filterListings(listings, 0.9, 3, "")
	assert.Len(t, kept, 2)
}

func TestFilterListingsCapsAtTop(t *testing.T) {
	listings := []Listing{
		goodListing("a", 100_000),
		goodListing("b", 101_000),
		goodListing("c", 99_000),
		goodListing("d", 100_500),
		goodListing("e", 100_200),
	}

	kept := filterListings(listings, 0.3, 3, "")
	assert.Len(t, kept, 3)
}

func TestFilterListingsPreferredRegionBreaksTies(t *testing.T) {
	a := goodListing("jakarta seller", 100_000)
	a.SellerRegion = "jakarta"
	b := goodListing("surabaya seller", 100_000)
	b.SellerRegion = "surabaya"

	kept := filterListings([]Listing{b, a}, 0.3, 3, "jakarta")
	require.Len(t, kept, 2)
	assert.Equal(t, "jakarta seller", kept[0].Name)

	// Never an exclusion filter: the other region survives.
	assert.Equal(t, "surabaya seller", kept[1].Name)
}

func TestFilterListingsEmptyInput(t *testing.T) {
	assert.Nil(t, filterListings(nil, 0.3, 3, ""))
}

func TestMedianPrice(t *testing.T) {
	listings := []Listing{
		{PriceIDR: 300}, {PriceIDR: 100}, {PriceIDR: 200},
	}
	assert.Equal(t, int64(200), medianPrice(listings))

	// Even count takes the lower middle: always an observed price.
	listings = append(listings, Listing{PriceIDR: 400})
	assert.Equal(t, int64(200), medianPrice(listings))

	assert.Equal(t, int64(0), medianPrice(nil))
}

func TestQualityScoreOrdering(t *testing.T) {
	reference := 100_000.0
	strong := qualityScore(Listing{PriceIDR: 100_000, Rating: 4.9, Sold: 5000}, reference)
	weak := qualityScore(Listing{PriceIDR: 400_000, Rating: 2.0, Sold: 3}, reference)
	assert.Greater(t, strong, weak)
	assert.LessOrEqual(t, strong, 1.0)
	assert.GreaterOrEqual(t, weak, 0.0)
}

func TestListingAvailable(t *testing.T) {
	assert.True(t, (&Listing{PriceIDR: 1000, Status: "active", Stock: 1}).Available())
	assert.True(t, (&Listing{PriceIDR: 1000}).Available(), "unreported stock and status count as available")
	assert.False(t, (&Listing{PriceIDR: 1000, Status: "sold_out"}).Available())
	assert.False(t, (&Listing{PriceIDR: 0, Status: "active"}).Available())
	assert.False(t, (&Listing{PriceIDR: 1000, Stock: -1}).Available())
}
