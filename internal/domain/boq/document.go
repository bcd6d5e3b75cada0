package boq

import (
	"math"
	"strings"
)

// Line is one extracted quote line, optionally enriched with market pricing
// when it is a material.
type Line struct {
	Section              string   `json:"section,omitempty"`
	ItemNumber           string   `json:"item_number,omitempty"`
	Description          string   `json:"description"`
	Unit                 string   `json:"unit,omitempty"`
	Quantity             float64  `json:"quantity,omitempty"`
	ContractorUnitPrice  int64    `json:"contractor_unit_price,omitempty"`
	ContractorTotal      int64    `json:"contractor_total,omitempty"`
	Type                 ItemType `json:"item_type"`
	OwnerSupply          bool     `json:"is_owner_supply"`
	Existing             bool     `json:"is_existing"`
	ExtractionConfidence float64  `json:"extraction_confidence,omitempty"`

	SearchQuery            string   `json:"search_query,omitempty"`
	MarketUnitPrice        int64    `json:"market_unit_price,omitempty"`
	MarketTotal            int64    `json:"market_total,omitempty"`
	MarketSource           string   `json:"market_source,omitempty"`
	MarketplaceURL         string   `json:"marketplace_url,omitempty"`
	MatchConfidence        float64  `json:"match_confidence,omitempty"`
	PriceDifference        *int64   `json:"price_difference,omitempty"`
	PriceDifferencePercent *float64 `json:"price_difference_percent,omitempty"`
}

// Annotate fills classification and markers from the description for lines
// the extractor left unclassified.
func (l *Line) Annotate() {
	if l.Type == "" || l.Type == ItemUnknown {
		l.Type = Classify(l.Description)
	}
	l.OwnerSupply = l.OwnerSupply || IsOwnerSupply(l.Description)
	l.Existing = l.Existing || IsExisting(l.Description)
}

// ApplyMarketPrice records a resolved market unit price on the line and
// derives the total and the contractor-vs-market difference.  A zero market
// price clears nothing and records nothing.
func (l *Line) ApplyMarketPrice(unitPrice int64, source, url string, matchConfidence float64) {
	if unitPrice <= 0 {
		return
	}
	l.MarketUnitPrice = unitPrice
	l.MarketSource = source
	l.MarketplaceURL = url
	l.MatchConfidence = matchConfidence
	if l.Quantity > 0 {
		l.MarketTotal = int64(float64(unitPrice) * l.Quantity)
	}
	if l.ContractorUnitPrice > 0 {
		diff := l.ContractorUnitPrice - unitPrice
		pct := math.Round(float64(diff)/float64(unitPrice)*100*100) / 100
		l.PriceDifference = &diff
		l.PriceDifferencePercent = &pct
	}
}

// Priceable reports whether the line should get a market price lookup: a
// material the contractor actually supplies, with a usable search query.
func (l *Line) Priceable() bool {
	if l.Type != ItemMaterial || l.OwnerSupply || l.Existing {
		return false
	}
	return len(strings.TrimSpace(SearchQuery(l.Description))) >= 3
}

// Document is one extracted quote document.
type Document struct {
	ProjectName     string   `json:"project_name,omitempty"`
	ContractorName  string   `json:"contractor_name,omitempty"`
	ProjectLocation string   `json:"project_location,omitempty"`
	Lines           []Line   `json:"lines"`
	Warnings        []string `json:"extraction_warnings,omitempty"`
}

// Summary aggregates a priced document.
type Summary struct {
	TotalLines       int   `json:"total_lines"`
	MaterialsCount   int   `json:"materials_count"`
	LaborCount       int   `json:"labor_count"`
	EquipmentCount   int   `json:"equipment_count"`
	OwnerSupplyCount int   `json:"owner_supply_count"`
	ContractorTotal  int64 `json:"contractor_total"`
	MarketEstimate   int64 `json:"market_estimate"`
	PotentialSavings int64 `json:"potential_savings"`
}

// Summarize computes the document summary.  MarketEstimate covers only the
// material lines that received a market price; savings never go negative and
// are only claimed when a market estimate exists.
func Summarize(lines []Line) Summary {
	var s Summary
	s.TotalLines = len(lines)
	for _, l := range lines {
		switch l.Type {
		case ItemMaterial:
			s.MaterialsCount++
		case ItemLabor:
			s.LaborCount++
		case ItemEquipment:
			s.EquipmentCount++
		}
		if l.OwnerSupply {
			s.OwnerSupplyCount++
		}
		s.ContractorTotal += l.ContractorTotal
		if l.Type == ItemMaterial && l.MarketTotal > 0 {
			s.MarketEstimate += l.MarketTotal
		}
	}
	if s.MarketEstimate > 0 && s.ContractorTotal > s.MarketEstimate {
		s.PotentialSavings = s.ContractorTotal - s.MarketEstimate
	}
	return s
}
