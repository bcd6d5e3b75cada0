// Package boq models contractor quote (Bill of Quantities) line items:
// classification of Indonesian construction descriptions into material,
// labor, and equipment, detection of owner-supply and use-existing markers,
// and normalization of descriptions into marketplace search queries.
package boq

import (
	"regexp"
	"strings"
)

// ItemType classifies what a quote line charges for.
type ItemType string

const (
	ItemMaterial  ItemType = "material"
	ItemLabor     ItemType = "labor"
	ItemEquipment ItemType = "equipment"
	ItemUnknown   ItemType = "unknown"
)

// laborActionPrefixes name the work of doing something to a material, so
// they override material indicators: "bongkar pintu" is labor, not a door.
var laborActionPrefixes = []string{
	"bongkar",
	"instalasi",
	"pasang ",
	"pek.",
	"pek ",
	"perbaikan",
	"pengecatan",
	"pembuangan",
	"cleaning",
}

// equipmentTerms are standalone installed units.  A description that also
// mentions instalasi is the labor of installing them instead.
var equipmentTerms = []string{
	"pompa",
	"ac unit",
	"water heater",
	"filter kolam",
}

var materialIndicators = []string{
	"granit", "keramik", "batako", "batu ", "batu alam",
	"pipa", "pvc", "kabel", "nym",
	"pintu", "jendela", "kusen", "plafond", "gypsum",
	"waterproof", "lampu", "downlight", "led",
	"pompa", "filter", "saklar", "stop kontak", "gpo",
	"closet", "shower", "wastafel", "kran", "floor drain",
}

var laborIndicators = []string{
	"bongkar", "instalasi", "pek.", "pek ",
	"mobilisasi", "demobilisasi", "pembuangan",
	"cleaning", "perbaikan", "refinishing",
	"plaster", "aci ", "cat ",
}

// Classify assigns an item type to a quote line description.  Labor-action
// prefixes win over material indicators, equipment terms win unless the line
// is their installation, then material indicators, then the remaining labor
// vocabulary.
func Classify(description string) ItemType {
	desc := strings.ToLower(description)

	head := desc
	if len(head) > 30 {
		head = head[:30]
	}
	for _, prefix := range laborActionPrefixes {
		if strings.HasPrefix(desc, prefix) || strings.Contains(head, " "+prefix) {
			return ItemLabor
		}
	}

	for _, term := range equipmentTerms {
		if strings.Contains(desc, term) && !strings.Contains(desc, "instalasi") {
			return ItemEquipment
		}
	}

	for _, indicator := range materialIndicators {
		if strings.Contains(desc, indicator) {
			return ItemMaterial
		}
	}

	for _, indicator := range laborIndicators {
		if strings.Contains(desc, indicator) {
			return ItemLabor
		}
	}

	return ItemUnknown
}

var (
	ownerSupplyRe = regexp.MustCompile(`(?i)\(?\s*(?:unit\s*)?supl?y\s*by\s*owner\s*\)?`)
	existingRe    = regexp.MustCompile(`(?i)use\s*existing|\(\s*existing\s*\)`)
)

// IsOwnerSupply reports whether the line is marked as supplied by the owner
// (the contractor charges only for the work).
func IsOwnerSupply(description string) bool {
	return ownerSupplyRe.MatchString(description)
}

// IsExisting reports whether the line reuses an existing fixture.
func IsExisting(description string) bool {
	return existingRe.MatchString(description)
}

var (
	workPrefixRe = regexp.MustCompile(`(?i)^(pas\.\s*|pas\s+|instalasi\s+|pek\.\s*|pek\s+)`)
	supplyNoteRe = regexp.MustCompile(`(?i)\([^)]*supl?y\s*by\s*owner[^)]*\)|supl?y\s*by\s*owner`)
	existNoteRe  = regexp.MustCompile(`(?i)\([^)]*existing[^)]*\)|\(?use\s*existing\)?`)
	roomSpecRe   = regexp.MustCompile(`(?i)master\s*bed\s*room|master\s*bathroom|living\s*dining\s*kitchen|lantai\s*\d+|area\s+\w+`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

// SearchQuery normalizes a quote line description into a marketplace search
// query: strips work prefixes (pas., instalasi, pek.), owner-supply and
// use-existing notes, and room specifiers.
//
//	"Pas. Granit Lantai Master Bedroom (Granit Suply By Owner)" -> "granit lantai"
func SearchQuery(description string) string {
	q := strings.ToLower(description)
	q = workPrefixRe.ReplaceAllString(q, "")
	q = supplyNoteRe.ReplaceAllString(q, "")
	q = existNoteRe.ReplaceAllString(q, "")
	q = roomSpecRe.ReplaceAllString(q, "")
	q = strings.NewReplacer("(", " ", ")", " ").Replace(q)
	return strings.TrimSpace(spacesRe.ReplaceAllString(q, " "))
}

// MatchConfidence scores how well a marketplace listing name matches the
// search query as Jaccard word overlap in [0,1].
func MatchConfidence(query, listingName string) float64 {
	qw := wordSet(query)
	lw := wordSet(listingName)
	if len(qw) == 0 || len(lw) == 0 {
		return 0
	}
	intersection := 0
	for w := range qw {
		if lw[w] {
			intersection++
		}
	}
	union := len(qw) + len(lw) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = true
	}
	return out
}
