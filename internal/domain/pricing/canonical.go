// Package pricing provides the core domain model for material price
// resolution: canonical material names, price records with freshness
// semantics, and the ordered matching strategies that resolve a requested
// name against the catalog.
package pricing

import (
	"sort"
	"strings"
)

// unitTokens is the set of unit abbreviations that get glued to a preceding
// bare number during canonicalization ("50 kg" → "50kg").  Mixed Indonesian
// and metric units, matching how materials are listed on the marketplaces we
// scrape.
var unitTokens = map[string]bool{
	"kg": true, "g": true, "mg": true,
	"l": true, "ml": true,
	"m": true, "cm": true, "mm": true, "m2": true, "m3": true,
	"pcs": true, "unit": true, "set": true, "roll": true,
	"lembar": true, "batang": true, "sak": true, "dus": true, "box": true,
}

// Canonicalize normalizes a free-text material name into the comparable key
// used for exact-tier cache lookups.  It lowercases, strips everything except
// letters, digits and spaces, glues bare numbers to a following unit token,
// sorts the tokens lexicographically, and joins with single spaces.
//
// Two names describing the same product in different word order or spacing
// canonicalize identically:
//
//	Canonicalize("Semen Portland 50 kg") == Canonicalize("Portland Semen 50kg") == "50kg portland semen"
//
// The function is total and idempotent; it never fails.
func Canonicalize(raw string) string {
	if raw == "" {
		return ""
	}

	lowered := strings.ToLower(raw)

	var sb strings.Builder
	sb.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}

	tokens := strings.Fields(sb.String())
	tokens = glueUnits(tokens)
	sort.Strings(tokens)
	// Sorting can move a bare number next to a unit token it was not
	// adjacent to in the input.  Re-glue and re-sort until the token list
	// is stable so the key does not depend on the original word order.
	for {
		glued := glueUnits(tokens)
		if len(glued) == len(tokens) {
			break
		}
		tokens = glued
		sort.Strings(tokens)
	}
	return strings.Join(tokens, " ")
}

// glueUnits merges a bare-number token with an immediately following unit
// token: ["50", "kg"] → ["50kg"].
func glueUnits(tokens []string) []string {
	out := tokens[:0]
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if isNumber(tok) && i+1 < len(tokens) && unitTokens[tokens[i+1]] {
			out = append(out, tok+tokens[i+1])
			i++
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CanonicalTokens returns the whitespace-separated tokens of a canonical
// name.  Used by the fuzzy tier's token-overlap prefilter.
func CanonicalTokens(canonical string) []string {
	return strings.Fields(canonical)
}

// TokenOverlap returns the number of tokens the two canonical names share.
func TokenOverlap(a, b string) int {
	set := make(map[string]bool)
	for _, t := range CanonicalTokens(a) {
		set[t] = true
	}
	n := 0
	for _, t := range CanonicalTokens(b) {
		if set[t] {
			n++
			set[t] = false
		}
	}
	return n
}
