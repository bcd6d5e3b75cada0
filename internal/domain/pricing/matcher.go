package pricing

import (
	"context"
	"time"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Tier identifies which matching strategy produced a hit.
type Tier string

const (
	TierExact Tier = "exact"
	TierFuzzy Tier = "fuzzy"
)

// Match is a successful catalog hit with its confidence and producing tier.
type Match struct {
	Record     *PriceRecord
	Confidence float64
	Tier       Tier
}

// Strategy is one matching tier.  Match returns (nil, nil) on a clean miss;
// errors are reserved for infrastructure failures (store unreachable), which
// abort the whole match rather than falling through to the next tier.
type Strategy interface {
	Name() string
	Match(ctx context.Context, canonical string) (*Match, error)
}

// Matcher tries an ordered list of strategies and returns the first hit.
// New tiers slot in without touching callers.
type Matcher struct {
	strategies []Strategy
}

// NewMatcher builds a matcher over the given strategies, tried in order.
func NewMatcher(strategies ...Strategy) *Matcher {
	return &Matcher{strategies: strategies}
}

// Match canonicalizes raw once and runs the strategies in order.  A miss on
// every tier returns (nil, nil), signaling the caller to resolve live.
func (m *Matcher) Match(ctx context.Context, raw string) (*Match, error) {
	canonical := Canonicalize(raw)
	if canonical == "" {
		return nil, errors.Validation("material name canonicalizes to empty")
	}
	for _, s := range m.strategies {
		hit, err := s.Match(ctx, canonical)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUnknown, "matcher strategy "+s.Name()+" failed")
		}
		if hit != nil {
			return hit, nil
		}
	}
	return nil, nil
}

// ExactStrategy looks the canonical name up directly in the repository.
// A fresh hit carries the configured base confidence; past the freshness
// window the confidence decays linearly to a floor at twice the window, so
// stale records surface as weak hits rather than misses.
type ExactStrategy struct {
	Repo            Repository
	BaseConfidence  float64
	FreshnessWindow time.Duration
	Now             func() time.Time
}

func (s *ExactStrategy) Name() string { return "exact" }

// exactStaleFloor is the confidence an exact hit bottoms out at when the
// record is twice the freshness window old or older.
const exactStaleFloor = 0.70

func exactConfidence(base float64, age, window time.Duration) float64 {
	if window <= 0 || age <= window {
		return base
	}
	if age >= 2*window {
		return exactStaleFloor
	}
	frac := float64(age-window) / float64(window)
	return base - frac*(base-exactStaleFloor)
}

func (s *ExactStrategy) Match(ctx context.Context, canonical string) (*Match, error) {
	record, err := s.Repo.GetByCanonicalName(ctx, canonical)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodePriceRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return &Match{
		Record:     record,
		Confidence: exactConfidence(s.BaseConfidence, record.Age(now()), s.FreshnessWindow),
		Tier:       TierExact,
	}, nil
}

// FuzzyStrategy scores token-overlap candidates with a subsequence-ratio
// similarity and accepts the best candidate above the threshold, with the
// similarity itself as confidence.  Equal scores tie-break on larger sample
// size, then newer last_updated.
type FuzzyStrategy struct {
	Repo          Repository
	Threshold     float64
	MaxCandidates int
}

func (s *FuzzyStrategy) Name() string { return "fuzzy" }

func (s *FuzzyStrategy) Match(ctx context.Context, canonical string) (*Match, error) {
	limit := s.MaxCandidates
	if limit <= 0 {
		limit = 50
	}
	candidates, err := s.Repo.FindByTokenOverlap(ctx, CanonicalTokens(canonical), limit)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodePriceRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var best *PriceRecord
	bestScore := s.Threshold
	for _, candidate := range candidates {
		score := Similarity(canonical, candidate.CanonicalName)
		switch {
		case score > bestScore:
			best, bestScore = candidate, score
		case score == bestScore && best != nil:
			if candidate.SampleSize > best.SampleSize ||
				(candidate.SampleSize == best.SampleSize && candidate.LastUpdated.After(best.LastUpdated)) {
				best = candidate
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return &Match{Record: best, Confidence: bestScore, Tier: TierFuzzy}, nil
}

// Similarity computes a longest-common-subsequence ratio between two
// strings: 2*LCS(a,b) / (len(a)+len(b)).  Identical strings score 1,
// disjoint strings 0.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Single-row LCS to keep memory at O(min side).
	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
