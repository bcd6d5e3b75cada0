// Package trust models worker trustworthiness: the verification signals a
// worker accumulates, the weighted 0-100 trust score derived from them, and
// the masked preview shown before a profile is unlocked.
package trust

import (
	"math"
	"strings"
	"time"

	"github.com/bangunhq/estimator/pkg/scoring"
)

// Level buckets a trust score for display.
type Level string

const (
	LevelVerified Level = "verified" // >= 85
	LevelHigh     Level = "high"     // >= 70
	LevelMedium   Level = "medium"   // >= 50
	LevelLow      Level = "low"
)

// Normalization caps.  Signals past the cap contribute the full sub-score
// but no more, so one prolific worker cannot drown out the verifications.
const (
	maxProjects        = 50
	maxRating          = 5.0
	maxExperienceYears = 20
)

// Category weights.  They sum to 100, so the composite is directly the
// 0-100 trust score.
const (
	weightProjects   = 20
	weightRating     = 30
	weightLicense    = 15
	weightInsurance  = 15
	weightBackground = 10
	weightExperience = 10
)

// Signals are the raw inputs to a trust score, as stored on the worker row.
type Signals struct {
	ProjectCount      int     `json:"project_count"`
	AvgRating         float64 `json:"avg_rating"`
	LicenseVerified   bool    `json:"license_verified"`
	InsuranceVerified bool    `json:"insurance_verified"`
	BackgroundCheck   bool    `json:"background_check"`
	YearsExperience   int     `json:"years_experience"`
}

// Score is the computed trust score with its per-category breakdown, rounded
// to two decimals so stored and displayed values always agree.
type Score struct {
	Overall    float64            `json:"overall_score"`
	Level      Level              `json:"level"`
	Breakdown  map[string]float64 `json:"breakdown"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Compute derives the weighted trust score from the raw signals.
func Compute(s Signals) Score {
	components := []scoring.Component{
		{Name: "projects", Weight: weightProjects, Value: scoring.Ratio(float64(s.ProjectCount), maxProjects)},
		{Name: "rating", Weight: weightRating, Value: scoring.Ratio(s.AvgRating, maxRating)},
		{Name: "license", Weight: weightLicense, Value: scoring.Bool(s.LicenseVerified)},
		{Name: "insurance", Weight: weightInsurance, Value: scoring.Bool(s.InsuranceVerified)},
		{Name: "background", Weight: weightBackground, Value: scoring.Bool(s.BackgroundCheck)},
		{Name: "experience", Weight: weightExperience, Value: scoring.Ratio(float64(s.YearsExperience), maxExperienceYears)},
	}

	breakdown := make(map[string]float64, len(components))
	for _, c := range components {
		breakdown[c.Name] = round2(c.Weight * scoring.Clamp01(c.Value))
	}
	overall := round2(scoring.Composite(components))

	return Score{
		Overall:    overall,
		Level:      LevelFor(overall),
		Breakdown:  breakdown,
		ComputedAt: time.Now().UTC(),
	}
}

// LevelFor buckets a 0-100 score.
func LevelFor(score float64) Level {
	switch {
	case score >= 85:
		return LevelVerified
	case score >= 70:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	default:
		return LevelLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MaskName obscures a worker name for locked previews: the first name stays,
// the last name is reduced to its initial.
//
//	"Ahmad Suryanto" -> "Ahmad S****"
//	"Wayan"          -> "W****"
func MaskName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return firstRune(parts[0]) + "****"
	}
	return parts[0] + " " + firstRune(parts[len(parts)-1]) + "****"
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
