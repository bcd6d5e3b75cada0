package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/pkg/errors"
)

// fakeRepo is an in-memory Repository for matcher tests.
type fakeRepo struct {
	records map[string]*PriceRecord
	err     error
}

func newFakeRepo(records ...*PriceRecord) *fakeRepo {
	m := make(map[string]*PriceRecord, len(records))
	for _, r := range records {
		m[r.CanonicalName] = r
	}
	return &fakeRepo{records: m}
}

func (f *fakeRepo) GetByCanonicalName(_ context.Context, canonical string) (*PriceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[canonical]; ok {
		return r, nil
	}
	return nil, errors.New(errors.ErrCodePriceRecordNotFound, "no record")
}

func (f *fakeRepo) Upsert(_ context.Context, record *PriceRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records[record.CanonicalName] = record
	return nil
}

func (f *fakeRepo) ListStale(context.Context, time.Time, int) ([]*PriceRecord, error) {
	return nil, nil
}

func (f *fakeRepo) Search(context.Context, string, int) ([]*PriceRecord, error) {
	return nil, nil
}

func (f *fakeRepo) FindByTokenOverlap(_ context.Context, tokens []string, limit int) ([]*PriceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		want[t] = true
	}
	var out []*PriceRecord
	for _, r := range f.records {
		for _, t := range CanonicalTokens(r.CanonicalName) {
			if want[t] {
				out = append(out, r)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

const testWindow = 7 * 24 * time.Hour

func record(canonical string, sampleSize int, age time.Duration) *PriceRecord {
	return &PriceRecord{
		CanonicalName: canonical,
		DisplayName:   canonical,
		Unit:          "pcs",
		PriceAvg:      100_000,
		PriceMedian:   100_000,
		PriceLow:      90_000,
		PriceHigh:     110_000,
		SampleSize:    sampleSize,
		LastUpdated:   time.Now().Add(-age),
	}
}

func newTestMatcher(repo Repository) *Matcher {
	return NewMatcher(
		&ExactStrategy{Repo: repo, BaseConfidence: 0.95, FreshnessWindow: testWindow},
		&FuzzyStrategy{Repo: repo, Threshold: 0.75},
	)
}

func TestExactTierFresh(t *testing.T) {
	repo := newFakeRepo(record("50kg portland semen", 3, time.Hour))
	m := newTestMatcher(repo)

	hit, err := m.Match(context.Background(), "Semen Portland 50 kg")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, TierExact, hit.Tier)
	assert.Equal(t, 0.95, hit.Confidence)
	assert.Equal(t, "50kg portland semen", hit.Record.CanonicalName)
}

func TestExactTierWordOrderInsensitive(t *testing.T) {
	repo := newFakeRepo(record("50kg semen", 3, time.Hour))
	m := newTestMatcher(repo)

	first, err := m.Match(context.Background(), "Semen 50kg")
	require.NoError(t, err)
	second, err := m.Match(context.Background(), "50kg Semen")
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Record.CanonicalName, second.Record.CanonicalName)
}

func TestExactTierStaleConfidenceDecay(t *testing.T) {
	repo := newFakeRepo(record("50kg semen", 3, testWindow+testWindow/2))
	m := newTestMatcher(repo)

	hit, err := m.Match(context.Background(), "semen 50kg")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, TierExact, hit.Tier)
	assert.Less(t, hit.Confidence, 0.95)
	assert.GreaterOrEqual(t, hit.Confidence, 0.70)

	// Far past the window the confidence bottoms out at the floor.
	repo = newFakeRepo(record("50kg semen", 3, 10*testWindow))
	hit, err = newTestMatcher(repo).Match(context.Background(), "semen 50kg")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.InDelta(t, 0.70, hit.Confidence, 1e-9)
}

func TestFuzzyTier(t *testing.T) {
	repo := newFakeRepo(record("60 60 keramik", 5, time.Hour))
	m := newTestMatcher(repo)

	hit, err := m.Match(context.Background(), "keramik 60x60")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, TierFuzzy, hit.Tier)
	assert.Greater(t, hit.Confidence, 0.75)
	assert.Equal(t, "60 60 keramik", hit.Record.CanonicalName)
}

func TestFuzzyTierBelowThresholdMisses(t *testing.T) {
	repo := newFakeRepo(record("keramik kolam renang biru", 5, time.Hour))
	m := NewMatcher(&FuzzyStrategy{Repo: repo, Threshold: 0.75})

	hit, err := m.Match(context.Background(), "pompa air")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestFuzzyTieBreak(t *testing.T) {
	// Two keys that score identically against the query; the larger sample
	// size should win the tie.
	older := record("cat tembok 5l x", 2, 48*time.Hour)
	newer := record("cat tembok 5l y", 10, time.Hour)

	repo := newFakeRepo(older, newer)
	s := &FuzzyStrategy{Repo: repo, Threshold: 0.5}
	hit, err := s.Match(context.Background(), "cat tembok 5l z")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, newer.CanonicalName, hit.Record.CanonicalName, "larger sample size wins the tie")
}

func TestMissSignalsLiveResolution(t *testing.T) {
	m := newTestMatcher(newFakeRepo())
	hit, err := m.Match(context.Background(), "bahan yang belum pernah ada")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestInfrastructureErrorAborts(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New(errors.ErrCodeCacheError, "store down")
	m := newTestMatcher(repo)

	_, err := m.Match(context.Background(), "semen")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestMatchRejectsEmptyName(t *testing.T) {
	m := newTestMatcher(newFakeRepo())
	_, err := m.Match(context.Background(), "!!!")
	assert.True(t, errors.IsValidation(err))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 0.8, Similarity("abcd", "abcde"), 1e-2)
	// Symmetric.
	assert.Equal(t, Similarity("keramik 60", "keramik 60x60"), Similarity("keramik 60x60", "keramik 60"))
}
