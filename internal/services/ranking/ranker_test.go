package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/handlers/slogdiscard"
	"sumai_assistant/internal/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockScorer — мок скорера (с testify).
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(candidate domain.Property, target domain.Target) (domain.ScoredProperty, error) {
	args := m.Called(candidate, target)
	return args.Get(0).(domain.ScoredProperty), args.Error(1)
}

type panickingScorer struct {
	inner CandidateScorer
	url   string
}

func (p panickingScorer) Score(candidate domain.Property, target domain.Target) (domain.ScoredProperty, error) {
	if candidate.URL == p.url {
		panic("unexpected record")
	}
	return p.inner.Score(candidate, target)
}

func newRanker(scorer CandidateScorer) *Ranker {
	return New(slogdiscard.NewDiscardLogger(), scorer)
}

func listing(i int, price float64) domain.Property {
	return domain.Property{
		Address:    fmt.Sprintf("東京都港区芝%d", i),
		Prefecture: "東京都",
		City:       "港区",
		Price:      domain.Ptr(price),
		Layout:     "2LDK",
		WalkTime:   domain.WalkTimeUnknown,
		URL:        fmt.Sprintf("https://example.jp/buy/%d", i),
	}
}

func TestRank_SortedAndTruncated(t *testing.T) {
	r := newRanker(scoring.NewScorer(slogdiscard.NewDiscardLogger()))
	target := domain.CriteriaTarget(domain.RequirementSet{PriceMax: domain.Ptr(5000.0)})

	candidates := []domain.Property{
		listing(1, 9000),
		listing(2, 4000),
		listing(3, 6000),
		listing(4, 5500),
	}

	result := r.Rank(context.Background(), candidates, target, 3)

	require.Len(t, result, 3)
	assert.Equal(t, "https://example.jp/buy/2", result[0].Property.URL)
	assert.Equal(t, "https://example.jp/buy/4", result[1].Property.URL)
	assert.Equal(t, "https://example.jp/buy/3", result[2].Property.URL)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].TotalScore, result[i].TotalScore)
	}
}

func TestRank_StableForEqualScores(t *testing.T) {
	r := newRanker(scoring.NewScorer(slogdiscard.NewDiscardLogger()))
	target := domain.CriteriaTarget(domain.RequirementSet{})

	candidates := make([]domain.Property, 0, 6)
	for i := 0; i < 6; i++ {
		candidates = append(candidates, listing(i, 3000))
	}

	result := r.Rank(context.Background(), candidates, target, 10)

	require.Len(t, result, 6)
	for i, scored := range result {
		assert.Equal(t, candidates[i].URL, scored.Property.URL)
	}
}

func TestRank_Limits(t *testing.T) {
	r := newRanker(scoring.NewScorer(slogdiscard.NewDiscardLogger()))
	target := domain.CriteriaTarget(domain.RequirementSet{})
	candidates := []domain.Property{listing(1, 3000), listing(2, 3000)}

	assert.Empty(t, r.Rank(context.Background(), candidates, target, 0))
	assert.Empty(t, r.Rank(context.Background(), candidates, target, -1))
	assert.Len(t, r.Rank(context.Background(), candidates, target, 1), 1)
	assert.Len(t, r.Rank(context.Background(), candidates, target, 5), 2)
	assert.Empty(t, r.Rank(context.Background(), nil, target, 5))
}

func TestRank_SkipsFailedCandidates(t *testing.T) {
	target := domain.CriteriaTarget(domain.RequirementSet{})

	t.Run("ошибка скорера", func(t *testing.T) {
		scorer := new(MockScorer)
		good := listing(1, 3000)
		bad := listing(2, 3000)

		scorer.On("Score", good, target).Return(domain.ScoredProperty{Property: good, TotalScore: 0.5}, nil)
		scorer.On("Score", bad, target).Return(domain.ScoredProperty{}, scoring.ErrInvalidCandidate)

		result := newRanker(scorer).Rank(context.Background(), []domain.Property{good, bad}, target, 5)

		require.Len(t, result, 1)
		assert.Equal(t, good.URL, result[0].Property.URL)
		scorer.AssertExpectations(t)
	})

	t.Run("паника скорера", func(t *testing.T) {
		scorer := panickingScorer{
			inner: scoring.NewScorer(slogdiscard.NewDiscardLogger()),
			url:   "https://example.jp/buy/2",
		}
		candidates := []domain.Property{listing(1, 3000), listing(2, 3000), listing(3, 3000)}

		result := newRanker(scorer).Rank(context.Background(), candidates, target, 5)

		require.Len(t, result, 2)
		assert.Equal(t, "https://example.jp/buy/1", result[0].Property.URL)
		assert.Equal(t, "https://example.jp/buy/3", result[1].Property.URL)
	})

	t.Run("объект без адреса и URL", func(t *testing.T) {
		candidates := []domain.Property{{Layout: "1K"}, listing(1, 3000)}

		result := newRanker(scoring.NewScorer(slogdiscard.NewDiscardLogger())).
			Rank(context.Background(), candidates, target, 5)

		require.Len(t, result, 1)
		assert.Equal(t, "https://example.jp/buy/1", result[0].Property.URL)
	})

	t.Run("все упали", func(t *testing.T) {
		scorer := new(MockScorer)
		scorer.On("Score", mock.Anything, target).Return(domain.ScoredProperty{}, errors.New("boom"))

		result := newRanker(scorer).Rank(context.Background(), []domain.Property{listing(1, 1)}, target, 5)
		assert.Empty(t, result)
	})
}

func TestRank_AttachesReasons(t *testing.T) {
	r := newRanker(scoring.NewScorer(slogdiscard.NewDiscardLogger()))

	criteria := domain.CriteriaTarget(domain.RequirementSet{
		Prefecture: "東京都",
		City:       "港区",
		PriceMax:   domain.Ptr(5000.0),
	})
	result := r.Rank(context.Background(), []domain.Property{listing(1, 3000)}, criteria, 1)
	require.Len(t, result, 1)
	assert.Equal(t, "希望地域にマッチ、予算内で好条件", result[0].Explanation)
	assert.Equal(t, []domain.Axis{domain.AxisLocation, domain.AxisPrice}, result[0].MatchedAxes)

	ref := listing(9, 3000)
	result = r.Rank(context.Background(), []domain.Property{listing(1, 3000)}, domain.ReferenceTarget(ref), 1)
	require.Len(t, result, 1)
	assert.Equal(t, "希望地域にマッチ、予算内で好条件、希望の間取り、アップロードされた物件と類似", result[0].Explanation)
}
