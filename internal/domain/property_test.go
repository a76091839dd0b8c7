package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, axis := range Axes {
		sum += axis.Weight()
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, Axes, 7)
}

func TestSimilarity(t *testing.T) {
	t.Run("значение обрезается до [0,1]", func(t *testing.T) {
		assert.Equal(t, 1.0, Computed(1.7).Value())
		assert.Equal(t, 0.0, Computed(-0.2).Value())
		assert.Equal(t, 0.0, Computed(math.NaN()).Value())
	})

	t.Run("нейтральные значения различимы", func(t *testing.T) {
		unset := Unset()
		failed := Failed(errors.New("boom"))

		assert.Equal(t, NeutralScore, unset.Value())
		assert.Equal(t, NeutralScore, failed.Value())
		assert.True(t, unset.IsNeutral())
		assert.NotEqual(t, unset.Kind, failed.Kind)
		assert.Error(t, failed.Err)
		assert.Equal(t, "neutral_failed", failed.Kind.String())
	})
}

func TestTarget(t *testing.T) {
	criteria := CriteriaTarget(RequirementSet{Layout: "2LDK"})
	reqs, ok := criteria.Criteria()
	require.True(t, ok)
	assert.Equal(t, "2LDK", reqs.Layout)
	_, ok = criteria.Reference()
	assert.False(t, ok)
	assert.Equal(t, ModeCriteria, criteria.Mode())

	reference := ReferenceTarget(Property{Address: "東京都港区"})
	ref, ok := reference.Reference()
	require.True(t, ok)
	assert.Equal(t, "東京都港区", ref.Address)
	assert.Equal(t, ModeReference, reference.Mode())
}

func TestRequirementSet_Merge(t *testing.T) {
	base := RequirementSet{
		Prefecture: "東京都",
		PriceMax:   Ptr(5000.0),
		Features:   []string{"ペット可"},
	}
	update := RequirementSet{
		PriceMax: Ptr(4000.0),
		Layout:   "2LDK",
		Features: []string{"南向き"},
	}

	merged := base.Merge(update)

	assert.Equal(t, "東京都", merged.Prefecture)
	assert.Equal(t, 4000.0, *merged.PriceMax)
	assert.Equal(t, "2LDK", merged.Layout)
	assert.Equal(t, []string{"ペット可", "南向き"}, merged.Features)
	assert.Equal(t, []string{"ペット可"}, base.Features)
	assert.Equal(t, 4, merged.FieldCount())
	assert.True(t, merged.HasLocation())
	assert.True(t, RequirementSet{}.IsEmpty())
}

func TestProperty_HasKnownWalkTime(t *testing.T) {
	assert.True(t, Property{WalkTime: 7}.HasKnownWalkTime())
	assert.False(t, Property{WalkTime: WalkTimeUnknown}.HasKnownWalkTime())
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 3, NormalizeLimit(0, 0, 0))
	assert.Equal(t, 3, NormalizeLimit(-5, 0, 0))
	assert.Equal(t, 7, NormalizeLimit(7, 0, 0))
	assert.Equal(t, 20, NormalizeLimit(100, 0, 0))
	assert.Equal(t, 5, NormalizeLimit(0, 5, 10))
	assert.Equal(t, 10, NormalizeLimit(50, 5, 10))
}

func TestLocationCandidate(t *testing.T) {
	c := LocationCandidate{Prefecture: "神奈川県", City: "川崎市", Station: "川崎"}
	assert.Equal(t, "神奈川県 川崎市 川崎駅", c.DisplayName())
	assert.Equal(t, "神奈川県_川崎市_川崎", c.Key())
}
