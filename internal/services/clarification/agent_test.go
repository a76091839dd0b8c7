package clarification

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumai_assistant/internal/domain"
)

func newTestAgent() *Agent {
	return NewAgent(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestAgent_Analyze_EmptyRequirements(t *testing.T) {
	result := newTestAgent().Analyze(domain.RequirementSet{}, false)

	require.NotNil(t, result)
	assert.True(t, result.NeedsClarification)
	assert.False(t, result.ReadyForSearch)
	assert.Equal(t, []string{FieldLocation, FieldPrice, FieldLayout, FieldArea, FieldAge}, result.MissingFields)
	assert.Equal(t, PriorityHigh, result.Priority)
	assert.InDelta(t, 0.1, result.QualityScore, 1e-9)
	require.Len(t, result.Questions, MaxQuestions)

	// обязательные вопросы идут первыми
	assert.Equal(t, FieldLocation, result.Questions[0].Field)
	assert.Equal(t, FieldPrice, result.Questions[1].Field)
	assert.Equal(t, FieldLayout, result.Questions[2].Field)
	assert.Equal(t, ImportanceRecommended, result.Questions[3].Importance)
}

func TestAgent_Analyze_Complete(t *testing.T) {
	reqs := domain.RequirementSet{
		Prefecture: "東京都",
		PriceMax:   domain.Ptr(5000.0),
		Layout:     "2LDK",
		AreaMin:    domain.Ptr(60.0),
		AgeMax:     domain.Ptr(10),
	}

	result := newTestAgent().Analyze(reqs, true)

	assert.False(t, result.NeedsClarification)
	assert.True(t, result.ReadyForSearch)
	assert.Empty(t, result.MissingFields)
	assert.Empty(t, result.Questions)
	assert.Equal(t, PriorityLow, result.Priority)
	assert.Equal(t, 1.0, result.QualityScore)
}

func TestAgent_Analyze_ReadyButSparse(t *testing.T) {
	reqs := domain.RequirementSet{Prefecture: "東京都", PriceMax: domain.Ptr(5000.0)}

	result := newTestAgent().Analyze(reqs, true)

	assert.True(t, result.ReadyForSearch)
	assert.True(t, result.NeedsClarification)
	assert.Equal(t, []string{FieldLayout, FieldArea, FieldAge}, result.MissingFields)
	assert.Equal(t, PriorityMedium, result.Priority)
	assert.InDelta(t, 0.55, result.QualityScore, 1e-9)
	require.Len(t, result.Questions, 3)
	assert.Equal(t, FieldLayout, result.Questions[0].Field)
}

func TestReadyForSearch(t *testing.T) {
	located := domain.RequirementSet{City: "横浜市"}
	withPrice := domain.RequirementSet{City: "横浜市", PriceMax: domain.Ptr(4000.0)}

	assert.False(t, ReadyForSearch(located, true), "one field is not enough")
	assert.False(t, ReadyForSearch(withPrice, false), "location not confirmed")
	assert.True(t, ReadyForSearch(withPrice, true))
}

func TestResult_Summary(t *testing.T) {
	var empty *Result
	assert.Empty(t, empty.Summary())

	result := newTestAgent().Analyze(domain.RequirementSet{Prefecture: "大阪府"}, true)
	summary := result.Summary()
	assert.Contains(t, summary, "・ご予算はどのくらいをお考えですか？")
	assert.Contains(t, summary, "・ご希望の間取りを教えてください。")
}

func TestApplyAnswers(t *testing.T) {
	base := domain.RequirementSet{Prefecture: "東京都", Features: []string{"ペット可"}}

	got := ApplyAnswers(base, map[string]string{
		FieldPrice:  "3000〜5000万円",
		FieldLayout: "4LDK以上",
		FieldArea:   "60㎡以上",
		FieldAge:    "こだわらない",
		"unknown":   "value",
	})

	require.NotNil(t, got.PriceMin)
	require.NotNil(t, got.PriceMax)
	assert.Equal(t, 3000.0, *got.PriceMin)
	assert.Equal(t, 5000.0, *got.PriceMax)
	assert.Equal(t, "4LDK+", got.Layout)
	require.NotNil(t, got.AreaMin)
	assert.Equal(t, 60.0, *got.AreaMin)
	assert.Nil(t, got.AgeMax)
	assert.Equal(t, "東京都", got.Prefecture)
	assert.Equal(t, []string{"ペット可"}, got.Features)
}

func TestApplyAnswers_UnknownOptionIgnored(t *testing.T) {
	got := ApplyAnswers(domain.RequirementSet{}, map[string]string{FieldPrice: "たくさん"})
	assert.True(t, got.IsEmpty())
}

func TestApplyAnswers_Location(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   domain.RequirementSet
	}{
		{
			name:   "prefecture and city",
			answer: "神奈川県横浜市",
			want:   domain.RequirementSet{Prefecture: "神奈川県", City: "横浜市"},
		},
		{
			name:   "short prefecture",
			answer: "大阪",
			want:   domain.RequirementSet{Prefecture: "大阪府"},
		},
		{
			name:   "station",
			answer: "渋谷駅",
			want:   domain.RequirementSet{Station: "渋谷"},
		},
		{
			name:   "city only",
			answer: "川崎市",
			want:   domain.RequirementSet{City: "川崎市"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyAnswers(domain.RequirementSet{}, map[string]string{FieldLocation: tt.answer})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuestionOptionsAreApplicable(t *testing.T) {
	for field, options := range fieldOptions {
		q, ok := questionTemplates[field]
		require.True(t, ok, field)
		assert.Equal(t, optionLabels(options), q.SuggestedOptions, field)
	}
}
