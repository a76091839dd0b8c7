package ranking

import (
	"strings"

	"sumai_assistant/internal/domain"
)

const (
	reasonSeparator = "、"
	// ReasonReference добавляется в режиме reference.
	ReasonReference = "アップロードされた物件と類似"
	// ReasonFallback — ни одна ось не прошла порог.
	ReasonFallback = "総合的におすすめ"
)

type reasonRule struct {
	axis      domain.Axis
	threshold float64
	text      string
}

// Порядок правил задаёт порядок причин в тексте.
var reasonRules = []reasonRule{
	{domain.AxisLocation, 0.7, "希望地域にマッチ"},
	{domain.AxisPrice, 0.8, "予算内で好条件"},
	{domain.AxisLayout, 0.8, "希望の間取り"},
	{domain.AxisAge, 0.8, "築年数が希望に合致"},
	{domain.AxisWalkTime, 0.8, "駅から近い"},
}

// Explain возвращает оси, прошедшие порог, и текст причины.
func Explain(scored domain.ScoredProperty, mode domain.Mode) ([]domain.Axis, string) {
	matched := make([]domain.Axis, 0, len(reasonRules))
	reasons := make([]string, 0, len(reasonRules)+1)

	for _, rule := range reasonRules {
		sim, ok := scored.Scores[rule.axis]
		if !ok || sim.Value() <= rule.threshold {
			continue
		}
		matched = append(matched, rule.axis)
		reasons = append(reasons, rule.text)
	}

	if mode == domain.ModeReference {
		reasons = append(reasons, ReasonReference)
	}

	if len(reasons) == 0 {
		return matched, ReasonFallback
	}
	return matched, strings.Join(reasons, reasonSeparator)
}
