package clarification

import (
	"strings"

	"github.com/samber/lo"

	"sumai_assistant/internal/domain"
)

// answerOption — вариант ответа и соответствующие ему критерии.
type answerOption struct {
	label string
	apply func(*domain.RequirementSet)
}

var priceOptions = []answerOption{
	{"〜3000万円", func(r *domain.RequirementSet) { r.PriceMax = domain.Ptr(3000.0) }},
	{"3000〜5000万円", func(r *domain.RequirementSet) {
		r.PriceMin = domain.Ptr(3000.0)
		r.PriceMax = domain.Ptr(5000.0)
	}},
	{"5000〜7000万円", func(r *domain.RequirementSet) {
		r.PriceMin = domain.Ptr(5000.0)
		r.PriceMax = domain.Ptr(7000.0)
	}},
	{"7000万円〜1億円", func(r *domain.RequirementSet) {
		r.PriceMin = domain.Ptr(7000.0)
		r.PriceMax = domain.Ptr(10000.0)
	}},
	{"1億円以上", func(r *domain.RequirementSet) { r.PriceMin = domain.Ptr(10000.0) }},
}

var layoutOptions = []answerOption{
	{"1K・1DK", func(r *domain.RequirementSet) { r.Layout = "1K,1DK" }},
	{"1LDK", func(r *domain.RequirementSet) { r.Layout = "1LDK" }},
	{"2LDK", func(r *domain.RequirementSet) { r.Layout = "2LDK" }},
	{"3LDK", func(r *domain.RequirementSet) { r.Layout = "3LDK" }},
	{"4LDK以上", func(r *domain.RequirementSet) { r.Layout = "4LDK+" }},
}

var areaOptions = []answerOption{
	{"40㎡以上", func(r *domain.RequirementSet) { r.AreaMin = domain.Ptr(40.0) }},
	{"60㎡以上", func(r *domain.RequirementSet) { r.AreaMin = domain.Ptr(60.0) }},
	{"80㎡以上", func(r *domain.RequirementSet) { r.AreaMin = domain.Ptr(80.0) }},
	{"100㎡以上", func(r *domain.RequirementSet) { r.AreaMin = domain.Ptr(100.0) }},
}

var ageOptions = []answerOption{
	{"新築", func(r *domain.RequirementSet) { r.AgeMax = domain.Ptr(1) }},
	{"築10年以内", func(r *domain.RequirementSet) { r.AgeMax = domain.Ptr(10) }},
	{"築20年以内", func(r *domain.RequirementSet) { r.AgeMax = domain.Ptr(20) }},
	{"こだわらない", func(*domain.RequirementSet) {}},
}

var fieldOptions = map[string][]answerOption{
	FieldPrice:  priceOptions,
	FieldLayout: layoutOptions,
	FieldArea:   areaOptions,
	FieldAge:    ageOptions,
}

func optionLabels(options []answerOption) []string {
	return lo.Map(options, func(o answerOption, _ int) string { return o.label })
}

// ApplyAnswers применяет выбранные варианты ответов к критериям.
// Ответ на вопрос о месте трактуется как название префектуры, если оно распознано, иначе как город.
// Неизвестные поля и варианты игнорируются.
func ApplyAnswers(reqs domain.RequirementSet, answers map[string]string) domain.RequirementSet {
	var update domain.RequirementSet

	for field, answer := range answers {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}

		if field == FieldLocation {
			applyLocation(&update, answer)
			continue
		}

		option, ok := lo.Find(fieldOptions[field], func(o answerOption) bool {
			return o.label == answer
		})
		if ok {
			option.apply(&update)
		}
	}

	return reqs.Merge(update)
}

func applyLocation(update *domain.RequirementSet, answer string) {
	if pref := domain.FindPrefecture(answer); pref != "" {
		update.Prefecture = pref
		if city := domain.CityFromAddress(answer); city != "" {
			update.City = city
		}
		return
	}
	if strings.HasSuffix(answer, "駅") {
		update.Station = domain.NormalizeStation(answer)
		return
	}
	update.City = answer
}
