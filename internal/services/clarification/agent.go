package clarification

import (
	"log/slog"
	"strings"

	"sumai_assistant/internal/domain"
)

// Поля критериев, о которых агент может спросить.
const (
	FieldLocation = "location"
	FieldPrice    = "price"
	FieldLayout   = "layout"
	FieldArea     = "area"
	FieldAge      = "age"
)

// Приоритеты уточнения.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Важность вопроса.
const (
	ImportanceRequired    = "required"
	ImportanceRecommended = "recommended"
)

const (
	// MaxQuestions — сколько вопросов задаётся за один ответ.
	MaxQuestions = 5
	// MinReadyFields — минимум заданных полей для запуска поиска (место плюс хотя бы одно условие).
	MinReadyFields = 2

	missingFieldPenalty     = 0.15
	unconfirmedPenalty      = 0.15
	highPriorityQuality     = 0.3
	mediumPriorityQuality   = 0.6
	clarificationFieldCount = 3
)

// Agent — агент уточнения критериев поиска.
type Agent struct {
	log *slog.Logger
}

// NewAgent создаёт нового агента для уточнения.
func NewAgent(log *slog.Logger) *Agent {
	return &Agent{log: log}
}

// Result — результат анализа критериев.
type Result struct {
	// NeedsClarification — нужно ли задать вопросы
	NeedsClarification bool `json:"needs_clarification"`
	// ReadyForSearch — критериев достаточно для поиска
	ReadyForSearch bool       `json:"ready_for_search"`
	Questions      []Question `json:"questions"`
	// Priority — high, medium, low
	Priority      string   `json:"priority"`
	MissingFields []string `json:"missing_fields"`
	// QualityScore — полнота критериев (0-1)
	QualityScore float64 `json:"quality_score"`
}

// Question — уточняющий вопрос.
type Question struct {
	Field    string `json:"field"`
	Question string `json:"question"`
	// QuestionType — open, choice, range
	QuestionType     string   `json:"question_type"`
	SuggestedOptions []string `json:"suggested_options,omitempty"`
	Importance       string   `json:"importance"`
}

// ReadyForSearch — место подтверждено и задано не меньше двух полей.
func ReadyForSearch(reqs domain.RequirementSet, locationConfirmed bool) bool {
	return locationConfirmed && reqs.FieldCount() >= MinReadyFields
}

// Analyze оценивает полноту критериев и подбирает уточняющие вопросы.
func (a *Agent) Analyze(reqs domain.RequirementSet, locationConfirmed bool) *Result {
	const op = "clarification.Agent.Analyze"

	log := a.log.With(slog.String("op", op))

	result := &Result{
		MissingFields:  MissingFields(reqs),
		ReadyForSearch: ReadyForSearch(reqs, locationConfirmed),
	}
	result.QualityScore = qualityScore(result.MissingFields, locationConfirmed)
	result.NeedsClarification = !result.ReadyForSearch || len(result.MissingFields) >= clarificationFieldCount

	if !result.NeedsClarification {
		result.Priority = PriorityLow
		result.Questions = []Question{}
		return result
	}

	result.Priority = determinePriority(result.MissingFields, result.QualityScore)
	result.Questions = fallbackQuestions(result.MissingFields)

	log.Debug("clarification analysis completed",
		slog.Bool("ready_for_search", result.ReadyForSearch),
		slog.Int("questions_count", len(result.Questions)),
		slog.String("priority", result.Priority),
	)

	return result
}

// MissingFields перечисляет незаданные поля в фиксированном порядке.
func MissingFields(reqs domain.RequirementSet) []string {
	missing := make([]string, 0, 5)
	if !reqs.HasLocation() {
		missing = append(missing, FieldLocation)
	}
	if reqs.PriceMin == nil && reqs.PriceMax == nil {
		missing = append(missing, FieldPrice)
	}
	if reqs.Layout == "" {
		missing = append(missing, FieldLayout)
	}
	if reqs.AreaMin == nil && reqs.AreaMax == nil {
		missing = append(missing, FieldArea)
	}
	if reqs.AgeMax == nil {
		missing = append(missing, FieldAge)
	}
	return missing
}

func qualityScore(missing []string, locationConfirmed bool) float64 {
	score := 1.0 - float64(len(missing))*missingFieldPenalty
	if !locationConfirmed {
		score -= unconfirmedPenalty
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func determinePriority(missing []string, quality float64) string {
	critical := 0
	for _, f := range missing {
		if f == FieldLocation || f == FieldPrice || f == FieldLayout {
			critical++
		}
	}

	if quality < highPriorityQuality || critical >= 2 {
		return PriorityHigh
	}
	if quality < mediumPriorityQuality || critical >= 1 {
		return PriorityMedium
	}
	return PriorityLow
}

var questionTemplates = map[string]Question{
	FieldLocation: {
		Field:        FieldLocation,
		Question:     "どちらの地域（都道府県・市区町村・駅）で物件をお探しですか？",
		QuestionType: "open",
		Importance:   ImportanceRequired,
	},
	FieldPrice: {
		Field:            FieldPrice,
		Question:         "ご予算はどのくらいをお考えですか？",
		QuestionType:     "range",
		SuggestedOptions: optionLabels(priceOptions),
		Importance:       ImportanceRequired,
	},
	FieldLayout: {
		Field:            FieldLayout,
		Question:         "ご希望の間取りを教えてください。",
		QuestionType:     "choice",
		SuggestedOptions: optionLabels(layoutOptions),
		Importance:       ImportanceRequired,
	},
	FieldArea: {
		Field:            FieldArea,
		Question:         "専有面積はどのくらい必要ですか？",
		QuestionType:     "range",
		SuggestedOptions: optionLabels(areaOptions),
		Importance:       ImportanceRecommended,
	},
	FieldAge: {
		Field:            FieldAge,
		Question:         "築年数にご希望はありますか？",
		QuestionType:     "choice",
		SuggestedOptions: optionLabels(ageOptions),
		Importance:       ImportanceRecommended,
	},
}

// fallbackQuestions — сначала обязательные вопросы, затем рекомендованные.
func fallbackQuestions(missing []string) []Question {
	questions := make([]Question, 0, len(missing))

	for _, importance := range []string{ImportanceRequired, ImportanceRecommended} {
		for _, field := range missing {
			if q, ok := questionTemplates[field]; ok && q.Importance == importance {
				questions = append(questions, q)
			}
		}
	}

	if len(questions) > MaxQuestions {
		questions = questions[:MaxQuestions]
	}
	return questions
}

// Summary — короткий ответ из первых вопросов для чата.
func (r *Result) Summary() string {
	if r == nil || len(r.Questions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Questions))
	for _, q := range r.Questions {
		lines = append(lines, "・"+q.Question)
	}
	return strings.Join(lines, "\n")
}
