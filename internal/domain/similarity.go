package domain

import "fmt"

// NeutralScore — сходство оси, по которой нечего сравнивать.
const NeutralScore = 0.5

// Axis — одна из независимо оцениваемых осей сходства.
type Axis string

const (
	AxisLocation    Axis = "location"
	AxisPrice       Axis = "price"
	AxisLayout      Axis = "layout"
	AxisArea        Axis = "area"
	AxisAge         Axis = "age"
	AxisWalkTime    Axis = "walk_time"
	AxisCommuteTime Axis = "commute_time"
)

// Axes — все оси в фиксированном порядке. Итоговый балл всегда считается по всем семи.
var Axes = []Axis{
	AxisLocation,
	AxisPrice,
	AxisLayout,
	AxisArea,
	AxisAge,
	AxisWalkTime,
	AxisCommuteTime,
}

// Веса осей фиксированы и в сумме дают 1.0.
var axisWeights = map[Axis]float64{
	AxisLocation:    0.25,
	AxisPrice:       0.20,
	AxisLayout:      0.15,
	AxisArea:        0.15,
	AxisAge:         0.10,
	AxisWalkTime:    0.10,
	AxisCommuteTime: 0.05,
}

// Weight возвращает вес оси в итоговом балле.
func (a Axis) Weight() float64 {
	return axisWeights[a]
}

// SimilarityKind — происхождение значения сходства.
type SimilarityKind int

const (
	// SimilarityComputed — значение посчитано по формуле оси
	SimilarityComputed SimilarityKind = iota
	// SimilarityUnset — ограничение по оси не задано
	SimilarityUnset
	// SimilarityMissing — у кандидата (или эталона) нет данных для оси
	SimilarityMissing
	// SimilarityFailed — ошибка при вычислении
	SimilarityFailed
)

func (k SimilarityKind) String() string {
	switch k {
	case SimilarityComputed:
		return "computed"
	case SimilarityUnset:
		return "neutral_unset"
	case SimilarityMissing:
		return "neutral_missing"
	case SimilarityFailed:
		return "neutral_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Similarity — результат оценки одной оси: Computed(v) либо Neutral с причиной.
type Similarity struct {
	Kind  SimilarityKind
	value float64
	// Err заполнен только для SimilarityFailed
	Err error
}

// Computed создаёт посчитанное сходство, обрезанное до [0, 1].
func Computed(v float64) Similarity {
	switch {
	case v != v: // NaN
		v = 0
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return Similarity{Kind: SimilarityComputed, value: v}
}

// Unset — нейтральное сходство для незаданного ограничения.
func Unset() Similarity {
	return Similarity{Kind: SimilarityUnset, value: NeutralScore}
}

// Missing — нейтральное сходство при отсутствии данных у объекта.
func Missing() Similarity {
	return Similarity{Kind: SimilarityMissing, value: NeutralScore}
}

// Failed — нейтральное сходство после ошибки вычисления.
func Failed(err error) Similarity {
	return Similarity{Kind: SimilarityFailed, value: NeutralScore, Err: err}
}

// Value — числовое значение в [0, 1].
func (s Similarity) Value() float64 {
	if s.Kind != SimilarityComputed {
		return NeutralScore
	}
	return s.value
}

// IsNeutral — значение не было посчитано по формуле.
func (s Similarity) IsNeutral() bool {
	return s.Kind != SimilarityComputed
}

// Mode — режим скоринга.
type Mode string

const (
	ModeCriteria  Mode = "criteria"
	ModeReference Mode = "reference"
)

// Target — цель сравнения: критерии пользователя либо эталонный объект.
type Target struct {
	mode      Mode
	criteria  RequirementSet
	reference Property
}

// CriteriaTarget — сравнение с критериями пользователя.
func CriteriaTarget(reqs RequirementSet) Target {
	return Target{mode: ModeCriteria, criteria: reqs}
}

// ReferenceTarget — сравнение с загруженным объектом.
func ReferenceTarget(ref Property) Target {
	return Target{mode: ModeReference, reference: ref}
}

func (t Target) Mode() Mode {
	return t.mode
}

// Criteria возвращает критерии, если цель в режиме criteria.
func (t Target) Criteria() (RequirementSet, bool) {
	return t.criteria, t.mode == ModeCriteria
}

// Reference возвращает эталон, если цель в режиме reference.
func (t Target) Reference() (Property, bool) {
	return t.reference, t.mode == ModeReference
}
