package domain

import (
	"strings"
)

// WalkTimeUnknown — время до станции, когда оно не указано или не распознано.
const WalkTimeUnknown = 999

// Property — доменная сущность объекта недвижимости после нормализации.
// Неизменяема в рамках одного запроса ранжирования.
type Property struct {
	Address     string `json:"address"`
	Prefecture  string `json:"prefecture"`
	City        string `json:"city"`
	StationName string `json:"station_name"`
	// WalkTime — минуты пешком до станции, WalkTimeUnknown если неизвестно
	WalkTime int `json:"walk_time"`
	// Price — цена в единицах 万円
	Price        *float64 `json:"price,omitempty"`
	Layout       string   `json:"layout"`
	Area         *float64 `json:"area,omitempty"`
	Age          *int     `json:"age,omitempty"`
	PropertyType string   `json:"property_type"`
	// URL — внешний идентификатор объекта, используется для дедупликации
	URL      string   `json:"url"`
	Features []string `json:"features,omitempty"`
}

// HasKnownWalkTime сообщает, известно ли время пешком до станции.
func (p Property) HasKnownWalkTime() bool {
	return p.WalkTime >= 0 && p.WalkTime != WalkTimeUnknown
}

// IsIdentifiable — у объекта есть адрес или URL.
func (p Property) IsIdentifiable() bool {
	return strings.TrimSpace(p.Address) != "" || strings.TrimSpace(p.URL) != ""
}

// RequirementSet — критерии поиска пользователя (накопительные).
// Любое поле может отсутствовать: это значит «нет ограничения по оси».
type RequirementSet struct {
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
	AreaMin  *float64 `json:"area_min,omitempty"`
	AreaMax  *float64 `json:"area_max,omitempty"`
	AgeMax   *int     `json:"age_max,omitempty"`
	// WalkTimeMax — максимум минут пешком до станции
	WalkTimeMax *int `json:"walk_time_max,omitempty"`
	// Layout — "2LDK", "1K,1DK" (альтернативы) или "2LDK+" (не меньше комнат)
	Layout          string   `json:"layout,omitempty"`
	Prefecture      string   `json:"prefecture,omitempty"`
	City            string   `json:"city,omitempty"`
	Station         string   `json:"station,omitempty"`
	CommuteLocation string   `json:"commute_location,omitempty"`
	CommuteTimeMax  *int     `json:"commute_time_max,omitempty"`
	PropertyType    string   `json:"property_type,omitempty"`
	Features        []string `json:"features,omitempty"`
}

// HasLocation — указан ли хотя бы один из префектуры, города или станции.
func (r RequirementSet) HasLocation() bool {
	return r.Prefecture != "" || r.City != "" || r.Station != ""
}

// FieldCount возвращает количество заданных полей.
func (r RequirementSet) FieldCount() int {
	n := 0
	for _, set := range []bool{
		r.PriceMin != nil, r.PriceMax != nil,
		r.AreaMin != nil, r.AreaMax != nil,
		r.AgeMax != nil, r.WalkTimeMax != nil,
		r.Layout != "", r.Prefecture != "", r.City != "", r.Station != "",
		r.CommuteLocation != "", r.CommuteTimeMax != nil,
		r.PropertyType != "", len(r.Features) > 0,
	} {
		if set {
			n++
		}
	}
	return n
}

// IsEmpty — не задано ни одного критерия.
func (r RequirementSet) IsEmpty() bool {
	return r.FieldCount() == 0
}

// Merge накладывает заданные поля update поверх текущих критериев.
func (r RequirementSet) Merge(update RequirementSet) RequirementSet {
	merged := r

	if update.PriceMin != nil {
		merged.PriceMin = update.PriceMin
	}
	if update.PriceMax != nil {
		merged.PriceMax = update.PriceMax
	}
	if update.AreaMin != nil {
		merged.AreaMin = update.AreaMin
	}
	if update.AreaMax != nil {
		merged.AreaMax = update.AreaMax
	}
	if update.AgeMax != nil {
		merged.AgeMax = update.AgeMax
	}
	if update.WalkTimeMax != nil {
		merged.WalkTimeMax = update.WalkTimeMax
	}
	if update.Layout != "" {
		merged.Layout = update.Layout
	}
	if update.Prefecture != "" {
		merged.Prefecture = update.Prefecture
	}
	if update.City != "" {
		merged.City = update.City
	}
	if update.Station != "" {
		merged.Station = update.Station
	}
	if update.CommuteLocation != "" {
		merged.CommuteLocation = update.CommuteLocation
	}
	if update.CommuteTimeMax != nil {
		merged.CommuteTimeMax = update.CommuteTimeMax
	}
	if update.PropertyType != "" {
		merged.PropertyType = update.PropertyType
	}
	if len(update.Features) > 0 {
		merged.Features = append(append([]string{}, r.Features...), update.Features...)
	}

	return merged
}

// ScoredProperty — результат скоринга объекта. Создаётся на каждый запрос, не сохраняется.
type ScoredProperty struct {
	Property Property
	// Scores — сходство по каждой из семи осей
	Scores     map[Axis]Similarity
	TotalScore float64
	// MatchedAxes — оси, прошедшие порог для объяснения
	MatchedAxes []Axis
	Explanation string
}

// AxisScore возвращает значение сходства по оси (0.5, если ось не посчитана).
func (s ScoredProperty) AxisScore(axis Axis) float64 {
	sim, ok := s.Scores[axis]
	if !ok {
		return NeutralScore
	}
	return sim.Value()
}
