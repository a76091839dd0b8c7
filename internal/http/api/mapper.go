package api

import (
	"math"

	"sumai_assistant/internal/domain"
)

// PropertyDTO — объект в ответе API. Цена в 万円.
type PropertyDTO struct {
	Address      string   `json:"address"`
	Prefecture   string   `json:"prefecture,omitempty"`
	City         string   `json:"city,omitempty"`
	StationName  string   `json:"station_name,omitempty"`
	WalkTime     *int     `json:"walk_time,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Layout       string   `json:"layout,omitempty"`
	Area         *float64 `json:"area,omitempty"`
	Age          *int     `json:"age,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// ScoredPropertyDTO — рекомендация с оценками по осям (3 знака после запятой).
type ScoredPropertyDTO struct {
	Property    PropertyDTO        `json:"property"`
	TotalScore  float64            `json:"total_score"`
	Scores      map[string]float64 `json:"scores"`
	NeutralAxes []string           `json:"neutral_axes,omitempty"`
	MatchedAxes []string           `json:"matched_axes"`
	Explanation string             `json:"explanation"`
}

func roundScore(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func propertyToDTO(p domain.Property) PropertyDTO {
	dto := PropertyDTO{
		Address:      p.Address,
		Prefecture:   p.Prefecture,
		City:         p.City,
		StationName:  p.StationName,
		Price:        p.Price,
		Layout:       p.Layout,
		Area:         p.Area,
		Age:          p.Age,
		PropertyType: p.PropertyType,
		URL:          p.URL,
	}
	if p.HasKnownWalkTime() {
		walk := p.WalkTime
		dto.WalkTime = &walk
	}
	return dto
}

func scoredToDTO(sp domain.ScoredProperty) ScoredPropertyDTO {
	dto := ScoredPropertyDTO{
		Property:    propertyToDTO(sp.Property),
		TotalScore:  roundScore(sp.TotalScore),
		Scores:      make(map[string]float64, len(domain.Axes)),
		MatchedAxes: make([]string, 0, len(sp.MatchedAxes)),
		Explanation: sp.Explanation,
	}

	for _, axis := range domain.Axes {
		dto.Scores[string(axis)] = roundScore(sp.AxisScore(axis))
		if sim, ok := sp.Scores[axis]; ok && sim.IsNeutral() {
			dto.NeutralAxes = append(dto.NeutralAxes, string(axis))
		}
	}
	for _, axis := range sp.MatchedAxes {
		dto.MatchedAxes = append(dto.MatchedAxes, string(axis))
	}

	return dto
}

func scoredListToDTO(list []domain.ScoredProperty) []ScoredPropertyDTO {
	out := make([]ScoredPropertyDTO, 0, len(list))
	for _, sp := range list {
		out = append(out, scoredToDTO(sp))
	}
	return out
}
