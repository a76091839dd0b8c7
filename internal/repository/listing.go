package repository

import (
	"cmp"
	"slices"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/services/normalizer"
)

const (
	// ListingTable — таблица объявлений о продаже (исходный датасет).
	ListingTable = "BUY_data_url_uniqued"
	// LocationScanLimit — сколько строк просматривается при агрегации кандидатов местоположения.
	LocationScanLimit = 2000
)

// ListingRow — строка таблицы объявлений. Все колонки текстовые, цена в иенах.
type ListingRow struct {
	URL           *string `db:"url" json:"url,omitempty"`
	Address       *string `db:"address" json:"address,omitempty"`
	Pref          *string `db:"pref" json:"pref,omitempty"`
	StationName   *string `db:"station_name" json:"station_name,omitempty"`
	MiPrice       *string `db:"mi_price" json:"mi_price,omitempty"`
	FloorPlan     *string `db:"floor_plan" json:"floor_plan,omitempty"`
	ExclusiveArea *string `db:"exclusive_area" json:"exclusive_area,omitempty"`
	Years         *string `db:"years" json:"years,omitempty"`
	Types         *string `db:"types" json:"types,omitempty"`
	Traffic1      *string `db:"traffic1" json:"traffic1,omitempty"`
}

var listingColumns = []string{
	"url", "address", "pref", "station_name", "mi_price",
	"floor_plan", "exclusive_area", "years", "types", "traffic1",
}

// Raw превращает строку в сырую запись для нормализатора. NULL-колонки пропускаются.
func (r ListingRow) Raw() normalizer.RawRecord {
	raw := normalizer.RawRecord{}
	for key, value := range map[string]*string{
		"url":            r.URL,
		"address":        r.Address,
		"pref":           r.Pref,
		"station_name":   r.StationName,
		"mi_price":       r.MiPrice,
		"floor_plan":     r.FloorPlan,
		"exclusive_area": r.ExclusiveArea,
		"years":          r.Years,
		"types":          r.Types,
		"traffic1":       r.Traffic1,
	} {
		if value != nil {
			raw[key] = *value
		}
	}
	return raw
}

// Values — значения колонок в порядке listingColumns.
func (r ListingRow) Values() []any {
	return []any{
		r.URL, r.Address, r.Pref, r.StationName, r.MiPrice,
		r.FloorPlan, r.ExclusiveArea, r.Years, r.Types, r.Traffic1,
	}
}

// LocationRow — строка для агрегации кандидатов местоположения.
type LocationRow struct {
	Pref        *string `db:"pref"`
	Address     *string `db:"address"`
	StationName *string `db:"station_name"`
}

// AggregateCandidates группирует строки по (префектура, город, станция)
// и сортирует по числу объектов по убыванию. Равные группы сохраняют порядок появления.
func AggregateCandidates(rows []LocationRow, limit int) []domain.LocationCandidate {
	index := make(map[string]int)
	var candidates []domain.LocationCandidate

	for _, row := range rows {
		c := domain.LocationCandidate{
			Prefecture: deref(row.Pref),
			City:       domain.CityFromAddress(deref(row.Address)),
			Station:    deref(row.StationName),
		}
		key := c.Key()
		if i, ok := index[key]; ok {
			candidates[i].PropertyCount++
			continue
		}
		c.PropertyCount = 1
		index[key] = len(candidates)
		candidates = append(candidates, c)
	}

	slices.SortStableFunc(candidates, func(a, b domain.LocationCandidate) int {
		return cmp.Compare(b.PropertyCount, a.PropertyCount)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
