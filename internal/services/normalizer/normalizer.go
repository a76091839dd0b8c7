package normalizer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"sumai_assistant/internal/domain"

	"github.com/samber/lo"
	"golang.org/x/text/width"
)

// RawRecord — сырая запись: числа, строки с единицами измерения или nil.
type RawRecord map[string]any

// PriceUnit — единица «голых» числовых цен без явной единицы.
type PriceUnit int

const (
	// PriceUnitManYen — числа уже в 万円 (ввод пользователя, извлечённые критерии)
	PriceUnitManYen PriceUnit = iota
	// PriceUnitYen — числа в иенах (колонка mi_price исходной базы)
	PriceUnitYen
)

var (
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	okuRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)億(?:(\d+(?:\.\d+)?)万)?`)
	manRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)万`)
	walkRe     = regexp.MustCompile(`徒歩(\d+)分`)
	areaUnitRe = regexp.MustCompile(`(㎡|m²|m2|平米|平方メートル)`)
)

// Normalizer приводит сырые записи к доменным типам. Не хранит состояния между вызовами.
type Normalizer struct {
	priceUnit PriceUnit
}

// New создаёт нормализатор с заданной единицей «голых» цен.
func New(unit PriceUnit) *Normalizer {
	return &Normalizer{priceUnit: unit}
}

// Default — нормализатор для пользовательского ввода (цены в 万円).
func Default() *Normalizer {
	return New(PriceUnitManYen)
}

// Property нормализует запись объекта. Нераспознанные поля опускаются.
func (n *Normalizer) Property(raw RawRecord) domain.Property {
	p := domain.Property{
		Address:      stringField(raw, "address"),
		Prefecture:   stringField(raw, "prefecture", "pref"),
		City:         stringField(raw, "city"),
		StationName:  domain.NormalizeStation(stringField(raw, "station_name", "station")),
		Layout:       Layout(stringField(raw, "layout", "floor_plan")),
		PropertyType: stringField(raw, "property_type", "types"),
		URL:          stringField(raw, "url"),
		Features:     listField(raw, "features"),
		WalkTime:     domain.WalkTimeUnknown,
	}

	if p.Prefecture == "" && p.Address != "" {
		if pref := domain.ExtractPrefecture(p.Address); pref != domain.UnknownPrefecture {
			p.Prefecture = pref
		}
	}
	if p.City == "" {
		p.City = domain.CityFromAddress(p.Address)
	}

	if v, ok := n.price(lookup(raw, "price", "mi_price")); ok {
		p.Price = &v
	}
	if v, ok := Area(lookup(raw, "area", "exclusive_area")); ok {
		p.Area = &v
	}
	if v, ok := Int(lookup(raw, "age", "years")); ok {
		p.Age = &v
	}
	if v, ok := WalkTime(lookup(raw, "walk_time", "traffic", "traffic1")); ok {
		p.WalkTime = v
	}

	return p
}

// Requirements нормализует критерии поиска. Нераспознанные поля опускаются.
func (n *Normalizer) Requirements(raw RawRecord) domain.RequirementSet {
	r := domain.RequirementSet{
		Layout:          Layout(stringField(raw, "layout")),
		Prefecture:      domain.NormalizePrefecture(stringField(raw, "prefecture")),
		City:            stringField(raw, "city"),
		Station:         domain.NormalizeStation(stringField(raw, "station")),
		CommuteLocation: stringField(raw, "commute_location"),
		PropertyType:    stringField(raw, "property_type"),
		Features:        listField(raw, "features"),
	}

	if v, ok := n.price(lookup(raw, "price_min")); ok {
		r.PriceMin = &v
	}
	if v, ok := n.price(lookup(raw, "price_max")); ok {
		r.PriceMax = &v
	}
	if v, ok := Area(lookup(raw, "area_min")); ok {
		r.AreaMin = &v
	}
	if v, ok := Area(lookup(raw, "area_max")); ok {
		r.AreaMax = &v
	}
	if v, ok := Int(lookup(raw, "age_max")); ok {
		r.AgeMax = &v
	}
	if v, ok := Int(lookup(raw, "walk_time_max")); ok {
		r.WalkTimeMax = &v
	}
	if v, ok := Int(lookup(raw, "commute_time_max")); ok {
		r.CommuteTimeMax = &v
	}

	return r
}

// Layout приводит планировку к верхнему регистру: "２ldk" -> "2LDK".
func Layout(s string) string {
	return strings.ToUpper(strings.TrimSpace(width.Fold.String(s)))
}

// Price разбирает цену в 万円 по правилам нормализатора.
func (n *Normalizer) Price(v any) (float64, bool) {
	return n.price(v)
}

func (n *Normalizer) price(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}

	if s, ok := v.(string); ok {
		s = clean(s)
		if m := okuRe.FindStringSubmatch(s); m != nil {
			oku, _ := strconv.ParseFloat(m[1], 64)
			man := 0.0
			if m[2] != "" {
				man, _ = strconv.ParseFloat(m[2], 64)
			}
			return positive(oku*10000 + man)
		}
		if m := manRe.FindStringSubmatch(s); m != nil {
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, false
			}
			return positive(f)
		}
		f, ok := firstNumber(s)
		if !ok {
			return 0, false
		}
		if n.priceUnit == PriceUnitYen || strings.Contains(s, "円") {
			return positive(yenToManYen(f))
		}
		return positive(f)
	}

	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	if n.priceUnit == PriceUnitYen {
		return positive(yenToManYen(f))
	}
	return positive(f)
}

// Area разбирает площадь в м²: "25.5㎡" -> 25.5.
func Area(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		v = areaUnitRe.ReplaceAllString(clean(s), "")
	}
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return positive(f)
}

// Float извлекает число из значения: для строк берётся первая числовая последовательность.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return firstNumber(clean(x))
	default:
		return 0, false
	}
}

// Int извлекает целое по тем же правилам, что и Float (дробная часть отбрасывается).
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// WalkTime извлекает минуты пешком. Для строк "徒歩N分" приоритетнее первого числа.
func WalkTime(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = clean(s)
		if m := walkRe.FindStringSubmatch(s); m != nil {
			minutes, err := strconv.Atoi(m[1])
			if err == nil {
				return minutes, true
			}
		}
	}
	minutes, ok := Int(v)
	if !ok || minutes < 0 {
		return 0, false
	}
	return minutes, true
}

func yenToManYen(yen float64) float64 {
	return math.Round(yen/10000*10) / 10
}

func positive(f float64) (float64, bool) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func firstNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// clean приводит полноширинные цифры к ASCII и убирает разделители разрядов.
func clean(s string) string {
	s = width.Fold.String(s)
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

func lookup(raw RawRecord, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(raw RawRecord, keys ...string) string {
	switch x := lookup(raw, keys...).(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func listField(raw RawRecord, key string) []string {
	var items []string
	switch x := raw[key].(type) {
	case string:
		items = []string{x}
	case []string:
		items = x
	case []any:
		items = lo.FilterMap(x, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	default:
		return nil
	}

	items = lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(items) == 0 {
		return nil
	}
	return items
}
