package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/services/normalizer"

	"golang.org/x/text/width"
)

// Возраст, который подразумевает «築浅».
const newlyBuiltAgeMax = 10

var (
	priceRangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)万円?\s*(?:〜|~|から|-|ー)\s*(\d+(?:\.\d+)?)万`)
	priceOkuRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)億円?(?:以下|まで|以内)`)
	priceMaxRes  = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)?)万円以下`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)万円まで`),
		regexp.MustCompile(`予算.*?(\d+(?:\.\d+)?)万`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)万.*?以下`),
	}
	layoutAtLeastRe = regexp.MustCompile(`([1-9][SLDK]+)\s*以上`)
	layoutRes       = []*regexp.Regexp{
		regexp.MustCompile(`([1-9][SLDK]+)`),
		regexp.MustCompile(`([1-9]室)`),
		regexp.MustCompile(`([1-9]部屋)`),
	}
	ageRes = []*regexp.Regexp{
		regexp.MustCompile(`築(\d+)年以内`),
		regexp.MustCompile(`築(\d+)年まで`),
	}
	walkRes = []*regexp.Regexp{
		regexp.MustCompile(`徒歩(\d+)分以内`),
		regexp.MustCompile(`駅.*?(\d+)分`),
		regexp.MustCompile(`徒歩(\d+)分圏内`),
	}
	areaMinRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:㎡|平米|m2|M2)以上`)
	stationRe = regexp.MustCompile(`([^「」\s、。,のでにをはがと]+)駅`)
	cityRe    = regexp.MustCompile(`([^「」\s、。,のでにをはがと都道府県]+?[市区町村])`)
	// Город сразу после префектуры.
	prefCityRe = regexp.MustCompile(`^([^「」\s、。,のでにをはがと都道府県]+?[市区町村])`)
)

// Requirements извлекает критерии поиска из сообщения пользователя регулярными выражениями.
// Результат предназначен для normalizer.Default().Requirements.
func Requirements(message string) normalizer.RawRecord {
	raw := normalizer.RawRecord{}
	text := width.Fold.String(message)
	upper := strings.ToUpper(text)

	if m := priceOkuRe.FindStringSubmatch(text); m != nil {
		if oku, err := strconv.ParseFloat(m[1], 64); err == nil {
			raw["price_max"] = oku * 10000
		}
	} else if v, ok := firstSubmatch(priceMaxRes, text); ok {
		raw["price_max"] = v + "万円"
	}
	if m := priceRangeRe.FindStringSubmatch(text); m != nil {
		raw["price_min"] = m[1] + "万円"
		raw["price_max"] = m[2] + "万円"
	}

	if m := layoutAtLeastRe.FindStringSubmatch(upper); m != nil {
		raw["layout"] = m[1] + "+"
	} else if v, ok := firstSubmatch(layoutRes, upper); ok {
		raw["layout"] = v
	}

	if v, ok := firstSubmatch(ageRes, text); ok {
		raw["age_max"] = v
	} else if strings.Contains(text, "築浅") {
		raw["age_max"] = newlyBuiltAgeMax
	}

	if v, ok := firstSubmatch(walkRes, text); ok {
		raw["walk_time_max"] = v
	}

	if m := areaMinRe.FindStringSubmatch(text); m != nil {
		raw["area_min"] = m[1]
	}

	if pref := domain.FindPrefecture(text); pref != "" {
		raw["prefecture"] = pref
	}
	if m := stationRe.FindStringSubmatch(text); m != nil {
		raw["station"] = m[1]
	}
	if city := findCity(text); city != "" {
		raw["city"] = city
	}

	return raw
}

// LocationTerm — самый конкретный топоним из извлечённых критериев: станция, город, префектура.
func LocationTerm(raw normalizer.RawRecord) string {
	for _, key := range []string{"station", "city", "prefecture"} {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func findCity(text string) string {
	if pref := domain.FindPrefecture(text); pref != "" {
		if idx := strings.Index(text, pref); idx >= 0 {
			if m := prefCityRe.FindStringSubmatch(text[idx+len(pref):]); m != nil {
				return m[1]
			}
		}
	}
	if m := cityRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func firstSubmatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
