package extraction

import (
	"regexp"
	"strings"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/services/normalizer"

	"golang.org/x/text/width"
)

var (
	addressRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:住所|所在地)[：:\s]*([^「」\n]+)`),
		regexp.MustCompile(`([^「」\n：:\s]*[都道府県][^「」\n]*[市区町村][^「」\n\s]*)`),
	}
	listingCityRe   = regexp.MustCompile(`([^「」\s：:都道府県]+?[市区町村])`)
	// Порядок важен: «最寄駅：X駅» и «「X」駅» точнее общего шаблона.
	stationPatterns = []stationPattern{
		{regexp.MustCompile(`「([^「」]+)」駅.*?徒歩.*?(\d+)分`), 1, 2},
		{regexp.MustCompile(`最寄[り駅]*[：:\s]*([^「」\s]+)駅.*?(\d+)分`), 1, 2},
		{regexp.MustCompile(`([^「」\s：:]+)駅.*?徒歩.*?(\d+)分`), 1, 2},
		{regexp.MustCompile(`徒歩.*?(\d+)分.*?([^「」\s：:]+)駅`), 2, 1},
	}
	listingPriceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:販売価格|価格)[：:\s]*((?:\d+億)?[\d,]+(?:\.\d+)?万円)`),
		regexp.MustCompile(`(?:家賃|月額|賃料)[：:\s]*(\d+(?:\.\d+)?万円)`),
		regexp.MustCompile(`(\d+(?:\.\d+)?万円)[/／]月`),
		regexp.MustCompile(`((?:\d+億)?[\d,]+(?:\.\d+)?万円)`),
	}
	listingLayoutRe = regexp.MustCompile(`([1-9][SLDK]+)`)
	listingAreaRes  = []*regexp.Regexp{
		regexp.MustCompile(`専有面積[：:\s]*(\d+(?:\.\d+)?)(?:㎡|m2|m²|平米)`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)(?:㎡|m²)`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)平米`),
	}
	listingAgeRes = []*regexp.Regexp{
		regexp.MustCompile(`築(\d+)年`),
		regexp.MustCompile(`建築年.*?(\d+)年`),
	}
	propertyTypeRe = regexp.MustCompile(`(マンション|アパート|一戸建て|戸建て|ハイツ|コーポ)`)
)

type stationPattern struct {
	re      *regexp.Regexp
	station int
	walk    int
}

// Listing извлекает характеристики объекта из текста объявления (например, из PDF).
// Результат предназначен для normalizer.Default().Property и используется как эталон.
func Listing(text string) normalizer.RawRecord {
	raw := normalizer.RawRecord{}
	text = width.Fold.String(text)

	if v, ok := firstSubmatch(addressRes, text); ok {
		raw["address"] = strings.TrimSpace(v)
	}

	if pref := domain.FindPrefecture(text); pref != "" {
		raw["prefecture"] = pref
	}
	if address, ok := raw["address"].(string); ok {
		if city := domain.CityFromAddress(address); city != "" {
			raw["city"] = city
		}
	}
	if _, ok := raw["city"]; !ok {
		if m := listingCityRe.FindStringSubmatch(text); m != nil {
			raw["city"] = m[1]
		}
	}

	for _, p := range stationPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			raw["station"], raw["walk_time"] = m[p.station], m[p.walk]
			break
		}
	}

	if v, ok := firstSubmatch(listingPriceRes, text); ok {
		raw["price"] = v
	}
	if m := listingLayoutRe.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		raw["layout"] = m[1]
	}
	if v, ok := firstSubmatch(listingAreaRes, text); ok {
		raw["area"] = v
	}
	if v, ok := firstSubmatch(listingAgeRes, text); ok {
		raw["age"] = v
	}
	if m := propertyTypeRe.FindStringSubmatch(text); m != nil {
		raw["property_type"] = m[1]
	}

	return raw
}
