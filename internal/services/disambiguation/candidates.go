package disambiguation

import (
	"fmt"
	"strings"

	"sumai_assistant/internal/domain"

	"github.com/samber/lo"
)

const (
	// MaxUnambiguousCandidates — больше стольких кандидатов считается неоднозначным.
	// Отдельный порог от DistanceCheckMinAddresses: он относится к вариантам местоположения,
	// а не к адресам найденных объектов.
	MaxUnambiguousCandidates = 3
	// MaxListedCandidates — максимум вариантов в вопросе пользователю.
	MaxListedCandidates = 5
)

// DedupCandidates убирает повторы по ключу префектура_город_станция, сохраняя порядок.
func DedupCandidates(candidates []domain.LocationCandidate) []domain.LocationCandidate {
	return lo.UniqBy(candidates, func(c domain.LocationCandidate) string {
		return c.Key()
	})
}

// HasCandidateAmbiguity — нужно ли уточнять местоположение по списку кандидатов.
func HasCandidateAmbiguity(candidates []domain.LocationCandidate) bool {
	if len(candidates) <= 1 {
		return false
	}

	stations := lo.Uniq(lo.Map(candidates, func(c domain.LocationCandidate, _ int) string {
		return c.Station
	}))
	prefectures := lo.Uniq(lo.Map(candidates, func(c domain.LocationCandidate, _ int) string {
		return c.Prefecture
	}))
	if len(stations) == 1 && len(prefectures) > 1 {
		return true
	}

	return len(candidates) > MaxUnambiguousCandidates
}

// CandidateClarification — нумерованный вопрос со списком не более MaxListedCandidates вариантов.
// stationHint — название станции из запроса пользователя, если оно было.
func CandidateClarification(candidates []domain.LocationCandidate, stationHint string) string {
	if len(candidates) == 0 {
		return "申し訳ございませんが、該当する地域が見つかりませんでした。都道府県名から教えていただけますでしょうか？"
	}

	listed := candidates[:min(len(candidates), MaxListedCandidates)]
	var b strings.Builder

	stationHint = domain.NormalizeStation(stationHint)
	if stationHint != "" && len(candidates) > 1 {
		fmt.Fprintf(&b, "「%s駅」は複数の地域にございます。以下のうち、どちらの地域をご希望でしょうか？\n\n", stationHint)
		for i, c := range listed {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c.DisplayName())
		}
		b.WriteString("\n番号または地域名で教えてください。")
		return b.String()
	}

	b.WriteString("以下の地域の候補がございます。どちらをご希望でしょうか？\n\n")
	for i, c := range listed {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(c.Prefecture+" "+c.City))
	}
	b.WriteString("\n番号または詳細な地域名で教えてください。")
	return b.String()
}

// ConfirmationMessage — подтверждение выбранного местоположения и просьба о прочих условиях.
func ConfirmationMessage(c domain.LocationCandidate) string {
	location := c.Prefecture
	if c.City != "" {
		location += " " + c.City
	}
	if c.Station != "" {
		location += " " + c.Station + "駅周辺"
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return "地域の特定ができませんでした。もう少し詳しく地域を教えていただけますでしょうか？"
	}

	return "承知いたしました。" + location + "で物件をお探しですね。\n\n" +
		"次に、ご希望の条件を教えてください。例えば：\n" +
		"- 予算（家賃や購入価格）\n" +
		"- 間取り（1K、1DK、2LDKなど）\n" +
		"- 築年数\n" +
		"- その他のご希望"
}
