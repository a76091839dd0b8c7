package domain

import (
	"regexp"
	"strings"
)

// UnknownPrefecture — ключ для адресов без распознанной префектуры.
const UnknownPrefecture = "不明"

// Prefectures — 47 префектур Японии. Порядок важен: поиск берёт первое совпадение.
var Prefectures = []string{
	"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県",
	"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県",
	"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県",
	"静岡県", "愛知県", "三重県", "滋賀県", "京都府", "大阪府", "兵庫県",
	"奈良県", "和歌山県", "鳥取県", "島根県", "岡山県", "広島県", "山口県",
	"徳島県", "香川県", "愛媛県", "高知県", "福岡県", "佐賀県", "長崎県",
	"熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県",
}

var (
	// Город, район, посёлок или деревня: последовательность символов, заканчивающаяся суффиксом.
	cityPattern = regexp.MustCompile(`([^都道府県]*?[市区町村])`)
	// Уездные посёлки: 〇〇郡〇〇町.
	districtPattern = regexp.MustCompile(`([^都道府県]*?郡[^市区町村]*?[町村])`)
	// Город сразу после суффикса префектуры.
	addressCityPattern = regexp.MustCompile(`^([^市区町村]+?[市区町村])`)
)

// ExtractPrefecture возвращает первую префектуру из списка, содержащуюся в адресе.
// Для нераспознанного адреса возвращает UnknownPrefecture.
func ExtractPrefecture(address string) string {
	for _, pref := range Prefectures {
		if strings.Contains(address, pref) {
			return pref
		}
	}
	return UnknownPrefecture
}

// ExtractCity извлекает токен города для группировки адресов.
// Пустая строка, если суффикс не найден.
func ExtractCity(address string) string {
	for _, pattern := range []*regexp.Regexp{cityPattern, districtPattern} {
		if m := pattern.FindStringSubmatch(address); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// RegionKey — ключ группы «префектура[ город]».
func RegionKey(prefecture, city string) string {
	if city == "" {
		return prefecture
	}
	return prefecture + " " + city
}

// CityFromAddress выделяет город, идущий сразу за префектурой:
// "神奈川県横浜市神奈川区..." -> "横浜市".
func CityFromAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	rest := address
	if pref := ExtractPrefecture(address); pref != UnknownPrefecture {
		idx := strings.Index(address, pref)
		rest = address[idx+len(pref):]
	}

	if m := addressCityPattern.FindStringSubmatch(rest); len(m) > 1 {
		return m[1]
	}
	return ""
}

// NormalizePrefecture дополняет короткое название префектуры суффиксом: "東京" -> "東京都".
// Неизвестные названия возвращаются как есть.
func NormalizePrefecture(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, pref := range Prefectures {
		if name == pref {
			return pref
		}
	}
	for _, pref := range Prefectures {
		if pref == "北海道" {
			continue
		}
		runes := []rune(pref)
		if name == string(runes[:len(runes)-1]) {
			return pref
		}
	}
	return name
}

// NormalizeStation убирает завершающий "駅": "渋谷駅" -> "渋谷".
func NormalizeStation(station string) string {
	return strings.TrimSuffix(strings.TrimSpace(station), "駅")
}

// FindPrefecture ищет префектуру в свободном тексте: сначала полное название,
// затем короткое ("東京で" -> "東京都"). Пустая строка, если ничего не найдено.
func FindPrefecture(text string) string {
	for _, pref := range Prefectures {
		if strings.Contains(text, pref) {
			return pref
		}
	}
	for _, pref := range Prefectures {
		runes := []rune(pref)
		if pref == "北海道" || len(runes) < 3 {
			continue
		}
		if strings.Contains(text, string(runes[:len(runes)-1])) {
			return pref
		}
	}
	return ""
}
