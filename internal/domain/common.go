package domain

const (
	// DefaultRecommendationLimit кол-во рекомендаций по умолчанию
	DefaultRecommendationLimit = 3
	// MaxRecommendationLimit максимальное кол-во рекомендаций в ответе
	MaxRecommendationLimit = 20
	// PriceTolerance — допуск по цене при поиске похожих объектов (±20%)
	PriceTolerance = 0.2
)

// NormalizeLimit нормализует запрошенное кол-во рекомендаций.
// defaultLimit и maxLimit <= 0 заменяются значениями пакета.
func NormalizeLimit(limit, defaultLimit, maxLimit int) int {
	if defaultLimit <= 0 {
		defaultLimit = DefaultRecommendationLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxRecommendationLimit
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, maxLimit)
}

// Ptr возвращает указатель на копию значения.
func Ptr[T any](v T) *T {
	return &v
}
