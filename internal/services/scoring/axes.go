package scoring

import (
	"fmt"
	"strings"

	"sumai_assistant/internal/domain"
)

// Допуски режима reference.
const (
	referencePriceTolerance = 0.10
	referenceAreaTolerance  = 0.20
	referenceAgeTolerance   = 5
	referenceAgeSpan        = 30.0
	referenceWalkTolerance  = 3
	referenceWalkSpan       = 15.0

	// Превышение максимальной площади штрафуется вдвое мягче.
	areaOversizeFactor = 0.5
	// Штраф за каждую недостающую комнату при требовании "N+".
	missingRoomPenalty = 0.3
	// Совпадение места работы с городом объекта (грубое приближение без маршрутов).
	commuteMatch    = 1.0
	commuteMismatch = 0.3
)

func unknownMode(t domain.Target) error {
	return fmt.Errorf("unknown target mode %q", t.Mode())
}

// locationSimilarity — сумма совпадений. Объект без местоположения ничему не совпадает и получает 0.
func locationSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		if !reqs.HasLocation() {
			return domain.Unset(), nil
		}
		score := 0.0
		if reqs.Prefecture != "" && c.Prefecture == reqs.Prefecture {
			score += 0.4
		}
		if reqs.City != "" && c.City == reqs.City {
			score += 0.4
		}
		switch {
		case reqs.Station == "":
		case c.StationName == reqs.Station:
			score += 0.8
		case strings.Contains(c.StationName, reqs.Station):
			score += 0.6
		}
		return domain.Computed(score), nil
	}

	if ref, ok := t.Reference(); ok {
		score := 0.0
		if ref.Prefecture != "" && c.Prefecture == ref.Prefecture {
			score += 0.5
		}
		if ref.City != "" && c.City == ref.City {
			score += 0.5
		}
		return domain.Computed(score), nil
	}

	return domain.Similarity{}, unknownMode(t)
}

func priceSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		return boundedSimilarity(c.Price, reqs.PriceMin, reqs.PriceMax, 1)
	}

	if ref, ok := t.Reference(); ok {
		return toleranceSimilarity(c.Price, ref.Price, referencePriceTolerance)
	}

	return domain.Similarity{}, unknownMode(t)
}

func areaSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		return boundedSimilarity(c.Area, reqs.AreaMin, reqs.AreaMax, areaOversizeFactor)
	}

	if ref, ok := t.Reference(); ok {
		return toleranceSimilarity(c.Area, ref.Area, referenceAreaTolerance)
	}

	return domain.Similarity{}, unknownMode(t)
}

// boundedSimilarity — диапазон или одна граница. Выход за границу уменьшает сходство линейно
// от относительного превышения; выход за максимум умножается на aboveFactor.
func boundedSimilarity(value, lower, upper *float64, aboveFactor float64) (domain.Similarity, error) {
	lower = positiveBound(lower)
	upper = positiveBound(upper)

	if lower == nil && upper == nil {
		return domain.Unset(), nil
	}
	if value == nil {
		return domain.Missing(), nil
	}

	v := *value
	switch {
	case lower != nil && v < *lower:
		ratio, err := overshoot(v, *lower)
		if err != nil {
			return domain.Similarity{}, err
		}
		return domain.Computed(linearDecay(ratio, 1)), nil
	case upper != nil && v > *upper:
		ratio, err := overshoot(v, *upper)
		if err != nil {
			return domain.Similarity{}, err
		}
		// В диапазоне с обеими границами штраф за превышение полный.
		factor := aboveFactor
		if lower != nil {
			factor = 1
		}
		return domain.Computed(linearDecay(ratio, factor)), nil
	default:
		return domain.Computed(1), nil
	}
}

// positiveBound — нулевая или отрицательная граница не ограничивает.
func positiveBound(bound *float64) *float64 {
	if bound == nil || *bound <= 0 {
		return nil
	}
	return bound
}

// toleranceSimilarity — симметричный допуск вокруг эталона, дальше линейное убывание.
func toleranceSimilarity(value, reference *float64, tolerance float64) (domain.Similarity, error) {
	if value == nil || reference == nil {
		return domain.Missing(), nil
	}
	ratio, err := overshoot(*value, *reference)
	if err != nil {
		return domain.Similarity{}, err
	}
	if ratio <= tolerance {
		return domain.Computed(1), nil
	}
	return domain.Computed(linearDecay(ratio, 1)), nil
}

// layoutSimilarity — пустая планировка даёт 0 комнат и сравнивается по тем же правилам.
func layoutSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	candidate := strings.ToUpper(strings.TrimSpace(c.Layout))

	if reqs, ok := t.Criteria(); ok {
		required := strings.ToUpper(strings.TrimSpace(reqs.Layout))
		if required == "" {
			return domain.Unset(), nil
		}
		if candidate == required {
			return domain.Computed(1), nil
		}
		if strings.Contains(required, ",") {
			for _, alt := range strings.Split(required, ",") {
				if strings.TrimSpace(alt) == candidate {
					return domain.Computed(1), nil
				}
			}
		}
		if strings.Contains(required, "+") {
			need := roomCount(strings.ReplaceAll(required, "+", ""))
			have := roomCount(candidate)
			if have >= need {
				return domain.Computed(1), nil
			}
			return domain.Computed(linearDecay(float64(need-have), missingRoomPenalty)), nil
		}
		return domain.Computed(roomProximity(required, candidate)), nil
	}

	if ref, ok := t.Reference(); ok {
		reference := strings.ToUpper(strings.TrimSpace(ref.Layout))
		if candidate == reference {
			return domain.Computed(1), nil
		}
		return domain.Computed(roomProximity(reference, candidate)), nil
	}

	return domain.Similarity{}, unknownMode(t)
}

func ageSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		if reqs.AgeMax == nil {
			return domain.Unset(), nil
		}
		if c.Age == nil {
			return domain.Missing(), nil
		}
		return maxBoundSimilarity(*c.Age, *reqs.AgeMax)
	}

	if ref, ok := t.Reference(); ok {
		if c.Age == nil || ref.Age == nil {
			return domain.Missing(), nil
		}
		diff := absDiff(*c.Age, *ref.Age)
		if diff <= referenceAgeTolerance {
			return domain.Computed(1), nil
		}
		return domain.Computed(linearDecay(float64(diff), 1/referenceAgeSpan)), nil
	}

	return domain.Similarity{}, unknownMode(t)
}

func walkTimeSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		if reqs.WalkTimeMax == nil {
			return domain.Unset(), nil
		}
		// Неизвестное время (999) считается неблагоприятным и убывает до нуля.
		return maxBoundSimilarity(c.WalkTime, *reqs.WalkTimeMax)
	}

	if ref, ok := t.Reference(); ok {
		if !c.HasKnownWalkTime() || !ref.HasKnownWalkTime() {
			return domain.Missing(), nil
		}
		diff := absDiff(c.WalkTime, ref.WalkTime)
		if diff <= referenceWalkTolerance {
			return domain.Computed(1), nil
		}
		return domain.Computed(linearDecay(float64(diff), 1/referenceWalkSpan)), nil
	}

	return domain.Similarity{}, unknownMode(t)
}

// maxBoundSimilarity — 1.0 до границы, дальше 1 - превышение/граница.
func maxBoundSimilarity(value, bound int) (domain.Similarity, error) {
	if value <= bound {
		return domain.Computed(1), nil
	}
	ratio, err := overshoot(value, bound)
	if err != nil {
		return domain.Similarity{}, err
	}
	return domain.Computed(linearDecay(ratio, 1)), nil
}

func commuteSimilarity(c domain.Property, t domain.Target) (domain.Similarity, error) {
	if reqs, ok := t.Criteria(); ok {
		if reqs.CommuteLocation == "" || reqs.CommuteTimeMax == nil {
			return domain.Unset(), nil
		}
		if c.City == "" {
			return domain.Missing(), nil
		}
		if strings.Contains(c.City, reqs.CommuteLocation) || strings.Contains(reqs.CommuteLocation, c.City) {
			return domain.Computed(commuteMatch), nil
		}
		return domain.Computed(commuteMismatch), nil
	}

	if _, ok := t.Reference(); ok {
		return domain.Unset(), nil
	}

	return domain.Similarity{}, unknownMode(t)
}
