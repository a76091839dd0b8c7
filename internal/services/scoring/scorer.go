package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"sumai_assistant/internal/domain"
)

var (
	// ErrInvalidCandidate — объект нельзя оценить целиком (нет ни адреса, ни URL, либо итог не конечен).
	ErrInvalidCandidate = errors.New("invalid candidate")
	// ErrZeroBound — граница критерия равна нулю, относительное превышение не определено.
	ErrZeroBound = errors.New("zero bound")
	// ErrAxisPanic — вычисление оси завершилось паникой.
	ErrAxisPanic = errors.New("axis computation panicked")
)

type axisFunc func(candidate domain.Property, target domain.Target) (domain.Similarity, error)

// Scorer считает сходство объекта с критериями или эталоном по семи осям.
// Не хранит состояния между вызовами.
type Scorer struct {
	log  *slog.Logger
	axes map[domain.Axis]axisFunc
}

// NewScorer создаёт скорер с фиксированным набором осей.
func NewScorer(log *slog.Logger) *Scorer {
	return &Scorer{
		log: log,
		axes: map[domain.Axis]axisFunc{
			domain.AxisLocation:    locationSimilarity,
			domain.AxisPrice:       priceSimilarity,
			domain.AxisLayout:      layoutSimilarity,
			domain.AxisArea:        areaSimilarity,
			domain.AxisAge:         ageSimilarity,
			domain.AxisWalkTime:    walkTimeSimilarity,
			domain.AxisCommuteTime: commuteSimilarity,
		},
	}
}

// Score оценивает кандидата. Ошибка оси превращается в нейтральное значение SimilarityFailed;
// ошибка возвращается только когда кандидат непригоден целиком.
func (s *Scorer) Score(candidate domain.Property, target domain.Target) (domain.ScoredProperty, error) {
	const op = "scoring.Scorer.Score"

	if !candidate.IsIdentifiable() {
		return domain.ScoredProperty{}, fmt.Errorf("%s: %w: no address and no url", op, ErrInvalidCandidate)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("mode", string(target.Mode())),
		slog.String("url", candidate.URL),
	)

	scores := make(map[domain.Axis]domain.Similarity, len(domain.Axes))
	total := 0.0

	for _, axis := range domain.Axes {
		sim := s.scoreAxis(axis, candidate, target)
		if sim.Kind == domain.SimilarityFailed {
			log.Debug("axis computation failed",
				slog.String("axis", string(axis)),
				slog.String("error", sim.Err.Error()),
			)
		}
		scores[axis] = sim
		total += sim.Value() * axis.Weight()
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return domain.ScoredProperty{}, fmt.Errorf("%s: %w: non-finite total", op, ErrInvalidCandidate)
	}

	return domain.ScoredProperty{
		Property:   candidate,
		Scores:     scores,
		TotalScore: total,
	}, nil
}

func (s *Scorer) scoreAxis(axis domain.Axis, candidate domain.Property, target domain.Target) (sim domain.Similarity) {
	defer func() {
		if r := recover(); r != nil {
			sim = domain.Failed(fmt.Errorf("%s: %w: %v", axis, ErrAxisPanic, r))
		}
	}()

	fn, ok := s.axes[axis]
	if !ok {
		return domain.Unset()
	}

	sim, err := fn(candidate, target)
	if err != nil {
		return domain.Failed(fmt.Errorf("%s: %w", axis, err))
	}
	return sim
}
