package ranking

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/sl"
)

// CandidateScorer — оценка одного кандидата.
type CandidateScorer interface {
	Score(candidate domain.Property, target domain.Target) (domain.ScoredProperty, error)
}

// Ranker оценивает пачку кандидатов, сортирует и подписывает причины выбора.
type Ranker struct {
	log    *slog.Logger
	scorer CandidateScorer
}

func New(log *slog.Logger, scorer CandidateScorer) *Ranker {
	return &Ranker{
		log:    log,
		scorer: scorer,
	}
}

// Rank возвращает не более limit лучших кандидатов по убыванию итогового балла.
// При равных баллах сохраняется исходный порядок. Кандидаты, которые не удалось оценить,
// пропускаются.
func (r *Ranker) Rank(ctx context.Context, candidates []domain.Property, target domain.Target, limit int) []domain.ScoredProperty {
	const op = "ranking.Ranker.Rank"

	log := r.log.With(
		slog.String("op", op),
		slog.String("mode", string(target.Mode())),
	)

	if limit <= 0 || len(candidates) == 0 {
		return []domain.ScoredProperty{}
	}

	scored := make([]domain.ScoredProperty, 0, len(candidates))
	skipped := 0
	for i, candidate := range candidates {
		result, err := r.scoreOne(candidate, target)
		if err != nil {
			skipped++
			log.WarnContext(ctx, "candidate skipped",
				slog.Int("index", i),
				slog.String("url", candidate.URL),
				sl.Err(err),
			)
			continue
		}
		scored = append(scored, result)
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredProperty) int {
		return cmp.Compare(b.TotalScore, a.TotalScore)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	for i := range scored {
		scored[i].MatchedAxes, scored[i].Explanation = Explain(scored[i], target.Mode())
	}

	log.DebugContext(ctx, "candidates ranked",
		slog.Int("candidates", len(candidates)),
		slog.Int("skipped", skipped),
		slog.Int("returned", len(scored)),
	)

	return scored
}

func (r *Ranker) scoreOne(candidate domain.Property, target domain.Target) (result domain.ScoredProperty, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scoring panicked: %v", rec)
		}
	}()
	return r.scorer.Score(candidate, target)
}
