package disambiguation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/sl"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	// DistanceCheckMinAddresses — с этого кол-ва адресов проверяется разброс расстояний.
	DistanceCheckMinAddresses = 5
	// DistanceSampleSize — сколько первых адресов участвуют в попарной проверке.
	DistanceSampleSize = 10
	// FarDistanceKm — пара дальше этого расстояния считается удалённой.
	FarDistanceKm = 10.0
	// FarPairsThreshold — столько удалённых пар делают выдачу слишком широкой.
	FarPairsThreshold = 2
	// MaxSuggestedRegions — максимум регионов в предложении сузить поиск.
	MaxSuggestedRegions = 5

	// Категориальная оценка расстояния, км.
	distanceOtherPrefecture = 50.0
	distanceOtherCity       = 20.0
	distanceSameCity        = 5.0

	defaultLookupTimeout = 2 * time.Second
	lookupConcurrency    = 4
)

// DistanceLookup — внешний источник расстояний между адресами (км).
type DistanceLookup interface {
	Distance(ctx context.Context, from, to string) (float64, error)
}

// Resolver решает, достаточно ли однозначен поисковый термин по найденным адресам.
// Не хранит состояния между вызовами.
type Resolver struct {
	log           *slog.Logger
	distances     DistanceLookup
	lookupTimeout time.Duration
}

// NewResolver создаёт резолвер. distances может быть nil: тогда используется только
// категориальная оценка.
func NewResolver(log *slog.Logger, distances DistanceLookup, lookupTimeout time.Duration) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &Resolver{
		log:           log,
		distances:     distances,
		lookupTimeout: lookupTimeout,
	}
}

// Analyze возвращает вердикт по поисковому термину и найденным адресам.
// Ошибки внешнего источника расстояний не пробрасываются.
func (r *Resolver) Analyze(ctx context.Context, searchTerm string, addresses []string) domain.AmbiguityVerdict {
	const op = "disambiguation.Resolver.Analyze"

	log := r.log.With(
		slog.String("op", op),
		slog.String("search_term", searchTerm),
	)

	if len(addresses) == 0 {
		return domain.Proceed()
	}

	groups := GroupAddresses(addresses)

	prefectures := lo.Uniq(lo.Map(groups, func(g domain.AddressGroup, _ int) string {
		return g.Prefecture
	}))
	if len(prefectures) > 1 {
		log.DebugContext(ctx, "search term spans several prefectures", slog.Int("prefectures", len(prefectures)))
		return multiplePrefecturesVerdict(searchTerm, groups)
	}

	if len(addresses) < DistanceCheckMinAddresses {
		return domain.Proceed()
	}

	sample := addresses[:min(len(addresses), DistanceSampleSize)]
	far := r.countFarPairs(ctx, log, sample)
	if far >= FarPairsThreshold {
		log.DebugContext(ctx, "search term covers a wide area", slog.Int("far_pairs", far))
		return wideAreaVerdict(searchTerm, groups)
	}

	return domain.Proceed()
}

// GroupAddresses группирует адреса по ключу «префектура[ город]» в порядке первого появления.
func GroupAddresses(addresses []string) []domain.AddressGroup {
	groups := make([]domain.AddressGroup, 0)
	index := make(map[string]int)

	for _, address := range addresses {
		pref := domain.ExtractPrefecture(address)
		city := domain.ExtractCity(address)
		key := domain.RegionKey(pref, city)

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, domain.AddressGroup{
				Key:        key,
				Prefecture: pref,
				City:       city,
			})
		}
		groups[i].Addresses = append(groups[i].Addresses, address)
	}

	return groups
}

// EstimateDistance — грубая оценка расстояния по совпадению префектуры и города.
func EstimateDistance(a, b string) float64 {
	switch {
	case domain.ExtractPrefecture(a) != domain.ExtractPrefecture(b):
		return distanceOtherPrefecture
	case domain.ExtractCity(a) != domain.ExtractCity(b):
		return distanceOtherCity
	default:
		return distanceSameCity
	}
}

type addressPair struct {
	from, to string
}

func (r *Resolver) countFarPairs(ctx context.Context, log *slog.Logger, sample []string) int {
	pairs := make([]addressPair, 0, len(sample)*(len(sample)-1)/2)
	for i := range sample {
		for j := i + 1; j < len(sample); j++ {
			pairs = append(pairs, addressPair{from: sample[i], to: sample[j]})
		}
	}

	distances := make([]float64, len(pairs))

	if r.distances == nil {
		for i, p := range pairs {
			distances[i] = EstimateDistance(p.from, p.to)
		}
	} else {
		// Весь шаг ограничен тем же таймаутом, что и один запрос: после него пары
		// оцениваются категориально без обращения к источнику.
		budgetCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()

		var estimated atomic.Int32
		g, gctx := errgroup.WithContext(budgetCtx)
		g.SetLimit(lookupConcurrency)
		for i, p := range pairs {
			i, p := i, p
			g.Go(func() error {
				if gctx.Err() != nil {
					estimated.Add(1)
					distances[i] = EstimateDistance(p.from, p.to)
					return nil
				}
				distances[i] = r.distance(gctx, log, p)
				return nil
			})
		}
		_ = g.Wait()

		if n := estimated.Load(); n > 0 {
			log.WarnContext(ctx, "distance lookup budget exhausted, remaining pairs estimated",
				slog.Int("estimated_pairs", int(n)),
				slog.Int("total_pairs", len(pairs)),
			)
		}
	}

	return lo.CountBy(distances, func(d float64) bool {
		return d > FarDistanceKm
	})
}

type lookupResult struct {
	km  float64
	err error
}

// distance запрашивает внешний источник с жёстким таймаутом и откатывается к оценке.
// Ответ, пришедший после таймаута, отбрасывается.
func (r *Resolver) distance(ctx context.Context, log *slog.Logger, p addressPair) float64 {
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- lookupResult{err: fmt.Errorf("distance lookup panicked: %v", rec)}
			}
		}()
		km, err := r.distances.Distance(lookupCtx, p.from, p.to)
		done <- lookupResult{km: km, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-lookupCtx.Done():
		res.err = lookupCtx.Err()
	}

	if res.err == nil && (res.km < 0 || math.IsNaN(res.km) || math.IsInf(res.km, 0)) {
		res.err = fmt.Errorf("invalid distance %v", res.km)
	}
	if res.err != nil {
		log.WarnContext(ctx, "distance lookup failed, using estimate",
			slog.String("from", p.from),
			slog.String("to", p.to),
			sl.Err(res.err),
		)
		return EstimateDistance(p.from, p.to)
	}
	return res.km
}

func multiplePrefecturesVerdict(searchTerm string, groups []domain.AddressGroup) domain.AmbiguityVerdict {
	var b strings.Builder
	fmt.Fprintf(&b, "「%s」で複数の地域が見つかりました。より具体的な地域を教えてください。\n\n候補地域：\n", searchTerm)
	writeGroups(&b, groups)

	return domain.AmbiguityVerdict{
		NeedsClarification: true,
		Message:            b.String(),
		SuggestedRegions:   groupKeys(groups),
	}
}

func wideAreaVerdict(searchTerm string, groups []domain.AddressGroup) domain.AmbiguityVerdict {
	top := slices.Clone(groups)
	slices.SortStableFunc(top, func(a, b domain.AddressGroup) int {
		return cmp.Compare(b.Count(), a.Count())
	})
	top = top[:min(len(top), MaxSuggestedRegions)]

	var b strings.Builder
	fmt.Fprintf(&b, "「%s」で広範囲の物件が見つかりました（10km以上離れた物件が含まれています）。\n\nより具体的な地域名を教えてください：\n", searchTerm)
	writeGroups(&b, top)

	return domain.AmbiguityVerdict{
		NeedsClarification: true,
		Message:            b.String(),
		SuggestedRegions:   groupKeys(top),
	}
}

func writeGroups(b *strings.Builder, groups []domain.AddressGroup) {
	lines := lo.Map(groups, func(g domain.AddressGroup, _ int) string {
		return fmt.Sprintf("• %s（%d件）", g.Key, g.Count())
	})
	b.WriteString(strings.Join(lines, "\n"))
}

func groupKeys(groups []domain.AddressGroup) []string {
	return lo.Map(groups, func(g domain.AddressGroup, _ int) string {
		return g.Key
	})
}
