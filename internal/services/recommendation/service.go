package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"sumai_assistant/internal/config"
	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/sl"
	"sumai_assistant/internal/services/disambiguation"
	"sumai_assistant/internal/services/normalizer"
)

var (
	// ErrLookup — база объявлений недоступна или вернула ошибку.
	ErrLookup = errors.New("property lookup failed")
	// ErrInvalidReference — в эталонном объявлении нечего сравнивать.
	ErrInvalidReference = errors.New("reference listing has no comparable fields")
)

const (
	// AddressSampleLimit — сколько адресов берётся для проверки неоднозначности термина.
	AddressSampleLimit = 200
	// MaxLocationCandidates — сколько вариантов местоположения запрашивается у базы.
	MaxLocationCandidates = 20
)

// ListingRepository — источник объявлений.
type ListingRepository interface {
	Search(ctx context.Context, reqs domain.RequirementSet, limit int) ([]normalizer.RawRecord, error)
	Addresses(ctx context.Context, term string, limit int) ([]string, error)
	LocationCandidates(ctx context.Context, station string, limit int) ([]domain.LocationCandidate, error)
}

type Ranker interface {
	Rank(ctx context.Context, candidates []domain.Property, target domain.Target, limit int) []domain.ScoredProperty
}

type AmbiguityResolver interface {
	Analyze(ctx context.Context, searchTerm string, addresses []string) domain.AmbiguityVerdict
}

// Archive сохраняет загруженные эталоны. Ошибки не влияют на поиск.
type Archive interface {
	Store(ctx context.Context, raw map[string]any) (string, error)
}

type Service struct {
	log      *slog.Logger
	repo     ListingRepository
	ranker   Ranker
	resolver AmbiguityResolver
	archive  Archive
	cfg      config.RankingConfig

	// listings — цены базы в иенах, input — пользовательский ввод в 万円
	listings *normalizer.Normalizer
	input    *normalizer.Normalizer
}

func New(
	log *slog.Logger,
	repo ListingRepository,
	ranker Ranker,
	resolver AmbiguityResolver,
	archive Archive,
	cfg config.RankingConfig,
) *Service {
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 100
	}
	return &Service{
		log:      log,
		repo:     repo,
		ranker:   ranker,
		resolver: resolver,
		archive:  archive,
		cfg:      cfg,
		listings: normalizer.New(normalizer.PriceUnitYen),
		input:    normalizer.Default(),
	}
}

// NormalizeLimit приводит запрошенное число рекомендаций к допустимому.
func (s *Service) NormalizeLimit(limit int) int {
	return domain.NormalizeLimit(limit, s.cfg.DefaultLimit, s.cfg.MaxLimit)
}

// FindMatching ранжирует объявления по критериям пользователя.
// Пустой список кандидатов даёт пустой результат без ошибки.
func (s *Service) FindMatching(ctx context.Context, reqs domain.RequirementSet, limit int) ([]domain.ScoredProperty, error) {
	const op = "recommendation.Service.FindMatching"

	log := s.log.With(slog.String("op", op))
	limit = s.NormalizeLimit(limit)

	candidates, err := s.lookup(ctx, reqs)
	if err != nil {
		log.Error("failed to lookup listings", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) == 0 {
		log.Info("no listings match requirements")
		return []domain.ScoredProperty{}, nil
	}

	result := s.ranker.Rank(ctx, candidates, domain.CriteriaTarget(reqs), limit)

	log.Info("recommendations ranked",
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(result)),
	)
	return result, nil
}

// SimilarResult — эталон после нормализации и похожие на него объявления.
type SimilarResult struct {
	Reference       domain.Property
	Recommendations []domain.ScoredProperty
	// ArchiveKey — ключ сохранённого эталона, пустой если архив выключен или недоступен
	ArchiveKey string
}

// FindSimilar ищет объявления, похожие на загруженный эталон.
func (s *Service) FindSimilar(ctx context.Context, raw normalizer.RawRecord, limit int) (*SimilarResult, error) {
	const op = "recommendation.Service.FindSimilar"

	log := s.log.With(slog.String("op", op))
	limit = s.NormalizeLimit(limit)

	ref := s.input.Property(raw)
	if !isComparable(ref) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidReference)
	}

	result := &SimilarResult{Reference: ref, Recommendations: []domain.ScoredProperty{}}
	result.ArchiveKey = s.archiveReference(ctx, log, raw)

	candidates, err := s.lookup(ctx, SimilarCriteria(ref))
	if err != nil {
		log.Error("failed to lookup listings", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// сам эталон не рекомендуется
	if ref.URL != "" {
		candidates = lo.Reject(candidates, func(p domain.Property, _ int) bool {
			return p.URL == ref.URL
		})
	}
	if len(candidates) == 0 {
		log.Info("no similar listings found")
		return result, nil
	}

	result.Recommendations = s.ranker.Rank(ctx, candidates, domain.ReferenceTarget(ref), limit)
	return result, nil
}

// SimilarCriteria — критерии поиска кандидатов для эталона: место и цена ±PriceTolerance.
func SimilarCriteria(ref domain.Property) domain.RequirementSet {
	reqs := domain.RequirementSet{
		Prefecture: ref.Prefecture,
		City:       ref.City,
	}
	if ref.Price != nil && *ref.Price > 0 {
		reqs.PriceMin = domain.Ptr(*ref.Price * (1 - domain.PriceTolerance))
		reqs.PriceMax = domain.Ptr(*ref.Price * (1 + domain.PriceTolerance))
	}
	return reqs
}

func isComparable(p domain.Property) bool {
	return p.Address != "" || p.Prefecture != "" || p.City != "" ||
		p.StationName != "" || p.Price != nil || p.Layout != ""
}

func (s *Service) archiveReference(ctx context.Context, log *slog.Logger, raw normalizer.RawRecord) string {
	if s.archive == nil {
		return ""
	}
	key, err := s.archive.Store(ctx, raw)
	if err != nil {
		log.Warn("failed to archive reference listing", sl.Err(err))
		return ""
	}
	return key
}

// CheckLocationAmbiguity проверяет, не слишком ли размыт термин для найденных адресов.
func (s *Service) CheckLocationAmbiguity(ctx context.Context, term string, addresses []string) domain.AmbiguityVerdict {
	return s.resolver.Analyze(ctx, term, addresses)
}

// ResolveArea находит адреса по термину в базе и проверяет их на неоднозначность.
func (s *Service) ResolveArea(ctx context.Context, term string) (domain.AmbiguityVerdict, error) {
	const op = "recommendation.Service.ResolveArea"

	term = strings.TrimSpace(term)
	if term == "" {
		return domain.Proceed(), nil
	}

	addresses, err := s.repo.Addresses(ctx, term, AddressSampleLimit)
	if err != nil {
		return domain.AmbiguityVerdict{}, fmt.Errorf("%s: %w: %w", op, ErrLookup, err)
	}

	return s.resolver.Analyze(ctx, term, addresses), nil
}

// StationCandidates — варианты местоположения для названия станции без повторов.
func (s *Service) StationCandidates(ctx context.Context, station string) ([]domain.LocationCandidate, error) {
	const op = "recommendation.Service.StationCandidates"

	candidates, err := s.repo.LocationCandidates(ctx, station, MaxLocationCandidates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLookup, err)
	}
	return disambiguation.DedupCandidates(candidates), nil
}

// lookup запрашивает объявления, нормализует и убирает повторы по URL.
func (s *Service) lookup(ctx context.Context, reqs domain.RequirementSet) ([]domain.Property, error) {
	raws, err := s.repo.Search(ctx, reqs, s.cfg.CandidatePool)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	props := lo.Map(raws, func(raw normalizer.RawRecord, _ int) domain.Property {
		return s.listings.Property(raw)
	})
	return DedupByURL(props), nil
}

// DedupByURL оставляет первое объявление с каждым URL. Объявления без URL не схлопываются.
func DedupByURL(props []domain.Property) []domain.Property {
	seen := make(map[string]struct{}, len(props))
	out := make([]domain.Property, 0, len(props))
	for _, p := range props {
		if p.URL != "" {
			if _, dup := seen[p.URL]; dup {
				continue
			}
			seen[p.URL] = struct{}{}
		}
		out = append(out, p)
	}
	return out
}
