package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/text/width"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/sl"
	"sumai_assistant/internal/services/clarification"
	"sumai_assistant/internal/services/disambiguation"
	"sumai_assistant/internal/services/extraction"
	"sumai_assistant/internal/services/normalizer"
)

var ErrEmptyMessage = errors.New("message is empty")

const (
	noResultsMessage = "申し訳ございません。ご希望の条件に合う物件が見つかりませんでした。\n" +
		"予算や間取りなどの条件を少し緩めて、もう一度お試しください。"
	askMoreMessage     = "より良い物件をご提案するために、いくつか教えてください。"
	askLocationMessage = "ご希望の地域をもう少し詳しく（都道府県・市区町村・駅名など）教えてください。"
)

// Recommender — поиск и проверка местоположения.
type Recommender interface {
	FindMatching(ctx context.Context, reqs domain.RequirementSet, limit int) ([]domain.ScoredProperty, error)
	ResolveArea(ctx context.Context, term string) (domain.AmbiguityVerdict, error)
	StationCandidates(ctx context.Context, station string) ([]domain.LocationCandidate, error)
}

type SessionStore interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
}

// Reply — ответ ассистента на одно сообщение.
type Reply struct {
	SessionID         uuid.UUID                  `json:"session_id"`
	Message           string                     `json:"message"`
	Requirements      domain.RequirementSet      `json:"requirements"`
	LocationConfirmed bool                       `json:"location_confirmed"`
	ReadyForSearch    bool                       `json:"ready_for_search"`
	Clarification     *clarification.Result      `json:"clarification,omitempty"`
	LocationOptions   []domain.LocationCandidate `json:"location_options,omitempty"`
	Recommendations   []domain.ScoredProperty    `json:"recommendations"`
}

type Service struct {
	log         *slog.Logger
	sessions    SessionStore
	recommender Recommender
	agent       *clarification.Agent
	input       *normalizer.Normalizer
	now         func() time.Time
}

func New(log *slog.Logger, sessions SessionStore, recommender Recommender, agent *clarification.Agent) *Service {
	return &Service{
		log:         log,
		sessions:    sessions,
		recommender: recommender,
		agent:       agent,
		input:       normalizer.Default(),
		now:         time.Now,
	}
}

// HandleMessage обрабатывает сообщение пользователя в сессии sessionID.
// uuid.Nil создаёт новую сессию.
func (s *Service) HandleMessage(ctx context.Context, sessionID uuid.UUID, message string, limit int) (*Reply, error) {
	const op = "conversation.Service.HandleMessage"

	log := s.log.With(slog.String("op", op))

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("session_id", sess.ID.String()))

	sess.Append(domain.RoleUser, message, s.now())

	reply, err := s.respond(ctx, log, sess, message, limit)
	if err != nil {
		log.Error("failed to respond", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess.ReadyForSearch = reply.ReadyForSearch
	sess.Append(domain.RoleAssistant, reply.Message, s.now())
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reply.SessionID = sess.ID
	reply.Requirements = sess.Requirements
	reply.LocationConfirmed = sess.LocationConfirmed
	return reply, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if id == uuid.Nil {
		return s.sessions.Create(ctx)
	}
	return s.sessions.Get(ctx, id)
}

func (s *Service) respond(ctx context.Context, log *slog.Logger, sess *domain.Session, message string, limit int) (*Reply, error) {
	var preface string

	// ответ на вопрос о выборе места
	if pending := sess.PendingLocations; len(pending) > 0 {
		sess.PendingLocations = nil
		if c, ok := SelectCandidate(pending, message); ok {
			applyCandidate(sess, c)
			preface = disambiguation.ConfirmationMessage(c)
			log.Info("location selected", slog.String("location", c.DisplayName()))
		}
	}

	extracted := extraction.Requirements(message)
	update := s.input.Requirements(extracted)
	sess.Requirements = sess.Requirements.Merge(update)

	if preface == "" {
		if term := extraction.LocationTerm(extracted); term != "" {
			reply, confirmation := s.checkLocation(ctx, log, sess, update, term)
			if reply != nil {
				return reply, nil
			}
			preface = confirmation
		}
	}

	result := s.agent.Analyze(sess.Requirements, sess.LocationConfirmed)
	if !result.ReadyForSearch {
		lead := preface
		switch {
		case lead != "":
		case sess.Requirements.HasLocation() && !sess.LocationConfirmed:
			lead = askLocationMessage
		default:
			lead = askMoreMessage
		}
		return &Reply{
			Message:         joinMessage(lead, result.Summary()),
			Clarification:   result,
			Recommendations: []domain.ScoredProperty{},
		}, nil
	}

	recs, err := s.recommender.FindMatching(ctx, sess.Requirements, limit)
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		ReadyForSearch:  true,
		Recommendations: recs,
	}
	if result.NeedsClarification {
		reply.Clarification = result
	}
	if len(recs) == 0 {
		reply.Message = noResultsMessage
	} else {
		reply.Message = FormatRecommendations(recs)
	}
	return reply, nil
}

// checkLocation проверяет новый топоним. Возвращает готовый ответ, если нужно уточнение,
// иначе текст подтверждения (может быть пустым).
func (s *Service) checkLocation(
	ctx context.Context,
	log *slog.Logger,
	sess *domain.Session,
	update domain.RequirementSet,
	term string,
) (*Reply, string) {
	if update.Station != "" {
		candidates, err := s.recommender.StationCandidates(ctx, update.Station)
		switch {
		case err != nil:
			log.Warn("failed to lookup station candidates", sl.Err(err))
		case disambiguation.HasCandidateAmbiguity(candidates):
			listed := candidates[:min(len(candidates), disambiguation.MaxListedCandidates)]
			sess.PendingLocations = listed
			sess.LocationConfirmed = false
			return &Reply{
				Message:         disambiguation.CandidateClarification(candidates, update.Station),
				LocationOptions: listed,
				Recommendations: []domain.ScoredProperty{},
			}, ""
		case len(candidates) == 1:
			applyCandidate(sess, candidates[0])
			return nil, disambiguation.ConfirmationMessage(candidates[0])
		case len(candidates) > 1:
			sess.LocationConfirmed = true
			return nil, ""
		}
	}

	verdict, err := s.recommender.ResolveArea(ctx, term)
	if err != nil {
		// без базы адресов не блокируем диалог
		log.Warn("failed to resolve area", slog.String("term", term), sl.Err(err))
		sess.LocationConfirmed = true
		return nil, ""
	}
	if verdict.NeedsClarification {
		sess.LocationConfirmed = false
		return &Reply{
			Message:         verdict.Message,
			Recommendations: []domain.ScoredProperty{},
		}, ""
	}

	sess.LocationConfirmed = true
	return nil, ""
}

func applyCandidate(sess *domain.Session, c domain.LocationCandidate) {
	sess.Requirements = sess.Requirements.Merge(domain.RequirementSet{
		Prefecture: c.Prefecture,
		City:       c.City,
		Station:    c.Station,
	})
	sess.LocationConfirmed = true
}

// SelectCandidate распознаёт выбор варианта: номер из списка или название города/станции.
func SelectCandidate(candidates []domain.LocationCandidate, message string) (domain.LocationCandidate, bool) {
	text := strings.TrimSpace(width.Fold.String(message))
	text = strings.TrimSuffix(strings.TrimSuffix(text, "番"), ".")

	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(candidates) {
			return candidates[n-1], true
		}
		return domain.LocationCandidate{}, false
	}

	var found []domain.LocationCandidate
	for _, c := range candidates {
		if matchesCandidate(c, text) {
			found = append(found, c)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return domain.LocationCandidate{}, false
}

func matchesCandidate(c domain.LocationCandidate, text string) bool {
	if c.Prefecture != "" && strings.Contains(text, c.Prefecture) {
		return true
	}
	return c.City != "" && strings.Contains(text, c.City)
}

// FormatRecommendations — нумерованный список рекомендаций для чата.
func FormatRecommendations(recs []domain.ScoredProperty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ご希望の条件に合う物件を%d件ご紹介します。\n", len(recs))

	for i, r := range recs {
		p := r.Property
		fmt.Fprintf(&b, "\n%d. %s", i+1, lo.CoalesceOrEmpty(p.Address, p.Prefecture+p.City))
		if p.Price != nil {
			fmt.Fprintf(&b, " / %s万円", strconv.FormatFloat(*p.Price, 'f', -1, 64))
		}
		if p.Layout != "" {
			b.WriteString(" / " + p.Layout)
		}
		if p.StationName != "" {
			fmt.Fprintf(&b, " / %s駅", p.StationName)
			if p.HasKnownWalkTime() {
				fmt.Fprintf(&b, " 徒歩%d分", p.WalkTime)
			}
		}
		if r.Explanation != "" {
			fmt.Fprintf(&b, "\n   %s", r.Explanation)
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "\n   %s", p.URL)
		}
	}
	return b.String()
}

func joinMessage(parts ...string) string {
	return strings.Join(lo.Compact(parts), "\n\n")
}
