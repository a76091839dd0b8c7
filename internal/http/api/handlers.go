package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/jsonld"
	"sumai_assistant/internal/lib/logger/sl"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/services/clarification"
	"sumai_assistant/internal/services/conversation"
	"sumai_assistant/internal/services/extraction"
	"sumai_assistant/internal/services/normalizer"
	"sumai_assistant/internal/services/recommendation"
	"sumai_assistant/internal/services/session"
)

// Recommender описывает подбор объектов и проверку местоположения.
type Recommender interface {
	FindMatching(ctx context.Context, reqs domain.RequirementSet, limit int) ([]domain.ScoredProperty, error)
	FindSimilar(ctx context.Context, raw normalizer.RawRecord, limit int) (*recommendation.SimilarResult, error)
	CheckLocationAmbiguity(ctx context.Context, term string, addresses []string) domain.AmbiguityVerdict
	ResolveArea(ctx context.Context, term string) (domain.AmbiguityVerdict, error)
}

type Conversation interface {
	HandleMessage(ctx context.Context, sessionID uuid.UUID, message string, limit int) (*conversation.Reply, error)
}

type SessionStore interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RequirementAnalyzer interface {
	Analyze(reqs domain.RequirementSet, locationConfirmed bool) *clarification.Result
}

type StatsProvider interface {
	GetStats() metrics.Stats
}

// Handler — HTTP-обработчики ассистента.
type Handler struct {
	log          *slog.Logger
	recommender  Recommender
	conversation Conversation
	sessions     SessionStore
	analyzer     RequirementAnalyzer
	stats        StatsProvider
	jsonld       *jsonld.Generator
	input        *normalizer.Normalizer
}

func NewHandler(
	log *slog.Logger,
	recommender Recommender,
	conv Conversation,
	sessions SessionStore,
	analyzer RequirementAnalyzer,
	stats StatsProvider,
) *Handler {
	return &Handler{
		log:          log,
		recommender:  recommender,
		conversation: conv,
		sessions:     sessions,
		analyzer:     analyzer,
		stats:        stats,
		jsonld:       jsonld.NewGenerator(),
		input:        normalizer.Default(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "sumai-assistant"})
}

func (h *Handler) Metrics(w http.ResponseWriter, _ *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusOK, metrics.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}

type recommendationsRequest struct {
	Requirements normalizer.RawRecord `json:"requirements"`
	Limit        int                  `json:"limit"`
}

type RecommendationsResponse struct {
	Requirements    domain.RequirementSet `json:"requirements"`
	Recommendations []ScoredPropertyDTO   `json:"recommendations"`
	Message         string                `json:"message,omitempty"`
}

// Recommendations — POST /api/recommendations. ?format=jsonld отдаёт schema.org ItemList.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.Handler.Recommendations"

	log := h.log.With(slog.String("op", op))

	var req recommendationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if req.Limit == 0 {
		req.Limit = limitParam(r)
	}

	reqs := h.input.Requirements(req.Requirements)
	recs, err := h.recommender.FindMatching(r.Context(), reqs, req.Limit)
	if err != nil {
		log.Error("failed to find recommendations", sl.Err(err))
		h.writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "jsonld" {
		data, err := h.jsonld.GenerateRecommendationsJSONLDBytes(recs)
		if err != nil {
			log.Error("failed to render JSON-LD", sl.Err(err))
			writeError(w, http.StatusInternalServerError, "internal error", "")
			return
		}
		w.Header().Set("Content-Type", "application/ld+json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	resp := RecommendationsResponse{
		Requirements:    reqs,
		Recommendations: scoredListToDTO(recs),
	}
	if len(recs) == 0 {
		resp.Message = noResultsMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

const noResultsMessage = "条件に合う物件が見つかりませんでした。条件を変更してお試しください。"

type similarRequest struct {
	Reference normalizer.RawRecord `json:"reference"`
	// Text — текст объявления, если структурированного эталона нет
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

type SimilarResponse struct {
	Reference       PropertyDTO         `json:"reference"`
	Recommendations []ScoredPropertyDTO `json:"recommendations"`
	ArchiveKey      string              `json:"archive_key,omitempty"`
	Message         string              `json:"message,omitempty"`
}

// Similar — POST /api/recommendations/similar.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	const op = "api.Handler.Similar"

	log := h.log.With(slog.String("op", op))

	var req similarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	raw := req.Reference
	if len(raw) == 0 && strings.TrimSpace(req.Text) != "" {
		raw = extraction.Listing(req.Text)
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "reference or text is required", "")
		return
	}

	if req.Limit == 0 {
		req.Limit = limitParam(r)
	}

	result, err := h.recommender.FindSimilar(r.Context(), raw, req.Limit)
	if err != nil {
		log.Error("failed to find similar listings", sl.Err(err))
		h.writeServiceError(w, err)
		return
	}

	resp := SimilarResponse{
		Reference:       propertyToDTO(result.Reference),
		Recommendations: scoredListToDTO(result.Recommendations),
		ArchiveKey:      result.ArchiveKey,
	}
	if len(result.Recommendations) == 0 {
		resp.Message = noResultsMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Requirements      normalizer.RawRecord `json:"requirements"`
	LocationConfirmed bool                 `json:"location_confirmed"`
}

// AnalyzeRequirements — POST /api/requirements/analyze.
func (h *Handler) AnalyzeRequirements(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.analyzer.Analyze(h.input.Requirements(req.Requirements), req.LocationConfirmed))
}

type ambiguityRequest struct {
	SearchTerm string   `json:"search_term"`
	Addresses  []string `json:"addresses"`
}

// LocationAmbiguity — POST /api/location/ambiguity.
func (h *Handler) LocationAmbiguity(w http.ResponseWriter, r *http.Request) {
	var req ambiguityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if strings.TrimSpace(req.SearchTerm) == "" {
		writeError(w, http.StatusBadRequest, "search_term is required", "")
		return
	}

	writeJSON(w, http.StatusOK, h.recommender.CheckLocationAmbiguity(r.Context(), req.SearchTerm, req.Addresses))
}

// ResolveLocation — GET /api/location/resolve?q=.
func (h *Handler) ResolveLocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.Handler.ResolveLocation"

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "q is required", "")
		return
	}

	verdict, err := h.recommender.ResolveArea(r.Context(), term)
	if err != nil {
		h.log.Error("failed to resolve area", slog.String("op", op), slog.String("term", term), sl.Err(err))
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// CreateSession — POST /api/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		h.log.Error("failed to create session", slog.String("op", "api.Handler.CreateSession"), sl.Err(err))
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GetSession — GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession — DELETE /api/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
}

// SessionMessage — POST /api/sessions/{id}/messages.
func (h *Handler) SessionMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	h.handleMessage(w, r, id, req)
}

// Chat — POST /api/chat. Без session_id начинается новый диалог.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	id := uuid.Nil
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session_id", err.Error())
			return
		}
		id = parsed
	}

	h.handleMessage(w, r, id, req)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request, id uuid.UUID, req messageRequest) {
	reply, err := h.conversation.HandleMessage(r.Context(), id, req.Message, req.Limit)
	if err != nil {
		h.log.Error("failed to handle message", slog.String("op", "api.Handler.handleMessage"), sl.Err(err))
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:         reply.SessionID,
		Message:           reply.Message,
		Requirements:      reply.Requirements,
		LocationConfirmed: reply.LocationConfirmed,
		ReadyForSearch:    reply.ReadyForSearch,
		Clarification:     reply.Clarification,
		LocationOptions:   reply.LocationOptions,
		Recommendations:   scoredListToDTO(reply.Recommendations),
	})
}

// ChatResponse — ответ ассистента с рекомендациями в формате API.
type ChatResponse struct {
	SessionID         uuid.UUID                  `json:"session_id"`
	Message           string                     `json:"message"`
	Requirements      domain.RequirementSet      `json:"requirements"`
	LocationConfirmed bool                       `json:"location_confirmed"`
	ReadyForSearch    bool                       `json:"ready_for_search"`
	Clarification     *clarification.Result      `json:"clarification,omitempty"`
	LocationOptions   []domain.LocationCandidate `json:"location_options,omitempty"`
	Recommendations   []ScoredPropertyDTO        `json:"recommendations"`
}

type answersRequest struct {
	Answers map[string]string `json:"answers"`
}

// SessionAnswers — POST /api/sessions/{id}/answers: ответы на уточняющие вопросы.
func (h *Handler) SessionAnswers(w http.ResponseWriter, r *http.Request) {
	const op = "api.Handler.SessionAnswers"

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req answersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sess.Requirements = clarification.ApplyAnswers(sess.Requirements, req.Answers)
	if loc, ok := req.Answers[clarification.FieldLocation]; ok && strings.TrimSpace(loc) != "" {
		sess.LocationConfirmed = true
		sess.PendingLocations = nil
	}
	sess.ReadyForSearch = clarification.ReadyForSearch(sess.Requirements, sess.LocationConfirmed)

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.log.Error("failed to save session", slog.String("op", op), sl.Err(err))
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Session       *domain.Session       `json:"session"`
		Clarification *clarification.Result `json:"clarification"`
	}{
		Session:       sess,
		Clarification: h.analyzer.Analyze(sess.Requirements, sess.LocationConfirmed),
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError сопоставляет ошибки сервисов со статусами HTTP.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found", "")
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required", "")
	case errors.Is(err, recommendation.ErrInvalidReference):
		writeError(w, http.StatusUnprocessableEntity, "reference listing has no comparable fields", "")
	case errors.Is(err, recommendation.ErrLookup):
		writeError(w, http.StatusServiceUnavailable, "property lookup failed", "")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// limitParam — ?limit=N, 0 если не задан или некорректен.
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
