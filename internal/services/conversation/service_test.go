package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/cache"
	"sumai_assistant/internal/lib/logger/handlers/slogdiscard"
	"sumai_assistant/internal/services/clarification"
	"sumai_assistant/internal/services/session"
)

type fakeRecommender struct {
	recs       []domain.ScoredProperty
	findErr    error
	verdict    domain.AmbiguityVerdict
	resolveErr error
	candidates []domain.LocationCandidate

	lastReqs     domain.RequirementSet
	lastLimit    int
	resolved     []string
	findCalls    int
	stationCalls int
}

func (f *fakeRecommender) FindMatching(_ context.Context, reqs domain.RequirementSet, limit int) ([]domain.ScoredProperty, error) {
	f.findCalls++
	f.lastReqs = reqs
	f.lastLimit = limit
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.recs, nil
}

func (f *fakeRecommender) ResolveArea(_ context.Context, term string) (domain.AmbiguityVerdict, error) {
	f.resolved = append(f.resolved, term)
	if f.resolveErr != nil {
		return domain.AmbiguityVerdict{}, f.resolveErr
	}
	if !f.verdict.NeedsClarification {
		return domain.Proceed(), nil
	}
	return f.verdict, nil
}

func (f *fakeRecommender) StationCandidates(_ context.Context, _ string) ([]domain.LocationCandidate, error) {
	f.stationCalls++
	return f.candidates, nil
}

func newTestService(rec *fakeRecommender) (*Service, *session.CacheStore) {
	log := slogdiscard.NewDiscardLogger()
	store := session.NewCacheStore(log, cache.NewMemoryClient(100), 0)
	return New(log, store, rec, clarification.NewAgent(log)), store
}

var fuchuCandidates = []domain.LocationCandidate{
	{Prefecture: "東京都", City: "府中市", Station: "府中", PropertyCount: 12},
	{Prefecture: "広島県", City: "府中市", Station: "府中", PropertyCount: 3},
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	svc, _ := newTestService(&fakeRecommender{})

	_, err := svc.HandleMessage(context.Background(), uuid.Nil, "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	svc, _ := newTestService(&fakeRecommender{})

	_, err := svc.HandleMessage(context.Background(), uuid.New(), "こんにちは", 3)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestHandleMessage_AsksQuestionsWithoutRequirements(t *testing.T) {
	rec := &fakeRecommender{}
	svc, store := newTestService(rec)
	ctx := context.Background()

	reply, err := svc.HandleMessage(ctx, uuid.Nil, "家を探しています", 3)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, reply.SessionID)
	assert.False(t, reply.ReadyForSearch)
	require.NotNil(t, reply.Clarification)
	assert.Len(t, reply.Clarification.Questions, clarification.MaxQuestions)
	assert.Contains(t, reply.Message, askMoreMessage)
	assert.Empty(t, reply.Recommendations)
	assert.Zero(t, rec.findCalls)

	sess, err := store.Get(ctx, reply.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, domain.RoleUser, sess.History[0].Role)
	assert.Equal(t, "家を探しています", sess.History[0].Content)
	assert.Equal(t, domain.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, reply.Message, sess.History[1].Content)
}

func TestHandleMessage_StationAmbiguityThenSelection(t *testing.T) {
	rec := &fakeRecommender{
		candidates: fuchuCandidates,
		recs: []domain.ScoredProperty{
			{Property: domain.Property{Address: "東京都府中市宮町1", URL: "https://example.com/1"}, TotalScore: 0.8},
		},
	}
	svc, store := newTestService(rec)
	ctx := context.Background()

	first, err := svc.HandleMessage(ctx, uuid.Nil, "府中駅の近くで探しています", 3)
	require.NoError(t, err)

	assert.Contains(t, first.Message, "「府中駅」は複数の地域にございます")
	assert.Equal(t, fuchuCandidates, first.LocationOptions)
	assert.False(t, first.LocationConfirmed)
	assert.Zero(t, rec.findCalls)

	sess, err := store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, fuchuCandidates, sess.PendingLocations)

	second, err := svc.HandleMessage(ctx, first.SessionID, "1", 5)
	require.NoError(t, err)

	assert.True(t, second.LocationConfirmed)
	assert.True(t, second.ReadyForSearch)
	assert.Equal(t, "東京都", second.Requirements.Prefecture)
	assert.Equal(t, "府中市", second.Requirements.City)
	assert.Equal(t, "府中", second.Requirements.Station)
	assert.Equal(t, 1, rec.findCalls)
	assert.Equal(t, 5, rec.lastLimit)
	assert.Equal(t, "東京都", rec.lastReqs.Prefecture)
	assert.Len(t, second.Recommendations, 1)
	assert.Contains(t, second.Message, "東京都府中市宮町1")

	sess, err = store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.PendingLocations)
	assert.True(t, sess.ReadyForSearch)
	assert.Len(t, sess.History, 4)
}

func TestHandleMessage_SingleStationCandidateIsConfirmed(t *testing.T) {
	rec := &fakeRecommender{candidates: fuchuCandidates[:1]}
	svc, _ := newTestService(rec)

	reply, err := svc.HandleMessage(context.Background(), uuid.Nil, "府中駅の近くで探しています", 3)
	require.NoError(t, err)

	assert.True(t, reply.LocationConfirmed)
	assert.Equal(t, "東京都", reply.Requirements.Prefecture)
	assert.Equal(t, "府中市", reply.Requirements.City)
	assert.Empty(t, rec.resolved)
	assert.Equal(t, 1, rec.findCalls)
}

func TestHandleMessage_UnknownStationFallsBackToArea(t *testing.T) {
	rec := &fakeRecommender{}
	svc, _ := newTestService(rec)

	_, err := svc.HandleMessage(context.Background(), uuid.Nil, "府中駅の近くで探しています", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.stationCalls)
	assert.Equal(t, []string{"府中"}, rec.resolved)
}

func TestHandleMessage_AreaClarification(t *testing.T) {
	rec := &fakeRecommender{
		verdict: domain.AmbiguityVerdict{
			NeedsClarification: true,
			Message:            "「川崎市」で広範囲の物件が見つかりました。",
			SuggestedRegions:   []string{"神奈川県 川崎市"},
		},
	}
	svc, _ := newTestService(rec)
	ctx := context.Background()

	first, err := svc.HandleMessage(ctx, uuid.Nil, "川崎市で3000万円以下", 3)
	require.NoError(t, err)

	assert.Equal(t, rec.verdict.Message, first.Message)
	assert.False(t, first.LocationConfirmed)
	assert.Equal(t, []string{"川崎市"}, rec.resolved)

	second, err := svc.HandleMessage(ctx, first.SessionID, "2LDKがいいです", 3)
	require.NoError(t, err)

	assert.False(t, second.ReadyForSearch)
	assert.Contains(t, second.Message, askLocationMessage)
	assert.Equal(t, "2LDK", second.Requirements.Layout)
	assert.Zero(t, rec.findCalls)
}

func TestHandleMessage_ReadyForSearch(t *testing.T) {
	price := 4800.0
	rec := &fakeRecommender{
		recs: []domain.ScoredProperty{
			{
				Property: domain.Property{
					Address:     "東京都港区芝1",
					Price:       &price,
					Layout:      "2LDK",
					StationName: "田町",
					WalkTime:    7,
				},
				TotalScore:  0.91,
				Explanation: "希望地域にマッチ",
			},
		},
	}
	svc, _ := newTestService(rec)

	reply, err := svc.HandleMessage(context.Background(), uuid.Nil, "東京都港区で5000万円以下の2LDK", 0)
	require.NoError(t, err)

	assert.True(t, reply.ReadyForSearch)
	assert.True(t, reply.LocationConfirmed)
	assert.Equal(t, []string{"港区"}, rec.resolved)
	require.NotNil(t, rec.lastReqs.PriceMax)
	assert.Equal(t, 5000.0, *rec.lastReqs.PriceMax)
	assert.Equal(t, "2LDK", rec.lastReqs.Layout)
	assert.Contains(t, reply.Message, "ご希望の条件に合う物件を1件ご紹介します。")
	assert.Contains(t, reply.Message, "1. 東京都港区芝1 / 4800万円 / 2LDK / 田町駅 徒歩7分")
	assert.Contains(t, reply.Message, "希望地域にマッチ")
}

func TestHandleMessage_NoResults(t *testing.T) {
	rec := &fakeRecommender{recs: []domain.ScoredProperty{}}
	svc, _ := newTestService(rec)

	reply, err := svc.HandleMessage(context.Background(), uuid.Nil, "東京都港区で5000万円以下の2LDK", 3)
	require.NoError(t, err)

	assert.True(t, reply.ReadyForSearch)
	assert.Equal(t, noResultsMessage, reply.Message)
	assert.Empty(t, reply.Recommendations)
}

func TestHandleMessage_ResolveErrorDoesNotBlock(t *testing.T) {
	rec := &fakeRecommender{resolveErr: errors.New("lookup failed"), recs: []domain.ScoredProperty{}}
	svc, _ := newTestService(rec)

	reply, err := svc.HandleMessage(context.Background(), uuid.Nil, "東京都港区で5000万円以下", 3)
	require.NoError(t, err)

	assert.True(t, reply.LocationConfirmed)
	assert.Equal(t, 1, rec.findCalls)
}

func TestHandleMessage_SearchError(t *testing.T) {
	boom := errors.New("database is down")
	rec := &fakeRecommender{findErr: boom}
	svc, store := newTestService(rec)
	ctx := context.Background()

	first, err := svc.HandleMessage(ctx, uuid.Nil, "港区で探しています", 3)
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, first.SessionID, "5000万円以下でお願いします", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// неудачный ответ не попадает в историю
	sess, err := store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.History, 2)
}

func TestSelectCandidate(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
		ok       bool
	}{
		{name: "number", message: "2", expected: "広島県", ok: true},
		{name: "full width number", message: "１", expected: "東京都", ok: true},
		{name: "number with suffix", message: "2番", expected: "広島県", ok: true},
		{name: "prefecture name", message: "広島県の方です", expected: "広島県", ok: true},
		{name: "out of range", message: "3"},
		{name: "shared city is ambiguous", message: "府中市"},
		{name: "unrelated", message: "よくわかりません"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectCandidate(fuchuCandidates, tt.message)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got.Prefecture)
			}
		})
	}
}

func TestFormatRecommendations_FallsBackToRegion(t *testing.T) {
	msg := FormatRecommendations([]domain.ScoredProperty{
		{Property: domain.Property{Prefecture: "大阪府", City: "大阪市", WalkTime: domain.WalkTimeUnknown, StationName: "梅田"}},
	})

	assert.Contains(t, msg, "1. 大阪府大阪市 / 梅田駅")
	assert.NotContains(t, msg, "徒歩")
}
