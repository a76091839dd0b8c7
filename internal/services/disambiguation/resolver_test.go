package disambiguation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sumai_assistant/internal/lib/logger/handlers/slogdiscard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDistances — подменный источник расстояний.
type fakeDistances struct {
	fn    func(ctx context.Context, from, to string) (float64, error)
	calls atomic.Int32
}

func (f *fakeDistances) Distance(ctx context.Context, from, to string) (float64, error) {
	f.calls.Add(1)
	return f.fn(ctx, from, to)
}

func newTestResolver(distances DistanceLookup) *Resolver {
	return NewResolver(slogdiscard.NewDiscardLogger(), distances, 50*time.Millisecond)
}

func repeat(address string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = address
	}
	return out
}

func TestAnalyze_Empty(t *testing.T) {
	v := newTestResolver(nil).Analyze(context.Background(), "川崎", nil)
	assert.False(t, v.NeedsClarification)
	assert.Empty(t, v.SuggestedRegions)
	assert.Empty(t, v.Message)
}

func TestAnalyze_SingleAddress(t *testing.T) {
	v := newTestResolver(nil).Analyze(context.Background(), "川崎", []string{"神奈川県川崎市中原区"})
	assert.False(t, v.NeedsClarification)
}

func TestAnalyze_MultiplePrefectures(t *testing.T) {
	addresses := []string{
		"神奈川県川崎市中原区...",
		"神奈川県川崎市高津区...",
		"福岡県...",
		"福岡県...",
	}

	v := newTestResolver(nil).Analyze(context.Background(), "川崎", addresses)

	require.True(t, v.NeedsClarification)
	assert.Equal(t, []string{"神奈川県 川崎市", "福岡県"}, v.SuggestedRegions)
	assert.Equal(t,
		"「川崎」で複数の地域が見つかりました。より具体的な地域を教えてください。\n\n候補地域：\n"+
			"• 神奈川県 川崎市（2件）\n• 福岡県（2件）",
		v.Message,
	)
}

func TestAnalyze_SameCityNoClarification(t *testing.T) {
	v := newTestResolver(nil).Analyze(context.Background(), "中原", repeat("神奈川県川崎市中原区小杉町", 6))
	assert.False(t, v.NeedsClarification)
}

func TestAnalyze_WideAreaInOnePrefecture(t *testing.T) {
	// Одна префектура, но три разных города.
	addresses := []string{
		"神奈川県横浜市青葉区1",
		"神奈川県横浜市青葉区2",
		"神奈川県横浜市青葉区3",
		"神奈川県相模原市緑区1",
		"神奈川県相模原市緑区2",
		"神奈川県小田原市1",
	}

	v := newTestResolver(nil).Analyze(context.Background(), "緑", addresses)

	require.True(t, v.NeedsClarification)
	assert.Equal(t, []string{"神奈川県 横浜市", "神奈川県 相模原市", "神奈川県 小田原市"}, v.SuggestedRegions)
	assert.True(t, strings.HasPrefix(v.Message, "「緑」で広範囲の物件が見つかりました（10km以上離れた物件が含まれています）。"))
	assert.Contains(t, v.Message, "• 神奈川県 横浜市（3件）")
}

func TestAnalyze_WideAreaSuggestsTopFive(t *testing.T) {
	addresses := []string{
		"東京都港区1", "東京都新宿区1", "東京都渋谷区1", "東京都渋谷区2",
		"東京都目黒区1", "東京都品川区1", "東京都大田区1", "東京都大田区2", "東京都大田区3",
	}

	v := newTestResolver(nil).Analyze(context.Background(), "東京", addresses)

	require.True(t, v.NeedsClarification)
	assert.Equal(t, []string{"東京都 大田区", "東京都 渋谷区", "東京都 港区", "東京都 新宿区", "東京都 目黒区"}, v.SuggestedRegions)
}

func TestAnalyze_FewAddressesSkipDistanceCheck(t *testing.T) {
	addresses := []string{"東京都港区1", "東京都新宿区1", "東京都渋谷区1", "東京都目黒区1"}

	v := newTestResolver(nil).Analyze(context.Background(), "東京", addresses)
	assert.False(t, v.NeedsClarification)
}

func TestAnalyze_DistanceLookup(t *testing.T) {
	addresses := repeat("東京都港区芝公園", 6)

	t.Run("реальные расстояния", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			return 25, nil
		}}

		v := newTestResolver(lookup).Analyze(context.Background(), "芝", addresses)

		assert.True(t, v.NeedsClarification)
		assert.Equal(t, int32(15), lookup.calls.Load())
	})

	t.Run("ошибка откатывается к оценке", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			return 0, errors.New("quota exceeded")
		}}

		v := newTestResolver(lookup).Analyze(context.Background(), "芝", addresses)
		assert.False(t, v.NeedsClarification)
	})

	t.Run("таймаут откатывается к оценке", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			time.Sleep(time.Second)
			return 100, nil
		}}

		start := time.Now()
		v := newTestResolver(lookup).Analyze(context.Background(), "芝", addresses)

		assert.False(t, v.NeedsClarification)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("паника откатывается к оценке", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			panic("bad response")
		}}

		assert.NotPanics(t, func() {
			v := newTestResolver(lookup).Analyze(context.Background(), "芝", addresses)
			assert.False(t, v.NeedsClarification)
		})
	})

	t.Run("зависший источник ограничен общим таймаутом", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}}

		start := time.Now()
		v := newTestResolver(lookup).Analyze(context.Background(), "芝", repeat("東京都港区芝公園", 25))

		assert.False(t, v.NeedsClarification)
		assert.Less(t, time.Since(start), 300*time.Millisecond)
		assert.Less(t, lookup.calls.Load(), int32(45))
	})

	t.Run("не больше 10 адресов", func(t *testing.T) {
		lookup := &fakeDistances{fn: func(ctx context.Context, from, to string) (float64, error) {
			return 1, nil
		}}

		newTestResolver(lookup).Analyze(context.Background(), "芝", repeat("東京都港区芝公園", 25))
		assert.Equal(t, int32(45), lookup.calls.Load())
	})
}

func TestEstimateDistance(t *testing.T) {
	assert.Equal(t, 50.0, EstimateDistance("東京都港区", "大阪府大阪市"))
	assert.Equal(t, 20.0, EstimateDistance("東京都港区", "東京都新宿区"))
	assert.Equal(t, 5.0, EstimateDistance("東京都港区芝", "東京都港区六本木"))
}

func TestGroupAddresses(t *testing.T) {
	groups := GroupAddresses([]string{"福岡県福岡市博多区", "東京都港区", "福岡県福岡市中央区", "どこか"})

	require.Len(t, groups, 3)
	assert.Equal(t, "福岡県 福岡市", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count())
	assert.Equal(t, "東京都 港区", groups[1].Key)
	assert.Equal(t, "不明", groups[2].Key)
}
