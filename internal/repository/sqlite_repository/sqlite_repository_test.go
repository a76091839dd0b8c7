package sqlite_repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/logger/handlers/slogdiscard"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/repository"
)

func listing(url, address, pref, station, price, layout string) repository.ListingRow {
	return repository.ListingRow{
		URL:         domain.Ptr(url),
		Address:     domain.Ptr(address),
		Pref:        domain.Ptr(pref),
		StationName: domain.Ptr(station),
		MiPrice:     domain.Ptr(price),
		FloorPlan:   domain.Ptr(layout),
		Traffic1:    domain.Ptr("「" + station + "」駅 徒歩5分"),
	}
}

func newTestRepository(t *testing.T) (*SQLiteRepository, *metrics.CallMetrics) {
	t.Helper()

	m := metrics.NewCallMetrics(slogdiscard.NewDiscardLogger())
	repo, err := Open(filepath.Join(t.TempDir(), "listings.db"), slogdiscard.NewDiscardLogger(), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx, false))

	inserted, err := repo.InsertListings(ctx, []repository.ListingRow{
		listing("https://example.com/1", "東京都府中市宮町1-1", "東京都", "府中", "45000000", "2LDK"),
		listing("https://example.com/2", "東京都府中市寿町2-2", "東京都", "府中", "62000000", "3LDK"),
		listing("https://example.com/3", "広島県府中市府川町3-3", "広島県", "府中", "18000000", "2LDK"),
		listing("https://example.com/4", "神奈川県横浜市西区1-1", "神奈川県", "横浜", "0", "1K"),
	})
	require.NoError(t, err)
	require.Equal(t, 4, inserted)

	return repo, m
}

func TestSQLiteRepository_InsertSkipsDuplicates(t *testing.T) {
	repo, _ := newTestRepository(t)

	inserted, err := repo.InsertListings(context.Background(), []repository.ListingRow{
		listing("https://example.com/1", "東京都府中市宮町1-1", "東京都", "府中", "45000000", "2LDK"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestSQLiteRepository_Search(t *testing.T) {
	repo, m := newTestRepository(t)

	records, err := repo.Search(context.Background(), domain.RequirementSet{
		Prefecture: "東京都",
		PriceMax:   domain.Ptr(5000.0),
	}, 10)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/1", records[0]["url"])
	assert.Equal(t, "45000000", records[0]["mi_price"])
	assert.Equal(t, int64(1), m.GetStats()[metrics.ServiceLookup].CallsTotal)
}

func TestSQLiteRepository_Search_OrdersByPriceAndSkipsZeroPrice(t *testing.T) {
	repo, _ := newTestRepository(t)

	records, err := repo.Search(context.Background(), domain.RequirementSet{}, 10)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "https://example.com/3", records[0]["url"])
	assert.Equal(t, "https://example.com/1", records[1]["url"])
	assert.Equal(t, "https://example.com/2", records[2]["url"])
}

func TestSQLiteRepository_Addresses(t *testing.T) {
	repo, _ := newTestRepository(t)

	addresses, err := repo.Addresses(context.Background(), "府中", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"東京都府中市宮町1-1", "東京都府中市寿町2-2", "広島県府中市府川町3-3"}, addresses)

	_, err = repo.Addresses(context.Background(), "  ", 10)
	assert.ErrorIs(t, err, repository.ErrEmptyTerm)
}

func TestSQLiteRepository_LocationCandidates(t *testing.T) {
	repo, _ := newTestRepository(t)

	candidates, err := repo.LocationCandidates(context.Background(), "府中駅", 20)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, domain.LocationCandidate{Prefecture: "東京都", City: "府中市", Station: "府中", PropertyCount: 2}, candidates[0])
	assert.Equal(t, domain.LocationCandidate{Prefecture: "広島県", City: "府中市", Station: "府中", PropertyCount: 1}, candidates[1])
}

func TestSQLiteRepository_EnsureSchemaReset(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx, true))

	records, err := repo.Search(ctx, domain.RequirementSet{}, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
