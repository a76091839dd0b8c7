package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/services/normalizer"
)

func TestReadListings_Sample(t *testing.T) {
	rows, err := readListings("")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	n := normalizer.New(normalizer.PriceUnitYen)
	for _, row := range rows {
		require.NotNil(t, row.URL)
		p := n.Property(row.Raw())
		assert.NotNil(t, p.Price, *row.URL)
		assert.NotEmpty(t, p.Prefecture, *row.URL)
		assert.NotEqual(t, domain.WalkTimeUnknown, p.WalkTime, *row.URL)
	}

	first := n.Property(rows[0].Raw())
	assert.Equal(t, 4800.0, *first.Price)
	assert.Equal(t, "2LDK", first.Layout)
	assert.Equal(t, 7, first.WalkTime)
}

func TestReadListings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"url":"https://example.jp/x","mi_price":"30000000"}]`), 0o600))

	rows, err := readListings(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://example.jp/x", *rows[0].URL)
	assert.Nil(t, rows[0].Address)
}

func TestReadListings_Errors(t *testing.T) {
	_, err := readListings(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = readListings(path)
	assert.Error(t, err)
}

func TestRankRequirements_FlagsOverrideMessage(t *testing.T) {
	t.Cleanup(func() {
		rankMessage, rankLayout, rankPriceMax = "", "", 0
	})

	rankMessage = "東京都港区で2LDK"
	rankLayout = "３ldk"
	rankPriceMax = 6000

	reqs := rankRequirements()
	assert.Equal(t, "3LDK", reqs.Layout)
	require.NotNil(t, reqs.PriceMax)
	assert.Equal(t, 6000.0, *reqs.PriceMax)
	assert.Equal(t, "東京都", reqs.Prefecture)
}
