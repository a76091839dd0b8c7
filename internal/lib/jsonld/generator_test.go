package jsonld

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumai_assistant/internal/domain"
)

func TestGeneratePropertyJSONLD(t *testing.T) {
	g := NewGenerator()

	listing := g.GeneratePropertyJSONLD(domain.Property{
		Address:      "東京都港区芝浦1-1",
		Prefecture:   "東京都",
		City:         "港区",
		Price:        domain.Ptr(4980.0),
		Area:         domain.Ptr(65.5),
		Layout:       "3LDK",
		StationName:  "田町",
		WalkTime:     8,
		PropertyType: "中古マンション",
		URL:          "https://example.com/1",
	})

	assert.Equal(t, "Apartment", listing.Type)
	assert.Equal(t, "東京都港区芝浦1-1 3LDK", listing.Name)
	require.NotNil(t, listing.Offers)
	assert.Equal(t, int64(49800000), listing.Offers.Price)
	assert.Equal(t, "JPY", listing.Offers.PriceCurrency)
	assert.Equal(t, "港区", listing.Address.AddressLocality)
	assert.Equal(t, "東京都", listing.Address.AddressRegion)
	require.NotNil(t, listing.FloorSize)
	assert.Equal(t, 65.5, listing.FloorSize.Value)
	require.NotNil(t, listing.NumberOfRooms)
	assert.Equal(t, 3, *listing.NumberOfRooms)

	names := make([]string, 0, len(listing.AdditionalProperty))
	for _, p := range listing.AdditionalProperty {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"layout", "station", "walkTimeMinutes"}, names)
}

func TestGeneratePropertyJSONLD_Sparse(t *testing.T) {
	listing := NewGenerator().GeneratePropertyJSONLD(domain.Property{WalkTime: domain.WalkTimeUnknown})

	assert.Equal(t, "RealEstateListing", listing.Type)
	assert.Equal(t, "物件", listing.Name)
	assert.Nil(t, listing.Offers)
	assert.Nil(t, listing.NumberOfRooms)
	assert.Empty(t, listing.AdditionalProperty)
}

func TestGenerateRecommendationsJSONLDBytes(t *testing.T) {
	data, err := NewGenerator().GenerateRecommendationsJSONLDBytes([]domain.ScoredProperty{
		{
			Property:    domain.Property{Address: "大阪府大阪市北区梅田1", PropertyType: "一戸建て", WalkTime: domain.WalkTimeUnknown},
			TotalScore:  0.81234,
			Explanation: "希望地域にマッチ",
		},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "ItemList", decoded["@type"])
	assert.EqualValues(t, 1, decoded["numberOfItems"])

	items := decoded["itemListElement"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.EqualValues(t, 1, item["position"])

	listing := item["item"].(map[string]any)
	assert.NotContains(t, listing, "@context")
	assert.Equal(t, "SingleFamilyResidence", listing["@type"])
	assert.Equal(t, "希望地域にマッチ", listing["description"])

	props := listing["additionalProperty"].([]any)
	score := props[len(props)-1].(map[string]any)
	assert.Equal(t, "matchScore", score["name"])
	assert.Equal(t, 0.812, score["value"])
}
