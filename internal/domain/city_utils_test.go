package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrefecture(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"神奈川県川崎市中原区小杉町", "神奈川県"},
		{"東京都港区六本木", "東京都"},
		{"北海道札幌市中央区", "北海道"},
		{"川崎市中原区", UnknownPrefecture},
		{"", UnknownPrefecture},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPrefecture(tt.address))
		})
	}
}

func TestExtractCity(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"город", "神奈川県川崎市中原区", "川崎市"},
		{"район Токио", "東京都港区六本木", "港区"},
		{"без суффикса", "福岡県...", ""},
		{"уезд", "長野県北佐久郡軽井沢", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCity(tt.address))
		})
	}
}

func TestCityFromAddress(t *testing.T) {
	assert.Equal(t, "横浜市", CityFromAddress("神奈川県横浜市神奈川区"))
	assert.Equal(t, "京都市", CityFromAddress("京都府京都市中京区"))
	assert.Equal(t, "港区", CityFromAddress("東京都港区六本木1-1"))
	assert.Equal(t, "川崎市", CityFromAddress("川崎市中原区"))
	assert.Empty(t, CityFromAddress(""))
}

func TestRegionKey(t *testing.T) {
	assert.Equal(t, "神奈川県 川崎市", RegionKey("神奈川県", "川崎市"))
	assert.Equal(t, "福岡県", RegionKey("福岡県", ""))
}

func TestNormalizePrefecture(t *testing.T) {
	assert.Equal(t, "東京都", NormalizePrefecture("東京"))
	assert.Equal(t, "京都府", NormalizePrefecture("京都"))
	assert.Equal(t, "神奈川県", NormalizePrefecture(" 神奈川県 "))
	assert.Equal(t, "北海道", NormalizePrefecture("北海道"))
	assert.Equal(t, "渋谷", NormalizePrefecture("渋谷"))
}

func TestNormalizeStation(t *testing.T) {
	assert.Equal(t, "渋谷", NormalizeStation("渋谷駅"))
	assert.Equal(t, "新宿", NormalizeStation(" 新宿 "))
}

func TestFindPrefecture(t *testing.T) {
	assert.Equal(t, "東京都", FindPrefecture("東京都港区で探しています"))
	assert.Equal(t, "東京都", FindPrefecture("東京で2LDK"))
	assert.Equal(t, "京都府", FindPrefecture("京都の物件"))
	assert.Equal(t, "神奈川県", FindPrefecture("神奈川で"))
	assert.Empty(t, FindPrefecture("駅近がいい"))
}
