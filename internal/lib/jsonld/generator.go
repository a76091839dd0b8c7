package jsonld

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sumai_assistant/internal/domain"
)

const schemaContext = "https://schema.org"

// Generator — генератор JSON-LD разметки для рекомендованных объектов.
type Generator struct{}

// NewGenerator создаёт новый генератор JSON-LD.
func NewGenerator() *Generator {
	return &Generator{}
}

// RealEstateListing — JSON-LD структура для объявления (schema.org).
type RealEstateListing struct {
	Context     string `json:"@context,omitempty"`
	Type        string `json:"@type"`
	ID          string `json:"@id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`

	// Цена
	Offers *Offer `json:"offers,omitempty"`

	// Местоположение
	Address *PostalAddress `json:"address,omitempty"`

	// Характеристики объекта
	FloorSize     *QuantitativeValue `json:"floorSize,omitempty"`
	NumberOfRooms *int               `json:"numberOfRooms,omitempty"`
	PropertyType  string             `json:"propertyType,omitempty"`

	AdditionalProperty []PropertyValue `json:"additionalProperty,omitempty"`
}

// Offer — предложение (цена) по schema.org.
type Offer struct {
	Type          string `json:"@type"`
	Price         int64  `json:"price"`
	PriceCurrency string `json:"priceCurrency"`
}

// PostalAddress — почтовый адрес по schema.org.
type PostalAddress struct {
	Type            string `json:"@type"`
	StreetAddress   string `json:"streetAddress,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"` // Город
	AddressRegion   string `json:"addressRegion,omitempty"`   // Префектура
	AddressCountry  string `json:"addressCountry"`
}

// QuantitativeValue — количественное значение.
type QuantitativeValue struct {
	Type     string  `json:"@type"`
	Value    float64 `json:"value"`
	UnitCode string  `json:"unitCode"` // MTK для м²
	UnitText string  `json:"unitText,omitempty"`
}

// PropertyValue — дополнительное свойство.
type PropertyValue struct {
	Type  string `json:"@type"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ItemList — список рекомендаций в порядке ранжирования.
type ItemList struct {
	Context         string     `json:"@context"`
	Type            string     `json:"@type"`
	Name            string     `json:"name,omitempty"`
	NumberOfItems   int        `json:"numberOfItems"`
	ItemListElement []ListItem `json:"itemListElement"`
}

type ListItem struct {
	Type     string            `json:"@type"`
	Position int               `json:"position"`
	Item     RealEstateListing `json:"item"`
}

// GeneratePropertyJSONLD генерирует JSON-LD разметку для объекта. Цены объекта в 万円.
func (g *Generator) GeneratePropertyJSONLD(property domain.Property) *RealEstateListing {
	listing := &RealEstateListing{
		Context:      schemaContext,
		Type:         g.mapPropertyType(property.PropertyType),
		ID:           property.URL,
		Name:         g.listingName(property),
		URL:          property.URL,
		PropertyType: property.PropertyType,
	}

	// Цена
	if property.Price != nil && *property.Price > 0 {
		listing.Offers = &Offer{
			Type:          "Offer",
			Price:         int64(math.Round(*property.Price * 10000)),
			PriceCurrency: "JPY",
		}
	}

	listing.Address = &PostalAddress{
		Type:            "PostalAddress",
		StreetAddress:   property.Address,
		AddressLocality: property.City,
		AddressRegion:   property.Prefecture,
		AddressCountry:  "JP",
	}

	// Площадь
	if property.Area != nil {
		listing.FloorSize = &QuantitativeValue{
			Type:     "QuantitativeValue",
			Value:    *property.Area,
			UnitCode: "MTK",
			UnitText: "㎡",
		}
	}

	if rooms, ok := roomCount(property.Layout); ok {
		listing.NumberOfRooms = &rooms
	}

	if property.Layout != "" {
		g.AddAdditionalProperty(listing, "layout", property.Layout)
	}
	if property.StationName != "" {
		g.AddAdditionalProperty(listing, "station", property.StationName)
	}
	if property.HasKnownWalkTime() {
		g.AddAdditionalProperty(listing, "walkTimeMinutes", property.WalkTime)
	}
	if property.Age != nil {
		g.AddAdditionalProperty(listing, "buildingAgeYears", *property.Age)
	}

	return listing
}

// GenerateRecommendationsJSONLD собирает ItemList из ранжированных объектов.
// В каждый элемент добавляются итоговая оценка и объяснение.
func (g *Generator) GenerateRecommendationsJSONLD(scored []domain.ScoredProperty) *ItemList {
	list := &ItemList{
		Context:         schemaContext,
		Type:            "ItemList",
		Name:            "おすすめ物件",
		NumberOfItems:   len(scored),
		ItemListElement: make([]ListItem, 0, len(scored)),
	}

	for i, sp := range scored {
		listing := g.GeneratePropertyJSONLD(sp.Property)
		listing.Context = ""
		listing.Description = sp.Explanation
		g.AddAdditionalProperty(listing, "matchScore", math.Round(sp.TotalScore*1000)/1000)

		list.ItemListElement = append(list.ItemListElement, ListItem{
			Type:     "ListItem",
			Position: i + 1,
			Item:     *listing,
		})
	}

	return list
}

// GenerateRecommendationsJSONLDBytes генерирует JSON-LD в байтах.
func (g *Generator) GenerateRecommendationsJSONLDBytes(scored []domain.ScoredProperty) ([]byte, error) {
	data, err := json.MarshalIndent(g.GenerateRecommendationsJSONLD(scored), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-LD: %w", err)
	}
	return data, nil
}

// AddAdditionalProperty добавляет дополнительное свойство к объявлению.
func (g *Generator) AddAdditionalProperty(listing *RealEstateListing, name string, value any) {
	listing.AdditionalProperty = append(listing.AdditionalProperty, PropertyValue{
		Type:  "PropertyValue",
		Name:  name,
		Value: value,
	})
}

func (g *Generator) listingName(p domain.Property) string {
	parts := make([]string, 0, 2)
	if p.Address != "" {
		parts = append(parts, p.Address)
	} else if loc := strings.TrimSpace(p.Prefecture + p.City); loc != "" {
		parts = append(parts, loc)
	}
	if p.Layout != "" {
		parts = append(parts, p.Layout)
	}
	if len(parts) == 0 {
		return "物件"
	}
	return strings.Join(parts, " ")
}

// mapPropertyType преобразует тип недвижимости в schema.org тип.
func (g *Generator) mapPropertyType(pt string) string {
	switch {
	case strings.Contains(pt, "マンション"), strings.Contains(pt, "アパート"):
		return "Apartment"
	case strings.Contains(pt, "一戸建"), strings.Contains(pt, "戸建"):
		return "SingleFamilyResidence"
	default:
		return "RealEstateListing"
	}
}

// roomCount — число комнат из ведущей цифры планировки ("3LDK" -> 3).
func roomCount(layout string) (int, bool) {
	if layout == "" {
		return 0, false
	}
	n, err := strconv.Atoi(layout[:1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
