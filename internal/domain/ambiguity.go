package domain

// AddressGroup — адреса с общим ключом «префектура[ город]».
type AddressGroup struct {
	Key        string
	Prefecture string
	City       string
	Addresses  []string
}

func (g AddressGroup) Count() int {
	return len(g.Addresses)
}

// AmbiguityVerdict — решение резолвера по поисковому термину.
type AmbiguityVerdict struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Message            string   `json:"message,omitempty"`
	SuggestedRegions   []string `json:"suggested_regions"`
}

// Proceed — уточнение не требуется.
func Proceed() AmbiguityVerdict {
	return AmbiguityVerdict{SuggestedRegions: []string{}}
}

// LocationCandidate — вариант местоположения из базы объектов.
type LocationCandidate struct {
	Prefecture    string `json:"prefecture" db:"pref"`
	City          string `json:"city" db:"city"`
	Station       string `json:"station" db:"station_name"`
	PropertyCount int    `json:"property_count" db:"property_count"`
}

// DisplayName — «префектура город станция駅» для показа пользователю.
func (c LocationCandidate) DisplayName() string {
	name := c.Prefecture
	if c.City != "" {
		name += " " + c.City
	}
	if c.Station != "" {
		name += " " + c.Station + "駅"
	}
	return name
}

// Key — ключ дедупликации кандидатов.
func (c LocationCandidate) Key() string {
	return c.Prefecture + "_" + c.City + "_" + c.Station
}
