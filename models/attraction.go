package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AttractionType identifies which record variant a scraped place maps to.
type AttractionType string

const (
	TypeActivity   AttractionType = "activity"
	TypeRestaurant AttractionType = "restaurant"
	TypeMall       AttractionType = "mall"
	TypeStoreChain AttractionType = "store_chain"
)

var ErrUnknownType = errors.New("unknown attraction type")

// ParseAttractionType converts a raw string into a known AttractionType.
func ParseAttractionType(s string) (AttractionType, error) {
	switch AttractionType(s) {
	case TypeActivity, TypeRestaurant, TypeMall, TypeStoreChain:
		return AttractionType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// PriceRange is the coarse price classification derived from page text.
type PriceRange string

const (
	PriceFree      PriceRange = "free"
	PriceCheap     PriceRange = "cheap"
	PriceExpensive PriceRange = "expensive"
)

// HoursEntry is one day's opening hours. A closed day serializes as the
// string "closed"; an open day as {"open": "HH:MM", "close": "HH:MM"}.
type HoursEntry struct {
	Closed bool   `json:"-"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
}

func (h HoursEntry) MarshalJSON() ([]byte, error) {
	if h.Closed {
		return json.Marshal("closed")
	}
	type alias struct {
		Open  string `json:"open,omitempty"`
		Close string `json:"close,omitempty"`
	}
	return json.Marshal(alias{Open: h.Open, Close: h.Close})
}

func (h *HoursEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "closed" {
			return fmt.Errorf("unexpected hours string %q", s)
		}
		*h = HoursEntry{Closed: true}
		return nil
	}
	var alias struct {
		Open  string `json:"open"`
		Close string `json:"close"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*h = HoursEntry{Open: alias.Open, Close: alias.Close}
	return nil
}

// BaseAttraction holds the fields common to every variant. Records are
// immutable once built by the validator.
type BaseAttraction struct {
	Name            string                `json:"name"`
	Type            AttractionType        `json:"type"`
	Description     string                `json:"description,omitempty"`
	City            string                `json:"city,omitempty"`
	SourceURL       string                `json:"maps_url,omitempty"`
	Lat             *float64              `json:"lat,omitempty"`
	Lng             *float64              `json:"lng,omitempty"`
	Tags            []string              `json:"tags,omitempty"`
	BusyDays        []string              `json:"busy_days,omitempty"`
	ClosedDays      []string              `json:"closed_days,omitempty"`
	RecommendedTime string                `json:"recommended_time,omitempty"`
	Hours           map[string]HoursEntry `json:"hours,omitempty"`
	Images          []string              `json:"images,omitempty"`
	Website         string                `json:"website,omitempty"`
	TicketsLink     string                `json:"tickets_link,omitempty"`
}

// Attraction is the sealed set of typed record variants. Exactly one
// variant's extra fields may be populated; the concrete type is selected
// by the validator from the raw "type" field.
type Attraction interface {
	Base() *BaseAttraction
}

// Activity covers parks, museums and the like. It carries a duration and
// never dietary options.
type Activity struct {
	BaseAttraction
	Category        string     `json:"category,omitempty"`
	PriceRange      PriceRange `json:"price_range,omitempty"`
	DurationMinutes int        `json:"duration,omitempty"`
}

func (a *Activity) Base() *BaseAttraction { return &a.BaseAttraction }

// Restaurant carries dietary options and never a duration.
type Restaurant struct {
	BaseAttraction
	Category       string     `json:"category,omitempty"`
	PriceRange     PriceRange `json:"price_range,omitempty"`
	DietaryOptions []string   `json:"dietary_options,omitempty"`
}

func (r *Restaurant) Base() *BaseAttraction { return &r.BaseAttraction }

// Mall carries only a category beyond the base fields.
type Mall struct {
	BaseAttraction
	Category string `json:"category,omitempty"`
}

func (m *Mall) Base() *BaseAttraction { return &m.BaseAttraction }

// StoreChain carries a category and price range, never duration or
// dietary options.
type StoreChain struct {
	BaseAttraction
	Category   string     `json:"category,omitempty"`
	PriceRange PriceRange `json:"price_range,omitempty"`
}

func (s *StoreChain) Base() *BaseAttraction { return &s.BaseAttraction }

// CategoryKey maps an attraction type to its grouping key in output
// collections and the final index.
func CategoryKey(t AttractionType) string {
	switch t {
	case TypeRestaurant:
		return "restaurants"
	case TypeMall:
		return "malls"
	case TypeStoreChain:
		return "store_chains"
	default:
		return "activities"
	}
}

// CategoryKeys lists every grouping key in a stable order.
func CategoryKeys() []string {
	return []string{"restaurants", "activities", "malls", "store_chains"}
}

// UnmarshalAttraction decodes a serialized record into its concrete
// variant, keyed on the embedded "type" field.
func UnmarshalAttraction(data []byte) (Attraction, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode attraction: %w", err)
	}
	t, err := ParseAttractionType(probe.Type)
	if err != nil {
		return nil, err
	}

	var a Attraction
	switch t {
	case TypeRestaurant:
		a = &Restaurant{}
	case TypeMall:
		a = &Mall{}
	case TypeStoreChain:
		a = &StoreChain{}
	default:
		a = &Activity{}
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return a, nil
}
