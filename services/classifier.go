package services

import (
	"math"
	"strings"

	"attractions-scraper/models"
)

// Keyword sets checked in priority order by InferType.
var (
	restaurantKeywords = []string{
		"restaurant", "cafe", "bar", "bistro", "diner", "eatery",
		"מסעדה", "בית קפה", "בר", "מזנון",
	}
	mallKeywords = []string{
		"mall", "shopping center", "shopping centre",
		"קניון", "מרכז קניות",
	}
	storeKeywords = []string{
		"store", "shop", "supermarket", "retail",
		"חנות", "סופרמרקט", "רשת",
	}
)

// Field sets used for completeness scoring.
var (
	commonFields         = []string{models.FieldName, models.FieldDescription, models.FieldCity, models.FieldSourceURL, models.FieldLat, models.FieldLng}
	optionalCommonFields = []string{models.FieldTags, models.FieldHours, models.FieldImages, models.FieldBusyDays, models.FieldClosedDays, models.FieldRecommendedTime}

	typeSpecificFields = map[models.AttractionType][]string{
		models.TypeRestaurant: {models.FieldCategory, models.FieldPriceRange, models.FieldDietaryOptions, models.FieldTicketsLink},
		models.TypeActivity:   {models.FieldCategory, models.FieldDuration, models.FieldPriceRange, models.FieldTicketsLink},
		models.TypeMall:       {models.FieldCategory},
		models.TypeStoreChain: {models.FieldCategory, models.FieldPriceRange},
	}

	// Probed by MissingFields, most important first.
	importantFields = []string{models.FieldName, models.FieldDescription, models.FieldCity, models.FieldLat, models.FieldLng, models.FieldHours}
)

// QualityInfo is derived per record on demand and never stored on it.
type QualityInfo struct {
	Completeness  float64  `json:"completeness"`
	MissingFields []string `json:"missing_fields"`
}

// InferType classifies a place from its category text. The source URL
// is a weaker signal (place names leak into the slug) and is consulted
// only when the category matches nothing. Anything unmatched is an
// activity. Never fails.
func InferType(categoryText, sourceURL string) models.AttractionType {
	if t, ok := matchTypeKeywords(strings.ToLower(categoryText)); ok {
		return t
	}
	if t, ok := matchTypeKeywords(strings.ToLower(sourceURL)); ok {
		return t
	}
	return models.TypeActivity
}

// matchTypeKeywords tries the keyword sets in restaurant, mall, store
// priority order.
func matchTypeKeywords(haystack string) (models.AttractionType, bool) {
	switch {
	case containsAny(haystack, restaurantKeywords):
		return models.TypeRestaurant, true
	case containsAny(haystack, mallKeywords):
		return models.TypeMall, true
	case containsAny(haystack, storeKeywords):
		return models.TypeStoreChain, true
	}
	return "", false
}

// Completeness scores how much of the expected field surface for the
// given type is populated, as a 2-decimal ratio in [0, 1].
func Completeness(fields models.RawFields, t models.AttractionType) float64 {
	probes := make([]string, 0, len(commonFields)+len(optionalCommonFields)+4)
	probes = append(probes, commonFields...)
	probes = append(probes, optionalCommonFields...)
	probes = append(probes, typeSpecificFields[t]...)

	present := 0
	for _, field := range probes {
		if fields.Present(field) {
			present++
		}
	}
	if len(probes) == 0 {
		return 0
	}
	// Half-even keeps the score stable when the ratio lands exactly on
	// a hundredth boundary.
	return math.RoundToEven(float64(present)/float64(len(probes))*100) / 100
}

// MissingFields lists the absent high-importance fields in their fixed
// importance order.
func MissingFields(fields models.RawFields) []string {
	missing := make([]string, 0, len(importantFields))
	for _, field := range importantFields {
		if !fields.Present(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Quality bundles completeness and missing fields for one record.
func Quality(fields models.RawFields, t models.AttractionType) QualityInfo {
	return QualityInfo{
		Completeness:  Completeness(fields, t),
		MissingFields: MissingFields(fields),
	}
}
