package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"attractions-scraper/models"
)

// Validation errors.
var (
	ErrMissingType       = errors.New("attraction type is required")
	ErrMissingName       = errors.New("attraction name is required")
	ErrFieldNotAllowed   = errors.New("field not allowed for attraction type")
	ErrCoordinateRange   = errors.New("coordinate out of range")
	ErrInvalidPriceRange = errors.New("invalid price range value")
)

// Fields each variant must not carry. Rather than silently dropping an
// illegal field the validator rejects the record so the raw input is
// preserved in the failed-attempts list.
var forbiddenFields = map[models.AttractionType][]string{
	models.TypeActivity:   {models.FieldDietaryOptions},
	models.TypeRestaurant: {models.FieldDuration},
	models.TypeMall:       {models.FieldPriceRange, models.FieldDuration, models.FieldDietaryOptions},
	models.TypeStoreChain: {models.FieldDuration, models.FieldDietaryOptions},
}

// Validator builds typed records from raw extraction output.
type Validator struct {
	log *zap.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(log *zap.Logger) *Validator {
	return &Validator{log: log}
}

// Build maps a raw field bag onto its typed record variant. It fails on
// a missing or unknown type, an empty name, a variant-illegal field, or
// out-of-range coordinates.
func (v *Validator) Build(raw models.RawFields) (models.Attraction, error) {
	typeStr, ok := raw.String(models.FieldType)
	if !ok {
		return nil, ErrMissingType
	}
	t, err := models.ParseAttractionType(typeStr)
	if err != nil {
		return nil, err
	}

	name := Normalize(firstString(raw, models.FieldName))
	if name == "" {
		return nil, ErrMissingName
	}

	for _, field := range forbiddenFields[t] {
		if raw.Present(field) {
			return nil, fmt.Errorf("%w: %q on %s", ErrFieldNotAllowed, field, t)
		}
	}

	base, err := v.buildBase(raw, name, t)
	if err != nil {
		return nil, err
	}

	priceRange, err := parsePriceRange(raw)
	if err != nil {
		return nil, err
	}
	category, _ := raw.String(models.FieldCategory)

	var record models.Attraction
	switch t {
	case models.TypeRestaurant:
		dietary, _ := raw.StringList(models.FieldDietaryOptions)
		record = &models.Restaurant{
			BaseAttraction: base,
			Category:       category,
			PriceRange:     priceRange,
			DietaryOptions: dietary,
		}
	case models.TypeMall:
		record = &models.Mall{BaseAttraction: base, Category: category}
	case models.TypeStoreChain:
		record = &models.StoreChain{
			BaseAttraction: base,
			Category:       category,
			PriceRange:     priceRange,
		}
	default:
		duration, _ := raw.Int(models.FieldDuration)
		record = &models.Activity{
			BaseAttraction:  base,
			Category:        category,
			PriceRange:      priceRange,
			DurationMinutes: duration,
		}
	}

	v.log.Debug("built record",
		zap.String("name", name),
		zap.String("type", string(t)))
	return record, nil
}

func (v *Validator) buildBase(raw models.RawFields, name string, t models.AttractionType) (models.BaseAttraction, error) {
	base := models.BaseAttraction{Name: name, Type: t}

	base.Description, _ = raw.String(models.FieldDescription)
	base.City, _ = raw.String(models.FieldCity)
	base.SourceURL, _ = raw.String(models.FieldSourceURL)
	base.RecommendedTime, _ = raw.String(models.FieldRecommendedTime)
	base.Website, _ = raw.String(models.FieldWebsite)
	base.TicketsLink, _ = raw.String(models.FieldTicketsLink)
	base.Tags, _ = raw.StringList(models.FieldTags)
	base.BusyDays, _ = raw.StringList(models.FieldBusyDays)
	base.ClosedDays, _ = raw.StringList(models.FieldClosedDays)
	base.Images, _ = raw.StringList(models.FieldImages)
	if hours, ok := raw.Hours(models.FieldHours); ok {
		base.Hours = hours
	}

	lat, hasLat := raw.Float(models.FieldLat)
	lng, hasLng := raw.Float(models.FieldLng)
	switch {
	case hasLat && hasLng:
		if err := ValidateCoordinates(lat, lng); err != nil {
			return models.BaseAttraction{}, err
		}
		base.Lat = &lat
		base.Lng = &lng
	case hasLat || hasLng:
		// A lone coordinate is useless; keep the record, drop the value.
		v.log.Debug("dropping unpaired coordinate", zap.String("name", name))
	}
	return base, nil
}

// ValidateCoordinates range-checks a latitude/longitude pair.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat %.4f", ErrCoordinateRange, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng %.4f", ErrCoordinateRange, lng)
	}
	return nil
}

func parsePriceRange(raw models.RawFields) (models.PriceRange, error) {
	s, ok := raw.String(models.FieldPriceRange)
	if !ok {
		return "", nil
	}
	switch models.PriceRange(s) {
	case models.PriceFree, models.PriceCheap, models.PriceExpensive:
		return models.PriceRange(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriceRange, s)
}

func firstString(raw models.RawFields, key string) string {
	s, _ := raw.String(key)
	return s
}
