package models

// Field names produced by extraction. RawFields carries whatever subset
// the page yielded; no key is required.
const (
	FieldName            = "name"
	FieldType            = "type"
	FieldDescription     = "description"
	FieldCategory        = "category"
	FieldCity            = "city"
	FieldSourceURL       = "maps_url"
	FieldLat             = "lat"
	FieldLng             = "lng"
	FieldPriceRange      = "price_range"
	FieldHours           = "hours"
	FieldClosedDays      = "closed_days"
	FieldBusyDays        = "busy_days"
	FieldRecommendedTime = "recommended_time"
	FieldDuration        = "duration"
	FieldDietaryOptions  = "dietary_options"
	FieldWebsite         = "website"
	FieldTicketsLink     = "tickets_link"
	FieldTags            = "tags"
	FieldImages          = "images"
)

// RawFields is the unvalidated field bag a single page extraction
// produces. It is rebuilt per page and never mutated after the extractor
// returns it.
type RawFields map[string]any

// String returns the named field if it holds a non-empty string.
func (r RawFields) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringList returns the named field if it holds a non-empty string slice.
func (r RawFields) StringList(key string) ([]string, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	l, ok := v.([]string)
	if !ok || len(l) == 0 {
		return nil, false
	}
	return l, true
}

// Int returns the named field if it holds a positive int.
func (r RawFields) Int(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// Float returns the named field if it holds a float64.
func (r RawFields) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Hours returns the parsed weekly hours table if present.
func (r RawFields) Hours(key string) (map[string]HoursEntry, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	h, ok := v.(map[string]HoursEntry)
	if !ok || len(h) == 0 {
		return nil, false
	}
	return h, true
}

// Present reports whether the named field exists with a usable value.
// Empty strings, empty slices and zero numbers count as absent.
func (r RawFields) Present(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case int:
		return t != 0
	case float64:
		return true
	case map[string]HoursEntry:
		return len(t) > 0
	}
	return true
}
