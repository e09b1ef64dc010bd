package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"attractions-scraper/models"
)

var (
	// hoursRegexp captures "N שעות" / "N hours" with an optional fraction
	hoursRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:שעות|שעה|hours?)`)
	// minutesRegexp captures "N דקות" / "N minutes"
	minutesRegexp = regexp.MustCompile(`(\d+)\s*(?:דקות|דקה|minutes?)`)
)

var (
	freeKeywords      = []string{"חינם", "ללא תשלום", "בחינם", "free"}
	expensiveKeywords = []string{"יקר", "יקרה", "יקרים", "expensive"}
	cheapKeywords     = []string{"זול", "זולה", "זולים", "cheap", "inexpensive"}
	closedKeywords    = []string{"סגור", "סגורה", "סגורים", "closed"}

	// Checked in this order; the first bucket with a hit wins.
	timeOfDayBuckets = []struct {
		name     string
		keywords []string
	}{
		{"morning", []string{"בוקר", "הבוקר", "morning"}},
		{"lunch", []string{"צהריים", "הצהריים", "ארוחת צהריים", "lunch"}},
		{"afternoon", []string{"אחר הצהריים", "אחה\"צ", "afternoon"}},
		{"evening", []string{"ערב", "הערב", "ערבית", "evening"}},
		{"night", []string{"לילה", "הלילה", "night"}},
	}
)

// Normalize canonicalizes scraped text: NFC form, whitespace runs
// collapsed to single spaces, control characters stripped, trimmed.
// Returns "" when nothing survives. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFC.String(text)
	s = strings.Join(strings.Fields(s), " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ParseDuration extracts a duration in minutes from free text. Hour and
// minute components are summed when both appear; a fractional hour count
// floors after the x60 conversion. Returns false when neither unit matches.
func ParseDuration(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	lower := strings.ToLower(text)

	total := 0
	if m := hoursRegexp.FindStringSubmatch(lower); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			total += int(hours * 60)
		}
	}
	if m := minutesRegexp.FindStringSubmatch(lower); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err == nil {
			total += minutes
		}
	}

	if total <= 0 {
		return 0, false
	}
	return total, true
}

// ClassifyPrice derives a coarse price range from page text. A free
// keyword wins outright, then currency-symbol repetition, then
// expensive/cheap keywords. Returns false when no signal is present.
func ClassifyPrice(text string) (models.PriceRange, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)

	if containsAny(lower, freeKeywords) {
		return models.PriceFree, true
	}

	symbols := strings.Count(text, "₪")
	if dollars := strings.Count(text, "$"); dollars > symbols {
		symbols = dollars
	}
	switch {
	case symbols >= 3:
		return models.PriceExpensive, true
	case symbols >= 1:
		return models.PriceCheap, true
	}

	if containsAny(lower, expensiveKeywords) {
		return models.PriceExpensive, true
	}
	if containsAny(lower, cheapKeywords) {
		return models.PriceCheap, true
	}
	return "", false
}

// IsClosedIndicator reports whether text marks a place or day as closed.
func IsClosedIndicator(text string) bool {
	if text == "" {
		return false
	}
	return containsAny(strings.ToLower(text), closedKeywords)
}

// ClassifyTimeOfDay maps text onto a recommended-visit bucket. Buckets
// are checked in a fixed priority order (morning, lunch, afternoon,
// evening, night); the first match wins.
func ClassifyTimeOfDay(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, bucket := range timeOfDayBuckets {
		if containsAny(lower, bucket.keywords) {
			return bucket.name, true
		}
	}
	return "", false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
