package scraper

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/config"
	"attractions-scraper/models"
	"attractions-scraper/services"
)

var (
	// Coordinates in a maps URL: /@32.0877,34.7803,15z
	coordsAtRegexp = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	// Alternate URL encoding: !3d32.0877!4d34.7803
	coordsBangRegexp = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	timeRegexp       = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	tagSplitRegexp   = regexp.MustCompile(`[,•·]`)
	imageResRegexp   = regexp.MustCompile(`=w\d+-h\d+`)
	postalCodeRegexp = regexp.MustCompile(`〒\d{3}-?\d{4}\s*`)

	dietaryKeywords = []struct {
		option   string
		keywords []string
	}{
		{"vegan", []string{"vegan", "טבעוני", "טבעונית"}},
		{"vegetarian", []string{"vegetarian", "צמחוני", "צמחונית"}},
		{"kosher", []string{"kosher", "כשר", "כשרה"}},
		{"gluten-free", []string{"gluten-free", "ללא גלוטן"}},
		{"halal", []string{"halal", "חלאל"}},
	}
)

const highResSuffix = "=w1200-h800"

// Extractor pulls raw attraction fields out of a loaded place page.
// Each field resolves through its own selector fallback chain; a field
// that cannot be resolved is simply absent from the result.
type Extractor struct {
	driver PageDriver
	cfg    *config.Config
	log    *zap.Logger
}

// NewExtractor binds an Extractor to a page driver session.
func NewExtractor(driver PageDriver, cfg *config.Config, log *zap.Logger) *Extractor {
	return &Extractor{driver: driver, cfg: cfg, log: log}
}

// ExtractAll collects every available field from the currently loaded
// page. A missing field never aborts the remaining ones.
func (e *Extractor) ExtractAll(ctx context.Context, sourceURL string) models.RawFields {
	e.log.Info("extracting page", zap.String("url", sourceURL))

	fields := models.RawFields{models.FieldSourceURL: sourceURL}

	if lat, lng, ok := e.extractCoordinates(ctx, sourceURL); ok {
		fields[models.FieldLat] = lat
		fields[models.FieldLng] = lng
	}

	name, _ := e.resolveText(ctx, "name")
	if name != "" {
		fields[models.FieldName] = name
	}
	description, _ := e.resolveText(ctx, "description")
	if description != "" {
		fields[models.FieldDescription] = description
	}
	category, _ := e.resolveText(ctx, "category")
	if category != "" {
		fields[models.FieldCategory] = category
	}

	if city := e.extractCity(ctx); city != "" {
		fields[models.FieldCity] = city
	}

	if pr, ok := e.extractPriceRange(ctx, description); ok {
		fields[models.FieldPriceRange] = string(pr)
	}

	if hours := e.extractHours(ctx); len(hours) > 0 {
		fields[models.FieldHours] = hours
		if closed := closedDays(hours); len(closed) > 0 {
			fields[models.FieldClosedDays] = closed
		}
	}

	if busy := e.extractBusyDays(ctx); len(busy) > 0 {
		fields[models.FieldBusyDays] = busy
	}

	if tod, ok := recommendedTime(description, category); ok {
		fields[models.FieldRecommendedTime] = tod
	}

	if duration, ok := e.extractDuration(ctx, description); ok {
		fields[models.FieldDuration] = duration
	}

	if dietary := e.extractDietaryOptions(ctx); len(dietary) > 0 {
		fields[models.FieldDietaryOptions] = dietary
	}

	website, _ := e.resolveText(ctx, "website")
	if website != "" {
		fields[models.FieldWebsite] = website
	}

	tickets := e.extractTicketsLink(ctx)
	if tickets == "" {
		tickets = website
	}
	if tickets != "" {
		fields[models.FieldTicketsLink] = tickets
	}

	if tags := e.extractTags(ctx, category); len(tags) > 0 {
		fields[models.FieldTags] = tags
	}

	if images := e.extractImages(ctx); len(images) > 0 {
		fields[models.FieldImages] = images
	}

	e.log.Info("extraction done",
		zap.Int("fields", len(fields)),
		zap.String("name", name))
	return fields
}

// resolveText walks a selector chain: the primary locator gets the full
// wait budget, each fallback half of it. First success wins; exhausting
// the chain reports absence, not an error.
func (e *Extractor) resolveText(ctx context.Context, key string) (string, bool) {
	raw, ok := e.resolveRaw(ctx, key)
	if !ok {
		return "", false
	}
	normalized := services.Normalize(raw)
	return normalized, normalized != ""
}

func (e *Extractor) resolveRaw(ctx context.Context, key string) (string, bool) {
	chain, ok := config.Selectors[key]
	if !ok {
		return "", false
	}

	if v, ok := e.tryLocator(ctx, chain.Primary, chain.Attribute, e.cfg.ElementWait()); ok {
		return v, true
	}
	fallbackWait := e.cfg.ElementWait() / 2
	for _, sel := range chain.Fallbacks {
		if v, ok := e.tryLocator(ctx, sel, chain.Attribute, fallbackWait); ok {
			return v, true
		}
	}
	e.log.Debug("selector chain exhausted", zap.String("field", key))
	return "", false
}

func (e *Extractor) tryLocator(ctx context.Context, selector, attribute string, wait time.Duration) (string, bool) {
	h, err := e.driver.WaitForSelector(ctx, selector, wait)
	if err != nil {
		return "", false
	}
	var value string
	if attribute != "" {
		value, err = e.driver.GetAttribute(ctx, h, attribute)
	} else {
		value, err = e.driver.GetText(ctx, h)
	}
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// extractCoordinates resolves lat/lng through three tiers: the page's
// current address (most reliable, survives redirects), the originally
// supplied URL, then page-embedded metadata.
func (e *Extractor) extractCoordinates(ctx context.Context, sourceURL string) (float64, float64, bool) {
	if current, err := e.driver.CurrentURL(ctx); err == nil {
		if lat, lng, ok := coordsFromURL(current); ok {
			return lat, lng, true
		}
	}
	if lat, lng, ok := coordsFromURL(sourceURL); ok {
		return lat, lng, true
	}

	latText, latOK := e.resolveRaw(ctx, "meta_latitude")
	lngText, lngOK := e.resolveRaw(ctx, "meta_longitude")
	if latOK && lngOK {
		lat, errLat := strconv.ParseFloat(latText, 64)
		lng, errLng := strconv.ParseFloat(lngText, 64)
		if errLat == nil && errLng == nil {
			return lat, lng, true
		}
	}
	return 0, 0, false
}

func coordsFromURL(url string) (float64, float64, bool) {
	for _, re := range []*regexp.Regexp{coordsAtRegexp, coordsBangRegexp} {
		if m := re.FindStringSubmatch(url); m != nil {
			lat, errLat := strconv.ParseFloat(m[1], 64)
			lng, errLng := strconv.ParseFloat(m[2], 64)
			if errLat == nil && errLng == nil {
				return lat, lng, true
			}
		}
	}
	return 0, 0, false
}

func (e *Extractor) extractCity(ctx context.Context) string {
	address, ok := e.resolveText(ctx, "address")
	if !ok {
		return ""
	}
	return cityFromAddress(address)
}

// cityFromAddress heuristically picks the city out of a full address:
// postal codes are stripped, then the latest comma-separated part that
// is neither numeric nor a trailing country token is taken.
func cityFromAddress(address string) string {
	clean := postalCodeRegexp.ReplaceAllString(address, "")
	parts := strings.Split(clean, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		part := strings.TrimSpace(parts[i])
		if len(part) <= 3 || isNumeric(part) {
			continue
		}
		if i == len(parts)-1 && len(parts) > 1 {
			// Last of several parts is usually the country.
			continue
		}
		if !containsDigit(part) {
			return part
		}
	}
	return strings.TrimSpace(clean)
}

func (e *Extractor) extractPriceRange(ctx context.Context, description string) (models.PriceRange, bool) {
	if text, ok := e.resolveRaw(ctx, "price"); ok {
		if pr, ok := services.ClassifyPrice(text); ok {
			return pr, true
		}
	}
	if description != "" {
		if pr, ok := services.ClassifyPrice(description); ok {
			return pr, true
		}
	}
	return "", false
}

// extractHours expands the hours disclosure (failure of the click never
// aborts the field) and parses the weekly table.
func (e *Extractor) extractHours(ctx context.Context) map[string]models.HoursEntry {
	if h, err := e.driver.WaitForSelector(ctx, config.Selectors["hours_button"].Primary, e.cfg.ElementWait()/2); err == nil {
		if err := e.driver.Click(ctx, h); err != nil {
			e.log.Debug("hours disclosure click failed", zap.Error(err))
		}
	}

	text, ok := e.resolveRaw(ctx, "hours_content")
	if !ok {
		return nil
	}
	return ParseHoursText(text)
}

// ParseHoursText converts raw hours text into a day-keyed table. An
// around-the-clock indicator synthesizes a full 00:00-23:59 week. A line
// matches when it names a day; a closed keyword short-circuits the time
// parse, otherwise the first two HH:MM occurrences become open/close.
// Lines with no recognized time pair leave the day out of the table.
func ParseHoursText(text string) map[string]models.HoursEntry {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	for _, indicator := range config.AroundTheClockIndicators {
		if strings.Contains(lower, indicator) {
			table := make(map[string]models.HoursEntry, len(config.WeekDays))
			for _, day := range config.WeekDays {
				table[day] = models.HoursEntry{Open: "00:00", Close: "23:59"}
			}
			return table
		}
	}

	table := make(map[string]models.HoursEntry)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		day, ok := dayInLine(line)
		if !ok {
			continue
		}
		if services.IsClosedIndicator(line) {
			table[day] = models.HoursEntry{Closed: true}
			continue
		}
		times := timeRegexp.FindAllStringSubmatch(line, -1)
		if len(times) >= 2 {
			table[day] = models.HoursEntry{
				Open:  padHour(times[0][1]) + ":" + times[0][2],
				Close: padHour(times[1][1]) + ":" + times[1][2],
			}
		}
	}
	if len(table) == 0 {
		return nil
	}
	return table
}

func padHour(h string) string {
	if len(h) == 1 {
		return "0" + h
	}
	return h
}

func dayInLine(line string) (string, bool) {
	lower := strings.ToLower(line)
	for _, dt := range config.DayTokens {
		if strings.Contains(lower, dt.Token) {
			return dt.Day, true
		}
	}
	return "", false
}

func closedDays(hours map[string]models.HoursEntry) []string {
	var closed []string
	for _, day := range config.WeekDays {
		if entry, ok := hours[day]; ok && entry.Closed {
			closed = append(closed, day)
		}
	}
	return closed
}

// extractBusyDays reads day mentions out of the popular-times widget;
// weekends are assumed busy when the widget is unavailable.
func (e *Extractor) extractBusyDays(ctx context.Context) []string {
	text, ok := e.resolveRaw(ctx, "popular_times")
	if !ok {
		return []string{"Friday", "Saturday"}
	}
	if busy := busyDaysFromText(text); len(busy) > 0 {
		return busy
	}
	return []string{"Friday", "Saturday"}
}

// busyDaysFromText collects the days mentioned in popular-times text,
// in week order.
func busyDaysFromText(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	for _, dt := range config.DayTokens {
		if strings.Contains(lower, dt.Token) {
			seen[dt.Day] = true
		}
	}
	var busy []string
	for _, day := range config.WeekDays {
		if seen[day] {
			busy = append(busy, day)
		}
	}
	return busy
}

func recommendedTime(description, category string) (string, bool) {
	if tod, ok := services.ClassifyTimeOfDay(description); ok {
		return tod, true
	}
	return services.ClassifyTimeOfDay(category)
}

func (e *Extractor) extractDuration(ctx context.Context, description string) (int, bool) {
	if d, ok := services.ParseDuration(description); ok {
		return d, true
	}
	// Sweep the whole page as a last resort.
	if h, err := e.driver.WaitForSelector(ctx, "body", e.cfg.ElementWait()/2); err == nil {
		if body, err := e.driver.GetText(ctx, h); err == nil {
			return services.ParseDuration(body)
		}
	}
	return 0, false
}

func (e *Extractor) extractDietaryOptions(ctx context.Context) []string {
	text, ok := e.resolveRaw(ctx, "dietary")
	if !ok {
		return nil
	}
	lower := strings.ToLower(text)
	var options []string
	for _, entry := range dietaryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				options = append(options, entry.option)
				break
			}
		}
	}
	return options
}

func (e *Extractor) extractTicketsLink(ctx context.Context) string {
	if link, ok := e.resolveText(ctx, "book_tickets"); ok {
		return link
	}
	link, _ := e.resolveText(ctx, "reserve_table")
	return link
}

// extractTags splits the review-keyword blob, caps the list, and unions
// in the category string when distinct.
func (e *Extractor) extractTags(ctx context.Context, category string) []string {
	var tags []string
	if text, ok := e.resolveRaw(ctx, "review_tags"); ok {
		for _, piece := range tagSplitRegexp.Split(text, -1) {
			tag := services.Normalize(piece)
			if tag == "" {
				continue
			}
			tags = append(tags, tag)
			if len(tags) >= e.cfg.Scrape.MaxTags {
				break
			}
		}
	}
	if category != "" && !containsString(tags, category) {
		tags = append(tags, category)
	}
	return tags
}

// extractImages opens the photo gallery (click failure is tolerated),
// dedupes by URL, rewrites resolution parameters to the high-res
// template, and caps the list.
func (e *Extractor) extractImages(ctx context.Context) []string {
	if h, err := e.driver.WaitForSelector(ctx, config.Selectors["images_button"].Primary, e.cfg.ElementWait()/2); err == nil {
		if err := e.driver.Click(ctx, h); err != nil {
			e.log.Debug("photo gallery click failed", zap.Error(err))
		}
	}

	handles, err := e.driver.QueryAll(ctx, config.Selectors["images"].Primary)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var images []string
	for _, h := range handles {
		if len(images) >= e.cfg.Scrape.MaxImages {
			break
		}
		src, err := e.driver.GetAttribute(ctx, h, "src")
		if err != nil || !strings.Contains(src, "googleusercontent") {
			continue
		}
		highRes := imageResRegexp.ReplaceAllString(src, highResSuffix)
		if seen[highRes] {
			continue
		}
		seen[highRes] = true
		images = append(images, highRes)
	}
	return images
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
