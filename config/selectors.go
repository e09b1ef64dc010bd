package config

// Google Maps selector chains. Maps frequently reshuffles its DOM, so
// every field carries fallbacks; the extractor tries them in order with
// a shorter wait per fallback.

// SelectorChain is an ordered list of locators for one page element.
// Attribute names the HTML attribute to read; empty means text content.
type SelectorChain struct {
	Primary   string
	Fallbacks []string
	Attribute string
}

// Selectors indexes the per-field chains consumed by the extractor.
var Selectors = map[string]SelectorChain{
	"name": {
		Primary:   "h1.DUwDvf",
		Fallbacks: []string{"h1[class*='fontHeadlineLarge']", "h1.lfPIob"},
	},
	"description": {
		Primary:   "div.WeS02d.fontBodyMedium",
		Fallbacks: []string{"div[class*='description']", "div.PYvSYb"},
	},
	"category": {
		Primary:   "button[jsaction*='category']",
		Fallbacks: []string{"button.DkEaL", "div[aria-label*='Category']"},
	},
	"price": {
		Primary:   "span[aria-label*='Price']",
		Fallbacks: []string{"span.mgr77e", "div[aria-label*='₪']"},
	},
	"address": {
		Primary:   "button[data-item-id='address']",
		Fallbacks: []string{"div[aria-label*='Address']", "button.CsEnBe[aria-label]"},
	},
	"hours_button": {
		Primary:   "button[data-item-id*='hours']",
		Fallbacks: []string{"button[aria-label*='Hours']", "div.t39EBf button"},
	},
	"hours_content": {
		Primary:   "table.eK4R0e",
		Fallbacks: []string{"div[aria-label*='Hours']", "table.WgFkxc"},
	},
	"popular_times": {
		Primary:   "div[aria-label*='Popular times']",
		Fallbacks: []string{"div[class*='popular']"},
	},
	"images_button": {
		Primary:   "button[aria-label*='Photos']",
		Fallbacks: []string{"button.aoRNLd", "div[aria-label*='Photo']"},
	},
	"images": {
		Primary:   "img[src*='googleusercontent']",
		Fallbacks: []string{"img.U39Pmb", "img[class*='photo']"},
		Attribute: "src",
	},
	"website": {
		Primary:   "a[data-item-id='authority']",
		Fallbacks: []string{"a[aria-label*='Website']", "a.CsEnBe[href^='http']"},
		Attribute: "href",
	},
	"book_tickets": {
		Primary:   "a[data-item-id='tickets']",
		Fallbacks: []string{"a[aria-label*='Tickets']", "a[href*='ticket']"},
		Attribute: "href",
	},
	"reserve_table": {
		Primary:   "a[data-item-id='reservations']",
		Fallbacks: []string{"a[aria-label*='Reserve']", "a[href*='reservation']"},
		Attribute: "href",
	},
	"dietary": {
		Primary:   "div[aria-label*='Dining options']",
		Fallbacks: []string{"div[class*='dietary']", "span[aria-label*='Vegetarian']"},
	},
	"review_tags": {
		Primary:   "div[jsaction*='pane.reviewChart.moreDescription']",
		Fallbacks: []string{"button.hh2c6", "div[class*='review-tag']"},
	},
	"search_results": {
		Primary:   "div[role='feed']",
		Fallbacks: []string{"div.m6QErb", "div[aria-label*='Results']"},
	},
	"search_result_item": {
		Primary:   "a[href*='/maps/place/']",
		Fallbacks: []string{"a.hfpxzc"},
		Attribute: "href",
	},
	"meta_latitude": {
		Primary:   "meta[property='og:latitude']",
		Attribute: "content",
	},
	"meta_longitude": {
		Primary:   "meta[property='og:longitude']",
		Attribute: "content",
	},
}

// DayToken pairs one day token found in hours text with its canonical
// English day name.
type DayToken struct {
	Token string
	Day   string
}

// DayTokens lists known day tokens (Hebrew, with a couple of short
// forms) in fixed match order, so a line naming several days always
// resolves to the same one.
var DayTokens = []DayToken{
	{"ראשון", "Sunday"},
	{"שני", "Monday"},
	{"שלישי", "Tuesday"},
	{"רביעי", "Wednesday"},
	{"חמישי", "Thursday"},
	{"שישי", "Friday"},
	{"שבת", "Saturday"},
	{"יום א'", "Sunday"},
	{"יום ב'", "Monday"},
	{"יום ג'", "Tuesday"},
	{"יום ד'", "Wednesday"},
	{"יום ה'", "Thursday"},
	{"יום ו'", "Friday"},
	{"sunday", "Sunday"},
	{"monday", "Monday"},
	{"tuesday", "Tuesday"},
	{"wednesday", "Wednesday"},
	{"thursday", "Thursday"},
	{"friday", "Friday"},
	{"saturday", "Saturday"},
}

// WeekDays lists canonical day names in week order, used when
// synthesizing a 24-hour table.
var WeekDays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// AroundTheClockIndicators mark a place as open 24 hours.
var AroundTheClockIndicators = []string{"24/7", "24 hours", "open 24", "פתוח 24", "סביב השעון"}
