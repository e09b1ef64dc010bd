package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"attractions-scraper/config"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// SearchScraper discovers place URLs by querying the map service's
// search surface, for jobs submitted as name/city items rather than
// direct URLs.
type SearchScraper struct {
	driver PageDriver
	cfg    *config.Config
	log    *zap.Logger
}

// NewSearchScraper binds a SearchScraper to a page driver session.
func NewSearchScraper(driver PageDriver, cfg *config.Config, log *zap.Logger) *SearchScraper {
	return &SearchScraper{driver: driver, cfg: cfg, log: log}
}

// Search runs one query and returns the place URLs of the result feed,
// deduplicated and capped at the configured maximum.
func (s *SearchScraper) Search(ctx context.Context, name, city string) ([]string, error) {
	query := name
	if city != "" {
		query = fmt.Sprintf("%s, %s", name, city)
	}
	s.log.Info("searching", zap.String("query", query))

	searchURL := searchBaseURL + url.QueryEscape(query)
	if err := s.driver.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", ErrNavigation, query, err)
	}

	if _, err := s.driver.WaitForSelector(ctx, config.Selectors["search_results"].Primary, s.cfg.ElementWait()); err != nil {
		s.log.Warn("search results feed not found", zap.String("query", query))
		return nil, nil
	}

	handles, err := s.driver.QueryAll(ctx, config.Selectors["search_result_item"].Primary)
	if err != nil {
		return nil, fmt.Errorf("search results query: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, h := range handles {
		if len(urls) >= s.cfg.Scrape.MaxSearchResults {
			break
		}
		href, err := s.driver.GetAttribute(ctx, h, "href")
		if err != nil || !strings.Contains(href, "/maps/place/") {
			continue
		}
		clean := href
		if i := strings.IndexByte(clean, '?'); i >= 0 {
			clean = clean[:i]
		}
		if seen[clean] {
			continue
		}
		seen[clean] = true
		urls = append(urls, clean)
	}

	s.log.Info("search done",
		zap.String("query", query),
		zap.Int("results", len(urls)))
	return urls, nil
}
