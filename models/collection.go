package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FailedAttempt records one input that did not produce a valid record.
type FailedAttempt struct {
	Input     string    `json:"input"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats summarizes a scraping session.
type Stats struct {
	Total      int            `json:"total_attractions"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	ByType     map[string]int `json:"by_type"`
}

// ResultSet groups validated records by category alongside the failed
// attempts of the same run. Records are appended once and never mutated.
// ResultSet is not safe for concurrent use; each job owns its own.
type ResultSet struct {
	Attractions map[string][]Attraction
	Failed      []FailedAttempt
}

// NewResultSet returns an empty collection with every category key
// initialized, so output and index always carry all four groups.
func NewResultSet() *ResultSet {
	attractions := make(map[string][]Attraction, len(CategoryKeys()))
	for _, key := range CategoryKeys() {
		attractions[key] = nil
	}
	return &ResultSet{Attractions: attractions}
}

// Add appends a validated record to its category group.
func (rs *ResultSet) Add(a Attraction) {
	key := CategoryKey(a.Base().Type)
	rs.Attractions[key] = append(rs.Attractions[key], a)
}

// AddFailed records a failed attempt with the current timestamp.
func (rs *ResultSet) AddFailed(input, errMsg string) {
	rs.Failed = append(rs.Failed, FailedAttempt{
		Input:     input,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

// Stats computes the session summary.
func (rs *ResultSet) Stats() Stats {
	byType := make(map[string]int, len(rs.Attractions))
	successful := 0
	for _, key := range CategoryKeys() {
		n := len(rs.Attractions[key])
		byType[key] = n
		successful += n
	}
	return Stats{
		Total:      successful + len(rs.Failed),
		Successful: successful,
		Failed:     len(rs.Failed),
		ByType:     byType,
	}
}

// ProcessedURLs lists the source URLs of every recorded attraction.
// Used on checkpoint resume to skip already-scraped inputs.
func (rs *ResultSet) ProcessedURLs() []string {
	var urls []string
	for _, key := range CategoryKeys() {
		for _, a := range rs.Attractions[key] {
			if u := a.Base().SourceURL; u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}

type resultSetWire struct {
	Attractions map[string][]json.RawMessage `json:"attractions"`
	Failed      []FailedAttempt              `json:"failed_attractions"`
}

// MarshalJSON writes the checkpoint wire shape: records grouped by
// category plus the failed-attempts list.
func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	wire := resultSetWire{
		Attractions: make(map[string][]json.RawMessage, len(rs.Attractions)),
		Failed:      rs.Failed,
	}
	for key, list := range rs.Attractions {
		raws := make([]json.RawMessage, 0, len(list))
		for _, a := range list {
			raw, err := json.Marshal(a)
			if err != nil {
				return nil, fmt.Errorf("encode %s record: %w", key, err)
			}
			raws = append(raws, raw)
		}
		wire.Attractions[key] = raws
	}
	return json.Marshal(wire)
}

// UnmarshalJSON rebuilds the collection, restoring each record to its
// concrete variant.
func (rs *ResultSet) UnmarshalJSON(data []byte) error {
	var wire resultSetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	fresh := NewResultSet()
	for key, raws := range wire.Attractions {
		for _, raw := range raws {
			a, err := UnmarshalAttraction(raw)
			if err != nil {
				return fmt.Errorf("category %s: %w", key, err)
			}
			fresh.Attractions[key] = append(fresh.Attractions[key], a)
		}
	}
	fresh.Failed = wire.Failed
	*rs = *fresh
	return nil
}
