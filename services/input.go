package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Input parsing errors.
var (
	ErrUnsupportedInput = errors.New("input: unsupported file format")
	ErrEmptyInput       = errors.New("input: no usable entries")
)

// SearchItem is a place to locate by name rather than by direct URL.
type SearchItem struct {
	Name     string `json:"name"`
	City     string `json:"city,omitempty"`
	TypeHint string `json:"type,omitempty"`
}

// InputSet is the parsed content of an input file: direct place URLs
// plus items that still need search resolution.
type InputSet struct {
	URLs     []string
	Searches []SearchItem
}

// InputProcessor reads job input files. CSV rows are either a single
// maps URL or name,city,type columns; TXT files carry one URL per line
// with # comments; JSON files carry {"urls": [...], "attractions": [...]}.
type InputProcessor struct {
	log *zap.Logger
}

func NewInputProcessor(log *zap.Logger) *InputProcessor {
	return &InputProcessor{log: log}
}

// Load parses the file at path based on its extension.
func (p *InputProcessor) Load(path string) (*InputSet, error) {
	var (
		set *InputSet
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		set, err = p.loadCSV(path)
	case ".txt":
		set, err = p.loadTXT(path)
	case ".json":
		set, err = p.loadJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(set.URLs) == 0 && len(set.Searches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}

	p.log.Info("input loaded",
		zap.String("file", path),
		zap.Int("urls", len(set.URLs)),
		zap.Int("searches", len(set.Searches)))
	return set, nil
}

func (p *InputProcessor) loadCSV(path string) (*InputSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("input: parse %q: %w", path, err)
	}

	set := &InputSet{}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(row[0])
		if first == "" {
			continue
		}
		// Header row.
		if i == 0 && (strings.EqualFold(first, "name") || strings.EqualFold(first, "url")) {
			continue
		}
		if strings.HasPrefix(first, "http") {
			p.addURL(set, first, path, i+1)
			continue
		}
		item := SearchItem{Name: first}
		if len(row) > 1 {
			item.City = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			item.TypeHint = strings.TrimSpace(row[2])
		}
		set.Searches = append(set.Searches, item)
	}
	return set, nil
}

func (p *InputProcessor) loadTXT(path string) (*InputSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input: read %q: %w", path, err)
	}

	set := &InputSet{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.addURL(set, line, path, i+1)
	}
	return set, nil
}

func (p *InputProcessor) loadJSON(path string) (*InputSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input: read %q: %w", path, err)
	}

	var wire struct {
		URLs        []string     `json:"urls"`
		Attractions []SearchItem `json:"attractions"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("input: parse %q: %w", path, err)
	}

	set := &InputSet{}
	for i, u := range wire.URLs {
		p.addURL(set, strings.TrimSpace(u), path, i+1)
	}
	for _, item := range wire.Attractions {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		set.Searches = append(set.Searches, item)
	}
	return set, nil
}

// addURL appends the URL if it points at Google Maps, otherwise logs
// and skips it.
func (p *InputProcessor) addURL(set *InputSet, url, path string, line int) {
	if !IsMapsURL(url) {
		p.log.Warn("skipping non-maps URL",
			zap.String("file", path), zap.Int("line", line), zap.String("url", url))
		return
	}
	set.URLs = append(set.URLs, url)
}

// IsMapsURL reports whether the URL belongs to Google Maps, including
// the short-link domain.
func IsMapsURL(url string) bool {
	return strings.Contains(url, "google.com/maps") ||
		strings.Contains(url, "maps.app.goo.gl") ||
		strings.Contains(url, "goo.gl/maps")
}
