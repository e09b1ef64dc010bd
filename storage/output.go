package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"attractions-scraper/models"
)

// ErrOutputExists reports a run directory that already holds a
// finalized index.
var ErrOutputExists = errors.New("storage: output already finalized")

const (
	indexFileName      = "index.json"
	errorLogFileName   = "errors.json"
	checkpointFileName = "checkpoint.json"
)

// Store manages the artifacts of a single scraping run: an
// incremental checkpoint while the run is live, and per-record JSON
// files plus an index once it finalizes.
type Store struct {
	dir        string
	outputName string
	checkpoint bool
	log        *zap.Logger
}

// Index is the run manifest written at finalize time.
type Index struct {
	OutputName  string                 `json:"output_name"`
	GeneratedAt time.Time              `json:"generated_at"`
	Total       int                    `json:"total"`
	ByType      map[string]int         `json:"by_type"`
	Files       map[string][]string    `json:"files"`
	Failed      []models.FailedAttempt `json:"failed_attractions,omitempty"`
}

// NewStore creates the run directory under baseDir.
func NewStore(baseDir, outputName string, checkpointEnabled bool, log *zap.Logger) (*Store, error) {
	dir := filepath.Join(baseDir, outputName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create output dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(dir, indexFileName)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, dir)
	}
	return &Store{
		dir:        dir,
		outputName: outputName,
		checkpoint: checkpointEnabled,
		log:        log.With(zap.String("output", outputName)),
	}, nil
}

// Dir returns the run directory.
func (s *Store) Dir() string {
	return s.dir
}

// Finalize writes one JSON file per record, the index manifest, and an
// error log when any attempt failed. The checkpoint is removed once
// the index is on disk.
func (s *Store) Finalize(results *models.ResultSet) error {
	stats := results.Stats()
	index := Index{
		OutputName:  s.outputName,
		GeneratedAt: time.Now().UTC(),
		Total:       stats.Successful,
		ByType:      stats.ByType,
		Files:       make(map[string][]string),
		Failed:      results.Failed,
	}

	used := make(map[string]int)
	for _, category := range models.CategoryKeys() {
		categoryDir := filepath.Join(s.dir, category)
		records := results.Attractions[category]
		if len(records) == 0 {
			continue
		}
		if err := os.MkdirAll(categoryDir, 0755); err != nil {
			return fmt.Errorf("storage: create category dir: %w", err)
		}
		for _, a := range records {
			name := recordFileName(a.Base().Name, used)
			if err := writeJSON(filepath.Join(categoryDir, name), a); err != nil {
				return err
			}
			index.Files[category] = append(index.Files[category], filepath.Join(category, name))
		}
	}

	if len(results.Failed) > 0 {
		if err := writeJSON(filepath.Join(s.dir, errorLogFileName), results.Failed); err != nil {
			return err
		}
	}

	if err := writeJSON(filepath.Join(s.dir, indexFileName), index); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, checkpointFileName)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("could not remove checkpoint", zap.Error(err))
	}

	s.log.Info("output finalized",
		zap.Int("records", stats.Successful),
		zap.Int("failed", stats.Failed),
		zap.String("dir", s.dir))
	return nil
}

// recordFileName turns a record name into a filesystem-safe JSON file
// name, suffixing duplicates with a counter.
func recordFileName(name string, used map[string]int) string {
	base := sanitizeFileName(name)
	if base == "" {
		base = "attraction"
	}
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base + ".json"
	}
	return fmt.Sprintf("%s_%d.json", base, n)
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	const maxLen = 80
	if runes := []rune(out); len(runes) > maxLen {
		out = string(runes[:maxLen])
	}
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("storage: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
