package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"attractions-scraper/models"
)

// checkpointSchemaVersion guards resume against checkpoint files
// written by an incompatible build. A mismatch is rejected rather than
// silently migrated.
const checkpointSchemaVersion = 1

// ErrCheckpointVersion reports a checkpoint with a schema version this
// build does not understand.
var ErrCheckpointVersion = errors.New("storage: unsupported checkpoint schema version")

type checkpointFile struct {
	SchemaVersion int               `json:"schema_version"`
	OutputName    string            `json:"output_name"`
	SavedAt       time.Time         `json:"saved_at"`
	Results       *models.ResultSet `json:"results"`
}

// Checkpoint persists the in-progress result set. It is called after
// every accepted or failed record so a crashed run loses at most one.
// The write goes through a temp file and a rename so a crash mid-write
// never corrupts the previous checkpoint.
func (s *Store) Checkpoint(results *models.ResultSet) error {
	if !s.checkpoint {
		return nil
	}

	cp := checkpointFile{
		SchemaVersion: checkpointSchemaVersion,
		OutputName:    s.outputName,
		SavedAt:       time.Now().UTC(),
		Results:       results,
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("storage: marshal checkpoint: %w", err)
	}

	path := filepath.Join(s.dir, checkpointFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("storage: write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: commit checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores the result set of an interrupted run.
// Returns (nil, nil) when no checkpoint exists.
func (s *Store) LoadCheckpoint() (*models.ResultSet, error) {
	path := filepath.Join(s.dir, checkpointFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read checkpoint: %w", err)
	}

	var cp checkpointFile
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("storage: parse checkpoint: %w", err)
	}
	if cp.SchemaVersion != checkpointSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrCheckpointVersion, cp.SchemaVersion, checkpointSchemaVersion)
	}
	if cp.Results == nil {
		return nil, nil
	}

	stats := cp.Results.Stats()
	s.log.Info("resuming from checkpoint",
		zap.Int("records", stats.Successful),
		zap.Int("failed", stats.Failed),
		zap.Time("saved_at", cp.SavedAt))
	return cp.Results, nil
}
