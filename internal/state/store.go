package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
)

// Store persists the checker state blob. Saves are atomic: serialize, sanity
// re-parse, write to a pid-stamped temp sibling, rename over the target.
// Concurrent readers (the API server, the dashboard) therefore always see
// either the prior or the new blob.
type Store struct {
	path            string
	maxAlertHistory int
	logger          *logging.Logger
}

// NewStore creates a store over the given state file path.
func NewStore(path string, maxAlertHistory int, logger *logging.Logger) *Store {
	return &Store{path: path, maxAlertHistory: maxAlertHistory, logger: logger}
}

// Load reads the state file, merging its fields over defaults so older blobs
// missing newer fields still load. Parse failure falls back to defaults —
// the next save overwrites the broken file.
func (s *Store) Load() *models.CheckerState {
	st := models.DefaultCheckerState()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Errorf("Read state file failed, starting from defaults: %v", err)
		}
		return st
	}
	if err := json.Unmarshal(data, st); err != nil {
		s.logger.Errorf("Parse state file failed, starting from defaults: %v", err)
		return models.DefaultCheckerState()
	}
	// JSON null wipes map fields; restore them so callers can index freely.
	if st.LastCooldowns == nil {
		st.LastCooldowns = models.DefaultCheckerState().LastCooldowns
	}
	if st.DataHealth == nil {
		st.DataHealth = models.DefaultCheckerState().DataHealth
	}
	return st
}

// Save atomically replaces the state file. The serialized bytes are re-parsed
// before touching disk; a blob that cannot round-trip is never written.
func (s *Store) Save(st *models.CheckerState) error {
	if max := s.maxAlertHistory; max > 0 && len(st.AlertsSent) > max {
		st.AlertsSent = st.AlertsSent[len(st.AlertsSent)-max:]
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize state failed: %w", err)
	}
	var check models.CheckerState
	if err := json.Unmarshal(data, &check); err != nil {
		return fmt.Errorf("serialized state failed sanity re-parse, aborting save: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir failed: %w", err)
	}
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file failed: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename state file failed: %w", err)
	}
	return nil
}

// Exists reports whether a state file has been written yet; the dashboard
// uses this as "checker active".
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
