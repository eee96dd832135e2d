// Package storage holds the persistence pieces of the pipeline: the JSON
// mirror of the external catalog, the append-only audit log, and the
// key-value status store used for job state and staging.
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"gadgetsync/internal/pipeline/business/models"
	"gadgetsync/pkg/logger"
)

// Mirror reads and writes the locally persisted catalog snapshot. The file is
// always read in full and rewritten in full; there is no record-level update.
type Mirror struct {
	path string
	log  logger.Logger
}

func NewMirror(path string, log logger.Logger) *Mirror {
	return &Mirror{path: path, log: log}
}

// Load parses the mirror file and validates each record at the boundary.
// Malformed entries are logged and skipped rather than surfacing nil-shaped
// surprises deep inside sync.
func (m *Mirror) Load() ([]models.ProductRecord, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read mirror %s: %w", m.path, err)
	}

	var raw []models.ProductRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mirror %s: %w", m.path, err)
	}

	records := raw[:0]
	for _, rec := range raw {
		if err := rec.Validate(); err != nil {
			m.log.Log("skipping malformed mirror entry: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save rewrites the whole mirror file. Pretty-printed so the snapshot stays
// inspectable by hand, matching how it has always been kept.
func (m *Mirror) Save(records []models.ProductRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mirror: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("write mirror %s: %w", m.path, err)
	}
	return nil
}

// Path returns the mirror file location.
func (m *Mirror) Path() string { return m.path }
