// Package manifest records the provenance of every pipeline run: the inputs
// each stage consumed, the tables it produced, and a chained reference to the
// previous snapshot's manifest so cross-snapshot diffing can be added later
// without reprocessing history.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileRecord is one consumed input file.
type FileRecord struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// TableRecord is one produced table.
type TableRecord struct {
	Name       string `json:"name"`
	RowCount   int64  `json:"row_count"`
	SchemaHash string `json:"schema_hash"`
	SHA256     string `json:"sha256,omitempty"`
}

// Ref points at a prior manifest by path and content hash.
type Ref struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Stage is the manifest fragment for one pipeline stage.
type Stage struct {
	Name        string        `json:"name"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Inputs      []FileRecord  `json:"inputs,omitempty"`
	Outputs     []FileRecord  `json:"outputs,omitempty"`
	Tables      []TableRecord `json:"tables,omitempty"`
	RowsRead    int64         `json:"rows_read,omitempty"`
	RowsDropped int64         `json:"rows_dropped,omitempty"`
	FieldsNull  int64         `json:"fields_nulled,omitempty"`
}

// Manifest is the full provenance record for one run.
type Manifest struct {
	SnapshotDate string    `json:"snapshot_date"`
	RunID        string    `json:"run_id"`
	CreatedAt    time.Time `json:"created_at"`
	Stages       []Stage   `json:"stages"`
	Previous     *Ref      `json:"previous,omitempty"`
}

// IntegrityError reports a table whose recomputed row count or hash does not
// match what an earlier stage declared. It aborts publish before the swap.
type IntegrityError struct {
	Table  string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("manifest integrity failure for table %s: %s", e.Table, e.Detail)
}

// Table returns the record for a named table across all stages, later stages
// taking precedence.
func (m *Manifest) Table(name string) (*TableRecord, bool) {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		for j := range m.Stages[i].Tables {
			if m.Stages[i].Tables[j].Name == name {
				return &m.Stages[i].Tables[j], true
			}
		}
	}
	return nil, false
}

// Write persists the manifest atomically (write temp, fsync, rename).
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return WriteAtomic(path, append(data, '\n'))
}

// Load reads a manifest from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
