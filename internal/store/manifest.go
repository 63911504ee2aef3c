package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = "manifest.json"

// Manifest records how a catalog data directory was built.
type Manifest struct {
	BuildTime     time.Time        `json:"build_time"`
	Source        string           `json:"source"`
	Encoding      string           `json:"encoding"`
	RowCount      int64            `json:"row_count"`
	StoredCount   int64            `json:"stored_count"`
	SkippedCount  int64            `json:"skipped_count"`
	SchemaVersion int              `json:"schema_version"`
	SkipReasons   map[string]int64 `json:"skip_reasons,omitempty"`
}

// ReadManifest loads the manifest.json from the given data directory.
func ReadManifest(dataDir string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(dataDir, manifestFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.SchemaVersion != schemaVersion {
		return &m, fmt.Errorf("manifest schema version %d, want %d", m.SchemaVersion, schemaVersion)
	}
	return &m, nil
}

// WriteManifest serialises m to manifest.json inside dataDir, stamping the
// current schema version.
func WriteManifest(dataDir string, m *Manifest) error {
	m.SchemaVersion = schemaVersion

	f, err := os.Create(filepath.Join(dataDir, manifestFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
