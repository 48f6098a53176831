package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SourceFile records one fetched extract file as the fetcher left it.
type SourceFile struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// SourceManifest is written by the external fetch step alongside the raw
// files. The normalizer consumes it for provenance and integrity checks; it
// never fetches anything itself.
type SourceManifest struct {
	SnapshotDate string       `json:"snapshot_date"`
	FetchedAt    string       `json:"fetched_at"`
	Files        []SourceFile `json:"files"`
}

// LoadSourceManifest reads the fetch manifest from a raw snapshot directory.
func LoadSourceManifest(rawDir string) (*SourceManifest, error) {
	path := filepath.Join(rawDir, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source manifest: %w", err)
	}
	var m SourceManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse source manifest %s: %w", path, err)
	}
	return &m, nil
}

// File returns the manifest entry for a named source file.
func (m *SourceManifest) File(name string) (*SourceFile, error) {
	for i := range m.Files {
		if m.Files[i].Name == name {
			return &m.Files[i], nil
		}
	}
	return nil, fmt.Errorf("source manifest has no entry for %s", name)
}

// Verify recomputes the size and content hash of the file on disk and
// compares them with what the fetch manifest declared. A mismatch is fatal
// before normalization starts.
func (f *SourceFile) Verify(rawDir string) error {
	path := filepath.Join(rawDir, f.Name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("source file %s: %w", f.Name, err)
	}
	if info.Size() != f.Size {
		return fmt.Errorf("source file %s: size %d does not match manifest size %d",
			f.Name, info.Size(), f.Size)
	}
	sum, err := HashFile(path)
	if err != nil {
		return err
	}
	if sum != f.SHA256 {
		return fmt.Errorf("source file %s: sha256 %s does not match manifest %s",
			f.Name, sum, f.SHA256)
	}
	return nil
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
