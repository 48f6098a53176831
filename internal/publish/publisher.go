// Package publish loads the normalized typed tables into the two embedded
// query stores: a DuckDB analytical database and an SQLite FTS5 full-text
// index. Each run builds a fresh generation directory and only swaps the
// "current" pointer after everything in it is durably written, so a failure
// at any point leaves the previously published generation intact.
package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"hangar/internal/extract"
	"hangar/internal/manifest"
	"hangar/internal/schema"
)

const (
	duckdbFile = "registry.duckdb"
	sqliteFile = "owners.sqlite"

	// CurrentLink is the stable name the query layer resolves a generation
	// through. Store and index names inside a generation never change
	// between runs.
	CurrentLink = "current"
)

// Publisher builds one published generation from a normalize run's output.
type Publisher struct {
	registry    *schema.Registry
	normDir     string
	publishRoot string
	snapshot    string
	runID       string
}

// New creates a publisher. The schema registry is explicit, mirroring the
// normalizer.
func New(registry *schema.Registry, normDir, publishRoot, snapshot, runID string) *Publisher {
	return &Publisher{
		registry:    registry,
		normDir:     normDir,
		publishRoot: publishRoot,
		snapshot:    snapshot,
		runID:       runID,
	}
}

// GenerationDir returns the uniquely-named directory this run publishes into.
func (p *Publisher) GenerationDir() string {
	run := p.runID
	if len(run) > 8 {
		run = run[:8]
	}
	return filepath.Join(p.publishRoot, fmt.Sprintf("gen-%s-%s", p.snapshot, run))
}

// Run executes the publish stage: verify the normalize fragment against the
// files on disk, load DuckDB, build the full-text index, write the publish
// fragment, then atomically swap the current pointer. On any failure the
// half-built generation is removed and the previous one stays current.
func (p *Publisher) Run(ctx context.Context, frag *manifest.Manifest) (*manifest.Stage, error) {
	started := time.Now().UTC()
	genDir := p.GenerationDir()

	// Each run owns a fresh generation directory. Refusing to reuse one
	// guarantees the failure cleanup below can never touch a generation some
	// earlier run published.
	if _, err := os.Stat(genDir); err == nil {
		return nil, fmt.Errorf("generation directory %s already exists", genDir)
	}
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create generation directory: %w", err)
	}

	stage, err := p.build(ctx, genDir, frag)
	if err != nil {
		os.RemoveAll(genDir)
		return nil, err
	}
	stage.StartedAt = started
	stage.CompletedAt = time.Now().UTC()

	// Both stores are closed by now; record their final size and hash.
	for _, name := range []string{duckdbFile, sqliteFile} {
		rec, err := storeRecord(genDir, name)
		if err != nil {
			os.RemoveAll(genDir)
			return nil, err
		}
		stage.Outputs = append(stage.Outputs, rec)
	}

	pubFrag := manifest.Manifest{SnapshotDate: p.snapshot, RunID: p.runID, CreatedAt: stage.CompletedAt, Stages: []manifest.Stage{*stage}}
	if err := pubFrag.Write(filepath.Join(genDir, "_meta", "publish.json")); err != nil {
		os.RemoveAll(genDir)
		return nil, err
	}

	// The swap is the single serialization point: everything above is
	// invisible to readers until this rename lands.
	if err := manifest.SwapSymlink(filepath.Base(genDir), filepath.Join(p.publishRoot, CurrentLink)); err != nil {
		os.RemoveAll(genDir)
		return nil, err
	}
	log.Printf("Published generation %s", genDir)

	return stage, nil
}

func (p *Publisher) build(ctx context.Context, genDir string, frag *manifest.Manifest) (*manifest.Stage, error) {
	// Re-verify every typed table against what the normalize stage declared
	// before anything is loaded.
	for _, desc := range p.registry.TargetTables() {
		rec, ok := frag.Table(desc.Name)
		if !ok {
			return nil, &manifest.IntegrityError{Table: desc.Name, Detail: "missing from normalize manifest"}
		}
		if rec.SchemaHash != desc.Hash() {
			return nil, &manifest.IntegrityError{
				Table:  desc.Name,
				Detail: fmt.Sprintf("schema hash %s does not match registry %s (schema drift)", rec.SchemaHash, desc.Hash()),
			}
		}
		sum, err := extract.HashFile(p.tablePath(desc.Name))
		if err != nil {
			return nil, err
		}
		if rec.SHA256 != "" && sum != rec.SHA256 {
			return nil, &manifest.IntegrityError{
				Table:  desc.Name,
				Detail: fmt.Sprintf("content hash %s does not match manifest %s", sum, rec.SHA256),
			}
		}
	}

	tables, db, err := p.buildAnalyticalStore(ctx, genDir, frag)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ftsRows, err := p.buildSearchIndex(ctx, genDir, db)
	if err != nil {
		return nil, err
	}
	tables = append(tables, manifest.TableRecord{Name: "owners_fts", RowCount: ftsRows})

	return &manifest.Stage{Name: "publish", Tables: tables}, nil
}

func (p *Publisher) tablePath(name string) string {
	return filepath.Join(p.normDir, name+".parquet")
}

func storeRecord(genDir, name string) (manifest.FileRecord, error) {
	path := filepath.Join(genDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return manifest.FileRecord{}, fmt.Errorf("failed to stat store %s: %w", name, err)
	}
	sum, err := extract.HashFile(path)
	if err != nil {
		return manifest.FileRecord{}, err
	}
	return manifest.FileRecord{Name: name, Size: info.Size(), SHA256: sum}, nil
}
