// Package runner orchestrates the batch pipeline: normalize fully completes
// and validates before publish begins, and the chained run manifest is only
// written once both stages have succeeded.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hangar/internal/cli/config"
	"hangar/internal/extract"
	"hangar/internal/manifest"
	"hangar/internal/normalize"
	"hangar/internal/publish"
	"hangar/internal/schema"
)

const latestManifest = "latest.json"

type Runner struct {
	cfg      *config.Config
	registry *schema.Registry
	snapshot string
	runID    string
}

// New resolves the snapshot to operate on: an explicit flag wins, then the
// config file, then the newest snapshot directory under the raw data root.
func New(cfg *config.Config, snapshot string) (*Runner, error) {
	if snapshot == "" {
		snapshot = cfg.Snapshot
	}
	if snapshot == "" {
		latest, err := latestSnapshot(cfg)
		if err != nil {
			return nil, err
		}
		snapshot = latest
	}
	return &Runner{
		cfg:      cfg,
		registry: schema.NewRegistry(),
		snapshot: snapshot,
		runID:    uuid.NewString(),
	}, nil
}

func latestSnapshot(cfg *config.Config) (string, error) {
	rawRoot := filepath.Join(cfg.DataRoot, "raw")
	entries, err := os.ReadDir(rawRoot)
	if err != nil {
		return "", errors.Wrap(err, "no snapshot specified and raw data root unreadable")
	}
	var snapshots []string
	for _, e := range entries {
		if e.IsDir() {
			snapshots = append(snapshots, e.Name())
		}
	}
	if len(snapshots) == 0 {
		return "", fmt.Errorf("no snapshots found under %s", rawRoot)
	}
	sort.Strings(snapshots)
	return snapshots[len(snapshots)-1], nil
}

// Snapshot returns the snapshot date this runner operates on.
func (r *Runner) Snapshot() string {
	return r.snapshot
}

// Normalize runs the normalize stage for the resolved snapshot.
func (r *Runner) Normalize(ctx context.Context) (*normalize.Result, error) {
	n := normalize.New(
		r.registry,
		r.cfg.RawDir(r.snapshot),
		r.cfg.NormalizedDir(r.snapshot),
		r.cfg.Compression,
		r.snapshot,
		r.runID,
	)
	result, err := n.Run(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "normalize stage failed")
	}
	return result, nil
}

// Publish loads the normalize fragment for the snapshot, builds a fresh
// generation, swaps it in, and writes the chained run manifest.
func (r *Runner) Publish(ctx context.Context) error {
	frag, err := normalize.LoadStageFragment(r.cfg.NormalizedDir(r.snapshot))
	if err != nil {
		return errors.Wrap(err, "no normalized data found; run 'hangar normalize' first")
	}
	// The generation name uses this invocation's run id, not the normalize
	// run's, so re-publishing the same snapshot always builds a fresh
	// generation instead of colliding with an existing one.
	p := publish.New(r.registry, r.cfg.NormalizedDir(r.snapshot), r.cfg.PublishRoot(), r.snapshot, r.runID)
	stage, err := p.Run(ctx, frag)
	if err != nil {
		return errors.Wrap(err, "publish stage failed")
	}

	prev, err := r.previousRef()
	if err != nil {
		return err
	}

	run := manifest.Manifest{
		SnapshotDate: r.snapshot,
		RunID:        r.runID,
		CreatedAt:    time.Now().UTC(),
		Stages:       append(frag.Stages, *stage),
		Previous:     prev,
	}
	name := fmt.Sprintf("run-%s-%s.json", r.snapshot, shortID(r.runID))
	path := filepath.Join(r.cfg.ManifestDir(), name)
	if err := run.Write(path); err != nil {
		return err
	}
	if err := manifest.SwapSymlink(name, filepath.Join(r.cfg.ManifestDir(), latestManifest)); err != nil {
		return err
	}

	r.printSummary(&run, prev)
	return nil
}

// Run executes the full batch: normalize, then publish.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.Normalize(ctx); err != nil {
		return err
	}
	return r.Publish(ctx)
}

// previousRef resolves the prior run's manifest so the new one can chain to
// it. A missing pointer just means this is the first run.
func (r *Runner) previousRef() (*manifest.Ref, error) {
	link := filepath.Join(r.cfg.ManifestDir(), latestManifest)
	target, err := os.Readlink(link)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to resolve previous manifest")
	}
	path := filepath.Join(r.cfg.ManifestDir(), target)
	sum, err := extract.HashFile(path)
	if err != nil {
		return nil, err
	}
	return &manifest.Ref{Path: target, SHA256: sum}, nil
}

// printSummary reports per-table row counts, with a delta against the
// previous run when one exists.
func (r *Runner) printSummary(run *manifest.Manifest, prev *manifest.Ref) {
	var prevRun *manifest.Manifest
	if prev != nil {
		if m, err := manifest.Load(filepath.Join(r.cfg.ManifestDir(), prev.Path)); err == nil {
			prevRun = m
		}
	}

	fmt.Println(color.CyanString("Published tables:"))
	for _, stage := range run.Stages {
		if stage.Name != "publish" {
			continue
		}
		for _, t := range stage.Tables {
			line := fmt.Sprintf("  %-22s %10d rows", t.Name, t.RowCount)
			if prevRun != nil {
				if pt, ok := prevRun.Table(t.Name); ok {
					delta := t.RowCount - pt.RowCount
					switch {
					case delta > 0:
						line += color.GreenString("  (+%d)", delta)
					case delta < 0:
						line += color.RedString("  (%d)", delta)
					}
				}
			}
			fmt.Println(line)
		}
	}
	for _, stage := range run.Stages {
		if stage.Name == "normalize" && stage.RowsDropped > 0 {
			fmt.Println(color.YellowString("  %d malformed rows dropped", stage.RowsDropped))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
