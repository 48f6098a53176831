// Package normalize turns one raw registry extract into the canonical typed
// tables. The wide master file splits into aircraft, registrations and
// owners; the two reference files map onto aircraft_make_model and engines.
package normalize

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"hangar/internal/extract"
	"hangar/internal/identity"
	"hangar/internal/manifest"
	"hangar/internal/schema"
	"hangar/internal/standardize"
)

// Source file names as the fetcher leaves them in the raw snapshot directory.
const (
	masterFile  = "MASTER.txt"
	acftrefFile = "ACFTREF.txt"
	engineFile  = "ENGINE.txt"
)

// Normalizer parses the raw extract against the declared source schemas and
// writes one Parquet file per target table. It is strictly sequential and
// deterministic: the same raw snapshot always produces byte-identical output.
type Normalizer struct {
	registry    *schema.Registry
	rawDir      string
	outDir      string
	compression string
	snapshot    string
	runID       string
	alloc       memory.Allocator
}

// New creates a normalizer. The schema registry is an explicit dependency so
// tests can run against alternate schemas.
func New(registry *schema.Registry, rawDir, outDir, compression, snapshot, runID string) *Normalizer {
	return &Normalizer{
		registry:    registry,
		rawDir:      rawDir,
		outDir:      outDir,
		compression: compression,
		snapshot:    snapshot,
		runID:       runID,
		alloc:       memory.NewGoAllocator(),
	}
}

// Stats accumulates the per-row and per-field recoveries of one run. These
// are reported in aggregate, never raised individually.
type Stats struct {
	RowsRead    int64
	RowsDropped int64
	FieldsNull  int64
}

// Result is what a completed normalize run hands to the publisher.
type Result struct {
	Stage  manifest.Stage
	OutDir string
}

// Run executes the full normalize stage: verify inputs, split the master
// file, load the reference files, validate and write every target table, and
// persist the stage manifest fragment.
func (n *Normalizer) Run(ctx context.Context) (*Result, error) {
	started := time.Now().UTC()

	src, err := extract.LoadSourceManifest(n.rawDir)
	if err != nil {
		return nil, err
	}

	inputs := make([]manifest.FileRecord, 0, 3)
	for _, name := range []string{masterFile, acftrefFile, engineFile} {
		f, err := src.File(name)
		if err != nil {
			return nil, err
		}
		if err := f.Verify(n.rawDir); err != nil {
			return nil, err
		}
		inputs = append(inputs, manifest.FileRecord{
			Name: f.Name, URL: f.URL, Size: f.Size, SHA256: f.SHA256,
		})
		log.Printf("Verified source file %s (%d bytes)", f.Name, f.Size)
	}

	writers := make(map[string]*tableWriter, 5)
	for _, desc := range n.registry.TargetTables() {
		w, err := newTableWriter(desc, n.alloc)
		if err != nil {
			return nil, err
		}
		writers[desc.Name] = w
		defer w.Release()
	}

	var masterStats, refStats Stats
	if err := n.splitMaster(ctx, writers, &masterStats); err != nil {
		return nil, err
	}
	if err := n.loadMakeModel(ctx, writers[schema.AircraftMakeModel.Name], &refStats); err != nil {
		return nil, err
	}
	if err := n.loadEngines(ctx, writers[schema.Engines.Name], &refStats); err != nil {
		return nil, err
	}

	// The 1:1 split invariant: every kept master row yields exactly one
	// aircraft row and one registration row.
	kept := masterStats.RowsRead - masterStats.RowsDropped
	aircraft := writers[schema.Aircraft.Name].Rows()
	registrations := writers[schema.Registrations.Name].Rows()
	if aircraft != kept || registrations != kept {
		return nil, &manifest.IntegrityError{
			Table: schema.Aircraft.Name,
			Detail: fmt.Sprintf("split produced %d aircraft / %d registrations from %d kept rows",
				aircraft, registrations, kept),
		}
	}

	stats := Stats{
		RowsRead:    masterStats.RowsRead + refStats.RowsRead,
		RowsDropped: masterStats.RowsDropped + refStats.RowsDropped,
		FieldsNull:  masterStats.FieldsNull + refStats.FieldsNull,
	}

	codec := compressionCodec(n.compression)
	tables := make([]manifest.TableRecord, 0, len(writers))
	for _, desc := range n.registry.TargetTables() {
		w := writers[desc.Name]
		path := filepath.Join(n.outDir, desc.Name+".parquet")
		if err := w.WriteParquet(path, codec); err != nil {
			return nil, err
		}
		sum, err := extract.HashFile(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, manifest.TableRecord{
			Name:       desc.Name,
			RowCount:   w.Rows(),
			SchemaHash: desc.Hash(),
			SHA256:     sum,
		})
		log.Printf("Wrote %s: %d rows", desc.Name, w.Rows())
	}

	stage := manifest.Stage{
		Name:        "normalize",
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
		Inputs:      inputs,
		Tables:      tables,
		RowsRead:    stats.RowsRead,
		RowsDropped: stats.RowsDropped,
		FieldsNull:  stats.FieldsNull,
	}
	frag := manifest.Manifest{
		SnapshotDate: n.snapshot,
		RunID:        n.runID,
		CreatedAt:    stage.CompletedAt,
		Stages:       []manifest.Stage{stage},
	}
	if err := frag.Write(filepath.Join(n.outDir, "_meta", "normalize.json")); err != nil {
		return nil, err
	}

	log.Printf("Normalize complete: %d rows read, %d dropped, %d fields nulled",
		stats.RowsRead, stats.RowsDropped, stats.FieldsNull)

	return &Result{Stage: stage, OutDir: n.outDir}, nil
}

// LoadStageFragment reads the normalize fragment the publisher verifies
// against.
func LoadStageFragment(outDir string) (*manifest.Manifest, error) {
	return manifest.Load(filepath.Join(outDir, "_meta", "normalize.json"))
}

// splitMaster streams the master file and emits one aircraft row, one
// registration row and zero-or-one owner row per record. Malformed records
// (short field count) are the only rows dropped, and every drop is counted.
func (n *Normalizer) splitMaster(ctx context.Context, writers map[string]*tableWriter, stats *Stats) error {
	desc, err := n.registry.Lookup(schema.SourceMaster)
	if err != nil {
		return err
	}
	want := len(desc.Fields)

	return n.eachRecord(ctx, masterFile, want, stats, func(f []string) error {
		// Column offsets follow the declared master source schema.
		nNumber := f[0]
		if nNumber == "" {
			// A record with no registration number cannot key anything.
			stats.RowsDropped++
			return nil
		}

		aircraft := writers[schema.Aircraft.Name]
		if err := aircraft.Append([]interface{}{
			nNumber,
			nullableText(f[1]),       // serial_number
			nullableText(f[2]),       // mfr_mdl_code
			nullableText(f[3]),       // engine_code
			coerceInt32(f[4], stats), // year_mfr
			nullableText(f[18]),      // type_aircraft
			nullableText(f[19]),      // type_engine
			nullableText(f[20]),      // status_code
			nullableText(f[33]),      // mode_s_code_hex
			nullableText(f[22]),      // fract_owner
		}); err != nil {
			return err
		}

		registrations := writers[schema.Registrations.Name]
		if err := registrations.Append([]interface{}{
			nNumber,
			nullableText(f[5]),        // type_registrant
			coerceDate(f[16], stats),  // cert_issue_date
			coerceDate(f[29], stats),  // expiration_date
			coerceDate(f[15], stats),  // last_action_date
			coerceDate(f[23], stats),  // air_worth_date
			nullableText(f[20]),       // status_code
			nullableText(f[17]),       // certification
			nullableText(f[12]),       // region
			nullableText(f[13]),       // county
			nullableText(f[14]),       // country
		}); err != nil {
			return err
		}

		// Zero-or-one owner per record in the current extract layout.
		name, street, street2 := f[6], f[7], f[8]
		city, state, zip := f[9], f[10], f[11]
		if name == "" {
			return nil
		}
		ownerID := identity.DeriveOwnerID(name, street, street2, city, state, zip)
		addr := standardize.Standardize(street, street2, city, state, zip)

		owners := writers[schema.Owners.Name]
		return owners.Append([]interface{}{
			ownerID,
			nNumber,
			nullableText(f[5]), // owner_type mirrors type_registrant
			name,
			nullableText(street),
			nullableText(street2),
			nullableText(city),
			nullableText(state),
			nullableText(zip),
			standardize.CleanText(name),
			nullableText(addr.AddressAll),
			nullableText(addr.City),
			nullableText(addr.State),
			nullableText(addr.Zip5),
		})
	})
}

func (n *Normalizer) loadMakeModel(ctx context.Context, w *tableWriter, stats *Stats) error {
	desc, err := n.registry.Lookup(schema.SourceAcftRef)
	if err != nil {
		return err
	}
	return n.eachRecord(ctx, acftrefFile, len(desc.Fields), stats, func(f []string) error {
		if f[0] == "" {
			stats.RowsDropped++
			return nil
		}
		return w.Append([]interface{}{
			f[0],                      // mfr_mdl_code
			nullableText(f[1]),        // maker
			nullableText(f[2]),        // model
			nullableText(f[3]),        // type_acft
			coerceInt32(f[7], stats),  // num_engines
			coerceInt32(f[8], stats),  // num_seats
			nullableText(f[9]),        // ac_weight
			coerceInt32(f[10], stats), // speed
		})
	})
}

func (n *Normalizer) loadEngines(ctx context.Context, w *tableWriter, stats *Stats) error {
	desc, err := n.registry.Lookup(schema.SourceEngine)
	if err != nil {
		return err
	}
	return n.eachRecord(ctx, engineFile, len(desc.Fields), stats, func(f []string) error {
		if f[0] == "" {
			stats.RowsDropped++
			return nil
		}
		return w.Append([]interface{}{
			f[0],
			nullableText(f[1]),
			nullableText(f[2]),
			nullableText(f[3]),
			coerceInt32(f[4], stats), // horsepower
			coerceInt32(f[5], stats), // thrust
		})
	})
}

// eachRecord streams a source file record by record. The first line of every
// extract is a column header and is skipped; it does not count as a row.
func (n *Normalizer) eachRecord(ctx context.Context, name string, want int, stats *Stats, fn func([]string) error) error {
	reader, err := extract.OpenLines(filepath.Join(n.rawDir, name))
	if err != nil {
		return err
	}
	defer reader.Close()

	header := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, lineNo, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.RowsRead++
		fields, err := extract.SplitRecord(line, want)
		if err != nil {
			stats.RowsDropped++
			log.Printf("Dropped %s line %d: %v", name, lineNo, err)
			continue
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
}

// nullableText maps an empty source field to NULL and keeps everything else.
func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// coerceDate parses the extract's 8-digit yyyymmdd encoding. A blank or
// all-zero date means "no date" and becomes NULL without counting as a
// coercion failure; anything else unparseable becomes NULL and is counted.
func coerceDate(s string, stats *Stats) interface{} {
	if s == "" || s == "00000000" {
		return nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		stats.FieldsNull++
		return nil
	}
	return arrow.Date32FromTime(t)
}

// coerceInt32 parses a numeric-looking text field, tolerating surrounding
// whitespace. Unparseable non-empty input becomes NULL and is counted.
func coerceInt32(s string, stats *Stats) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	v, err := strconv.ParseInt(trimmed, 10, 32)
	if err != nil {
		stats.FieldsNull++
		return nil
	}
	return int32(v)
}
