package normalize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangar/internal/extract"
	"hangar/internal/manifest"
	"hangar/internal/schema"
)

// masterCols mirrors the declared master source column order.
var masterCols = []string{
	"n_number", "serial_number", "mfr_mdl_code", "eng_mfr_mdl", "year_mfr",
	"type_registrant", "name", "street", "street2", "city", "state",
	"zip_code", "region", "county", "country", "last_action_date",
	"cert_issue_date", "certification", "type_aircraft", "type_engine",
	"status_code", "mode_s_code", "fract_owner", "air_worth_date",
	"other_names_1", "other_names_2", "other_names_3", "other_names_4",
	"other_names_5", "expiration_date", "unique_id", "kit_mfr",
	"kit_model", "mode_s_code_hex",
}

func masterRow(overrides map[string]string) string {
	fields := make([]string, len(masterCols))
	for i, col := range masterCols {
		fields[i] = overrides[col]
	}
	return strings.Join(fields, ",") + ","
}

func masterHeader() string {
	return strings.Join(masterCols, ",") + ","
}

// writeRawSnapshot lays down a complete raw snapshot directory with a
// matching fetch manifest, the way the external fetcher would.
func writeRawSnapshot(t *testing.T, rawDir string, masterLines []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(rawDir, 0o755))

	master := strings.Join(append([]string{masterHeader()}, masterLines...), "\n") + "\n"
	acftref := strings.Join([]string{
		"CODE,MFR,MODEL,TYPE-ACFT,TYPE-ENG,AC-CAT,BUILD-CERT-IND,NO-ENG,NO-SEATS,AC-WEIGHT,SPEED,TC-DATA-SHEET,",
		"7100510,PIPER,J3C-65 CUB,4,1,1,N,1,2,CLASS 1,74,A-691,",
	}, "\n") + "\n"
	engine := strings.Join([]string{
		"CODE,MFR,MODEL,TYPE,HORSEPOWER,THRUST,",
		"17003,CONTINENTAL,A&C65 SERIES,1,65,0,",
	}, "\n") + "\n"

	files := map[string]string{
		"MASTER.txt":  master,
		"ACFTREF.txt": acftref,
		"ENGINE.txt":  engine,
	}
	m := extract.SourceManifest{SnapshotDate: "2026-08-16"}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0o644))
		sum := sha256.Sum256([]byte(content))
		m.Files = append(m.Files, extract.SourceFile{
			Name:   name,
			URL:    "https://registry.example/" + name,
			Size:   int64(len(content)),
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "manifest.json"), data, 0o644))
}

func fixtureMasterLines() []string {
	owner := map[string]string{
		"n_number": "100", "serial_number": "680-0455", "mfr_mdl_code": "7100510",
		"eng_mfr_mdl": "17003", "year_mfr": " 1940 ", "type_registrant": "1",
		"name": "BENE MARY D", "street": "1234 MAIN ST", "city": "EDMOND",
		"state": "OK", "zip_code": "733", "region": "2", "county": "109",
		"country": "US", "last_action_date": "20240101",
		"cert_issue_date": "19900115", "certification": "1N",
		"type_aircraft": "4", "type_engine": "1", "status_code": "V",
		"air_worth_date": "00000000", "expiration_date": "20261231",
		"mode_s_code_hex": "A00001",
	}
	sameOwner := map[string]string{}
	for k, v := range owner {
		sameOwner[k] = v
	}
	sameOwner["n_number"] = "102"
	sameOwner["mfr_mdl_code"] = "9999999" // absent from the reference table
	sameOwner["serial_number"] = "680-0456"

	return []string{
		masterRow(owner),
		masterRow(map[string]string{
			"n_number": "101N", "serial_number": "S2", "mfr_mdl_code": "7100510",
			"year_mfr": "196A", "cert_issue_date": "00000000",
			"expiration_date": "00000000", "last_action_date": "00000000",
			"status_code": "N",
		}),
		"BADROW,ONLY,THREE,", // short record, dropped and counted
		masterRow(sameOwner),
	}
}

func runFixture(t *testing.T, outDir string) *Result {
	t.Helper()
	rawDir := filepath.Join(t.TempDir(), "raw")
	writeRawSnapshot(t, rawDir, fixtureMasterLines())

	n := New(schema.NewRegistry(), rawDir, outDir, "zstd", "2026-08-16", "testrun")
	result, err := n.Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestNormalizeSplit(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "normalized")
	result := runFixture(t, outDir)

	stage := result.Stage
	assert.Equal(t, "normalize", stage.Name)
	// 4 master data rows + 1 row in each reference file.
	assert.Equal(t, int64(6), stage.RowsRead)
	assert.Equal(t, int64(1), stage.RowsDropped)
	// year_mfr "196A" is the only non-empty value that fails coercion; zero
	// dates mean "no date" and are not failures.
	assert.Equal(t, int64(1), stage.FieldsNull)

	wantRows := map[string]int64{
		"aircraft":            3,
		"registrations":       3,
		"owners":              2,
		"aircraft_make_model": 1,
		"engines":             1,
	}
	require.Len(t, stage.Tables, len(wantRows))
	for _, rec := range stage.Tables {
		assert.Equal(t, wantRows[rec.Name], rec.RowCount, rec.Name)
		assert.NotEmpty(t, rec.SchemaHash)
		assert.NotEmpty(t, rec.SHA256)

		reader, err := file.OpenParquetFile(filepath.Join(outDir, rec.Name+".parquet"), true)
		require.NoError(t, err)
		assert.Equal(t, rec.RowCount, reader.NumRows(), rec.Name)
		reader.Close()
	}

	// 1:1 split invariant.
	aircraft, _ := findTable(stage.Tables, "aircraft")
	registrations, _ := findTable(stage.Tables, "registrations")
	masterKept := int64(4 - 1)
	assert.Equal(t, masterKept, aircraft.RowCount)
	assert.Equal(t, masterKept, registrations.RowCount)
}

func findTable(recs []manifest.TableRecord, name string) (manifest.TableRecord, bool) {
	for _, r := range recs {
		if r.Name == name {
			return r, true
		}
	}
	return manifest.TableRecord{}, false
}

func TestNormalizeStageFragment(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "normalized")
	runFixture(t, outDir)

	frag, err := LoadStageFragment(outDir)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-16", frag.SnapshotDate)
	assert.Equal(t, "testrun", frag.RunID)
	require.Len(t, frag.Stages, 1)
	require.Len(t, frag.Stages[0].Inputs, 3)

	rec, ok := frag.Table("aircraft")
	require.True(t, ok)
	assert.Equal(t, schema.Aircraft.Hash(), rec.SchemaHash)
}

// Two independent runs over the same raw snapshot must produce byte-identical
// typed tables.
func TestNormalizeDeterministic(t *testing.T) {
	rawDir := filepath.Join(t.TempDir(), "raw")
	writeRawSnapshot(t, rawDir, fixtureMasterLines())

	outA := filepath.Join(t.TempDir(), "a")
	outB := filepath.Join(t.TempDir(), "b")
	for _, out := range []string{outA, outB} {
		n := New(schema.NewRegistry(), rawDir, out, "zstd", "2026-08-16", "testrun")
		_, err := n.Run(context.Background())
		require.NoError(t, err)
	}

	for _, table := range []string{"aircraft", "registrations", "owners", "aircraft_make_model", "engines"} {
		a, err := os.ReadFile(filepath.Join(outA, table+".parquet"))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(outB, table+".parquet"))
		require.NoError(t, err)
		assert.Equal(t, a, b, "table %s differs between runs", table)
	}
}

func TestNormalizeRejectsTamperedSource(t *testing.T) {
	rawDir := filepath.Join(t.TempDir(), "raw")
	writeRawSnapshot(t, rawDir, fixtureMasterLines())

	// Flip a byte after the fetch manifest was written.
	path := filepath.Join(rawDir, "ENGINE.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] = 'X'
	require.NoError(t, os.WriteFile(path, data, 0o644))

	n := New(schema.NewRegistry(), rawDir, filepath.Join(t.TempDir(), "out"), "zstd", "2026-08-16", "testrun")
	_, err = n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sha256")
}

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNull  bool
		wantCount int64
	}{
		{"valid date", "19900115", false, 0},
		{"zero date is null, not a failure", "00000000", true, 0},
		{"empty is null, not a failure", "", true, 0},
		{"garbage is null and counted", "199001XX", true, 1},
		{"wrong length is null and counted", "1990", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stats Stats
			got := coerceDate(tt.input, &stats)
			if tt.wantNull {
				assert.Nil(t, got)
			} else {
				assert.NotNil(t, got)
			}
			assert.Equal(t, tt.wantCount, stats.FieldsNull)
		})
	}
}

func TestCoerceInt32(t *testing.T) {
	var stats Stats

	assert.Equal(t, int32(1940), coerceInt32(" 1940 ", &stats))
	assert.Equal(t, int64(0), stats.FieldsNull)

	assert.Nil(t, coerceInt32("", &stats))
	assert.Equal(t, int64(0), stats.FieldsNull, "empty is absence, not a failure")

	assert.Nil(t, coerceInt32("196A", &stats))
	assert.Equal(t, int64(1), stats.FieldsNull)
}
