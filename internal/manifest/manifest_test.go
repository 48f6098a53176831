package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")

	m := Manifest{
		SnapshotDate: "2026-08-16",
		RunID:        "0d9f1a2b",
		CreatedAt:    time.Date(2026, 8, 16, 12, 0, 0, 0, time.UTC),
		Stages: []Stage{{
			Name:        "normalize",
			RowsRead:    307793,
			RowsDropped: 2,
			Inputs: []FileRecord{
				{Name: "MASTER.txt", Size: 199, SHA256: "aa"},
			},
			Tables: []TableRecord{
				{Name: "aircraft", RowCount: 307791, SchemaHash: "bb", SHA256: "cc"},
			},
		}},
		Previous: &Ref{Path: "run-prev.json", SHA256: "dd"},
	}
	require.NoError(t, m.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.SnapshotDate, got.SnapshotDate)
	assert.Equal(t, m.Previous, got.Previous)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, int64(307793), got.Stages[0].RowsRead)

	rec, ok := got.Table("aircraft")
	require.True(t, ok)
	assert.Equal(t, int64(307791), rec.RowCount)
}

func TestTableLaterStageWins(t *testing.T) {
	m := Manifest{Stages: []Stage{
		{Name: "normalize", Tables: []TableRecord{{Name: "owners", RowCount: 10}}},
		{Name: "publish", Tables: []TableRecord{{Name: "owners", RowCount: 11}}},
	}}

	rec, ok := m.Table("owners")
	require.True(t, ok)
	assert.Equal(t, int64(11), rec.RowCount)

	_, ok = m.Table("nope")
	assert.False(t, ok)
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// The temp file never survives a completed write.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSwapSymlink(t *testing.T) {
	dir := t.TempDir()
	genA := filepath.Join(dir, "gen-a")
	genB := filepath.Join(dir, "gen-b")
	require.NoError(t, os.Mkdir(genA, 0o755))
	require.NoError(t, os.Mkdir(genB, 0o755))
	link := filepath.Join(dir, "current")

	require.NoError(t, SwapSymlink("gen-a", link))
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "gen-a", target)

	// Swapping over an existing link replaces it atomically.
	require.NoError(t, SwapSymlink("gen-b", link))
	target, err = os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "gen-b", target)
}

func TestIntegrityError(t *testing.T) {
	err := &IntegrityError{Table: "owners", Detail: "loaded 9 rows, manifest declares 10"}
	assert.Contains(t, err.Error(), "owners")
	assert.Contains(t, err.Error(), "manifest declares 10")
}
