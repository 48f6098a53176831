package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    int
		fields  []string
		wantErr bool
	}{
		{
			name:   "exact field count",
			line:   "100,680-0455,7100510,17003",
			want:   4,
			fields: []string{"100", "680-0455", "7100510", "17003"},
		},
		{
			name:   "trailing comma tolerated",
			line:   "100,680-0455,7100510,",
			want:   3,
			fields: []string{"100", "680-0455", "7100510"},
		},
		{
			name:   "fields trimmed",
			line:   "100 ,  680-0455,7100510 ",
			want:   3,
			fields: []string{"100", "680-0455", "7100510"},
		},
		{
			name:    "short record is malformed",
			line:    "100,680-0455",
			want:    4,
			wantErr: true,
		},
		{
			name:    "empty line is malformed",
			line:    "",
			want:    4,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := SplitRecord(tt.line, tt.want)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestLineReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.txt")
	require.NoError(t, os.WriteFile(path, []byte("first,row,\nsecond,row,\n"), 0o644))

	r, err := OpenLines(path)
	require.NoError(t, err)
	defer r.Close()

	line, n, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "first,row,", line)
	assert.Equal(t, 1, n)

	line, n, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "second,row,", line)
	assert.Equal(t, 2, n)

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLineReaderLatin1Fallback(t *testing.T) {
	// 0xC9 is É in ISO 8859-1 and invalid as a standalone UTF-8 byte.
	path := filepath.Join(t.TempDir(), "extract.txt")
	require.NoError(t, os.WriteFile(path, []byte{'C', 'A', 'F', 0xC9, ',', 'X', '\n'}, 0o644))

	r, err := OpenLines(path)
	require.NoError(t, err)
	defer r.Close()

	line, _, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "CAFÉ,X", line)
}

func writeSourceFixture(t *testing.T, dir, name, content string) SourceFile {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	sum := sha256.Sum256([]byte(content))
	return SourceFile{
		Name:   name,
		URL:    "https://registry.example/" + name,
		Size:   int64(len(content)),
		SHA256: hex.EncodeToString(sum[:]),
	}
}

func TestSourceManifestVerify(t *testing.T) {
	dir := t.TempDir()
	f := writeSourceFixture(t, dir, "MASTER.txt", "N-NUMBER,\n100,\n")

	m := SourceManifest{SnapshotDate: "2026-08-16", Files: []SourceFile{f}}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644))

	loaded, err := LoadSourceManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-16", loaded.SnapshotDate)

	got, err := loaded.File("MASTER.txt")
	require.NoError(t, err)
	assert.NoError(t, got.Verify(dir))

	_, err = loaded.File("ENGINE.txt")
	assert.Error(t, err)
}

func TestSourceFileVerifyMismatch(t *testing.T) {
	dir := t.TempDir()
	f := writeSourceFixture(t, dir, "MASTER.txt", "N-NUMBER,\n100,\n")

	tampered := f
	tampered.SHA256 = "0000000000000000000000000000000000000000000000000000000000000000"
	assert.ErrorContains(t, tampered.Verify(dir), "sha256")

	wrongSize := f
	wrongSize.Size = f.Size + 1
	assert.ErrorContains(t, wrongSize.Verify(dir), "size")

	missing := f
	missing.Name = "GONE.txt"
	assert.Error(t, missing.Verify(dir))
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
