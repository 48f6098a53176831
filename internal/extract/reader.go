package extract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// LineReader iterates over the lines of one raw extract file. The extracts
// are nominally ASCII but the occasional record carries Latin-1 bytes;
// lines that are not valid UTF-8 are re-decoded as ISO 8859-1 so a stray
// byte never poisons a run.
type LineReader struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenLines opens a raw extract file for line iteration.
func OpenLines(path string) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineReader{f: f, scanner: scanner}, nil
}

// Next returns the next line and its 1-based line number. io.EOF signals the
// end of the file.
func (r *LineReader) Next() (string, int, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", r.line, fmt.Errorf("read failed at line %d: %w", r.line, err)
		}
		return "", r.line, io.EOF
	}
	r.line++
	raw := r.scanner.Bytes()
	if utf8.Valid(raw) {
		return string(raw), r.line, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// ISO 8859-1 maps every byte; this cannot fail in practice.
		return "", r.line, fmt.Errorf("line %d: undecodable bytes: %w", r.line, err)
	}
	return string(decoded), r.line, nil
}

// Close releases the underlying file.
func (r *LineReader) Close() error {
	return r.f.Close()
}

// SplitRecord splits one comma-delimited extract line into exactly want
// trimmed fields. The extracts terminate every record with a trailing comma,
// so surplus columns are tolerated; a short record is malformed and the
// caller drops and counts it.
func SplitRecord(line string, want int) ([]string, error) {
	parts := strings.Split(line, ",")
	if len(parts) < want {
		return nil, fmt.Errorf("malformed record: %d fields, want %d", len(parts), want)
	}
	fields := make([]string, want)
	for i := 0; i < want; i++ {
		fields[i] = strings.TrimSpace(parts[i])
	}
	return fields, nil
}
