package normalize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"hangar/internal/schema"
)

// tableWriter accumulates typed rows for one target table and writes them as
// a single Parquet file. Values are appended through per-field Arrow builders
// keyed by the declared schema, never inferred.
type tableWriter struct {
	desc     *schema.Descriptor
	arrowSch *arrow.Schema
	builders []array.Builder
	rows     int64
}

func newTableWriter(desc *schema.Descriptor, alloc memory.Allocator) (*tableWriter, error) {
	arrowSch, err := desc.ArrowSchema()
	if err != nil {
		return nil, err
	}
	builders := make([]array.Builder, arrowSch.NumFields())
	for i, f := range arrowSch.Fields() {
		builders[i] = array.NewBuilder(alloc, f.Type)
	}
	return &tableWriter{desc: desc, arrowSch: arrowSch, builders: builders}, nil
}

// Append adds one row. Values align with the declared field order; nil means
// NULL. Every declared field gets a value for every row, so no field is ever
// silently omitted.
func (w *tableWriter) Append(values []interface{}) error {
	if len(values) != len(w.builders) {
		return &schema.ViolationError{
			Table:  w.desc.Name,
			Detail: fmt.Sprintf("row has %d values, schema declares %d fields", len(values), len(w.builders)),
		}
	}
	for i, v := range values {
		if v == nil {
			w.builders[i].AppendNull()
			continue
		}
		if err := appendValue(w.builders[i], v); err != nil {
			return fmt.Errorf("table %s field %s: %w", w.desc.Name, w.desc.Fields[i].Name, err)
		}
	}
	w.rows++
	return nil
}

func appendValue(b array.Builder, v interface{}) error {
	switch builder := b.(type) {
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot append %T to string column", v)
		}
		builder.Append(s)
	case *array.Int32Builder:
		n, ok := v.(int32)
		if !ok {
			return fmt.Errorf("cannot append %T to int32 column", v)
		}
		builder.Append(n)
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("cannot append %T to int64 column", v)
		}
		builder.Append(n)
	case *array.Float64Builder:
		n, ok := v.(float64)
		if !ok {
			return fmt.Errorf("cannot append %T to float64 column", v)
		}
		builder.Append(n)
	case *array.BooleanBuilder:
		t, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot append %T to bool column", v)
		}
		builder.Append(t)
	case *array.Date32Builder:
		d, ok := v.(arrow.Date32)
		if !ok {
			return fmt.Errorf("cannot append %T to date32 column", v)
		}
		builder.Append(d)
	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}

// Rows returns the number of rows appended so far.
func (w *tableWriter) Rows() int64 {
	return w.rows
}

// WriteParquet validates the accumulated record against the declared schema
// and writes it to path as a single compressed Parquet file.
func (w *tableWriter) WriteParquet(path string, codec compress.Compression) error {
	arrays := make([]arrow.Array, len(w.builders))
	for i, b := range w.builders {
		arrays[i] = b.NewArray()
	}
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	record := array.NewRecord(w.arrowSch, arrays, w.rows)
	defer record.Release()

	if err := w.desc.Validate(record.Schema()); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDataPageSize(1024*1024),
	)
	writer, err := pqarrow.NewFileWriter(w.arrowSch, f, props, pqarrow.NewArrowWriterProperties())
	if err != nil {
		return fmt.Errorf("failed to create parquet writer for %s: %w", w.desc.Name, err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write %s: %w", w.desc.Name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", w.desc.Name, err)
	}
	return nil
}

// Release frees builder memory.
func (w *tableWriter) Release() {
	for _, b := range w.builders {
		b.Release()
	}
}

// compressionCodec maps the configured compression name to a Parquet codec.
func compressionCodec(name string) compress.Compression {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy
	case "gzip":
		return compress.Codecs.Gzip
	case "none":
		return compress.Codecs.Uncompressed
	case "zstd", "":
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Zstd
	}
}
