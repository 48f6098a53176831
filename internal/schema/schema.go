package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// FieldType is the declared type tag for a table column.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt32   FieldType = "int32"
	TypeInt64   FieldType = "int64"
	TypeFloat64 FieldType = "float64"
	TypeBool    FieldType = "bool"
	TypeDate32  FieldType = "date32"
)

// Field is one declared column: name, type tag and nullability.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Descriptor declares the shape of one table. Field order is significant:
// it drives parsing, Parquet layout and the schema hash.
type Descriptor struct {
	Name   string
	Fields []Field
}

// Hash returns a deterministic digest over the ordered field list. Renaming,
// reordering or retyping any field produces a different hash.
func (d *Descriptor) Hash() string {
	h := sha256.New()
	for _, f := range d.Fields {
		nullable := byte(0)
		if f.Nullable {
			nullable = 1
		}
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		h.Write([]byte(f.Type))
		h.Write([]byte{0, nullable, '\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FieldNames returns the declared column names in order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// ArrowSchema converts the descriptor to an Arrow schema. The schema hash is
// stamped into the metadata so Parquet files self-describe their provenance.
func (d *Descriptor) ArrowSchema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(d.Fields))
	for i, f := range d.Fields {
		dt, err := arrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("table %s field %s: %w", d.Name, f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	md := arrow.NewMetadata(
		[]string{"table", "schema_hash"},
		[]string{d.Name, d.Hash()},
	)
	return arrow.NewSchema(fields, &md), nil
}

func arrowType(t FieldType) (arrow.DataType, error) {
	switch t {
	case TypeString:
		return arrow.BinaryTypes.String, nil
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case TypeFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case TypeDate32:
		return arrow.FixedWidthTypes.Date32, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

// ViolationError reports a table that does not match its declared descriptor.
// It is fatal: the run aborts before anything is published.
type ViolationError struct {
	Table  string
	Detail string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema violation in table %s: %s", e.Table, e.Detail)
}

// Validate checks an Arrow schema against the descriptor: same field count,
// names, types and nullability, in the declared order.
func (d *Descriptor) Validate(got *arrow.Schema) error {
	want, err := d.ArrowSchema()
	if err != nil {
		return err
	}
	if got.NumFields() != want.NumFields() {
		return &ViolationError{
			Table:  d.Name,
			Detail: fmt.Sprintf("expected %d fields, got %d", want.NumFields(), got.NumFields()),
		}
	}
	for i := 0; i < want.NumFields(); i++ {
		wf, gf := want.Field(i), got.Field(i)
		if wf.Name != gf.Name {
			return &ViolationError{
				Table:  d.Name,
				Detail: fmt.Sprintf("field %d: expected name %s, got %s", i, wf.Name, gf.Name),
			}
		}
		if !arrow.TypeEqual(wf.Type, gf.Type) {
			return &ViolationError{
				Table:  d.Name,
				Detail: fmt.Sprintf("field %s: expected type %s, got %s", wf.Name, wf.Type, gf.Type),
			}
		}
		if wf.Nullable != gf.Nullable {
			return &ViolationError{
				Table:  d.Name,
				Detail: fmt.Sprintf("field %s: nullability mismatch", wf.Name),
			}
		}
	}
	return nil
}

// Registry holds the fixed set of source and target table descriptors. It is
// passed explicitly to the normalizer and publisher rather than held as
// process-wide state.
type Registry struct {
	tables map[string]*Descriptor
}

// NewRegistry builds the registry with every table this pipeline knows about.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[string]*Descriptor)}
	for _, d := range []*Descriptor{
		masterSource, acftrefSource, engineSource,
		Aircraft, Registrations, Owners, AircraftMakeModel, Engines,
	} {
		r.tables[d.Name] = d
	}
	return r
}

// Lookup returns the descriptor for a table name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("no schema registered for table %q", name)
	}
	return d, nil
}

// TargetTables returns the derived table descriptors in publish order.
func (r *Registry) TargetTables() []*Descriptor {
	return []*Descriptor{Aircraft, Registrations, Owners, AircraftMakeModel, Engines}
}
