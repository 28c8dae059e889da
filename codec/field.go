// Package codec implements the null-bitmap and field codec (C2): encoding
// and decoding a tuple of typed fields with a leading null-bitmap, and the
// field-wise comparator used throughout the btree.
package codec

import "fmt"

// FieldType is the declared type of one field in a schema.
type FieldType int

const (
	Int32 FieldType = iota
	Int64
	Uint32
	Uint64
	Float32
	Float64
	Date       // 4-byte date
	DateTime   // 8-byte datetime
	ObjectRef  // 8-byte object-id (page,area)
	StringInline
	StringOutside
)

// Direction is the per-field sort direction multiplier, spec.md §4.2.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// FieldSpec describes one column of a schema.
type FieldSpec struct {
	Name      string
	Type      FieldType
	Direction Direction
	MaxLength int // declared max length for StringInline/StringOutside fields
}

// FixedWidth returns the number of bytes a fixed-width field occupies
// inline, or 0 for variable-width field types.
func (t FieldType) FixedWidth() int {
	switch t {
	case Int32, Uint32, Float32, Date:
		return 4
	case Int64, Uint64, Float64, DateTime, ObjectRef:
		return 8
	default:
		return 0
	}
}

func (t FieldType) IsVariable() bool {
	return t == StringInline || t == StringOutside
}

// Value is one typed field value. Null is set independently of the
// payload so zero values and SQL NULL are distinguishable.
type Value struct {
	Null   bool
	Int    int64
	Uint   uint64
	Float  float64
	Str    string
	Object [2]uint32 // page id, area id — used for ObjectRef fields
}

// ValidateAgainst checks a value's shape against its declared field type,
// per spec.md §4.4.1 insert-time argument validation.
func (v Value) ValidateAgainst(spec FieldSpec) error {
	if v.Null {
		return nil
	}
	switch spec.Type {
	case StringInline, StringOutside:
		if len(v.Str) > spec.MaxLength {
			return fmt.Errorf("field %q: value length %d exceeds max length %d", spec.Name, len(v.Str), spec.MaxLength)
		}
	}
	return nil
}
