package codec

import (
	"encoding/binary"
	"fmt"
)

// ObjectType tags an outside-variable field object, spec.md §4.2/§6.
type ObjectType byte

const (
	Normal ObjectType = iota
	Divide
	Compressed
	DivideCompressed
	DivideArray
)

// OutsideStore allocates and resolves outside-variable field objects. The
// btree package supplies an implementation backed by the page/buffer
// substrate; tests use an in-memory map.
type OutsideStore interface {
	WriteOutside(payload []byte, compress bool) (objID [2]uint32, err error)
	ReadOutside(objID [2]uint32) ([]byte, error)
	FreeOutside(objID [2]uint32) error
}

// nullBitmapBytes returns the number of bytes needed for one bit per field.
func nullBitmapBytes(n int) int { return (n + 7) / 8 }

// Encode serializes a tuple as [object-type-byte · null-bitmap · fields…],
// per spec.md §4.2/§6. Outside-variable fields are written through store
// and referenced by an 8-byte object-id.
func Encode(tuple []Value, specs []FieldSpec, store OutsideStore) ([]byte, error) {
	if len(tuple) != len(specs) {
		return nil, fmt.Errorf("codec: tuple has %d fields, schema declares %d", len(tuple), len(specs))
	}
	nbm := nullBitmapBytes(len(specs))
	buf := make([]byte, 1+nbm)
	buf[0] = byte(Normal)

	for i, spec := range specs {
		v := tuple[i]
		if err := v.ValidateAgainst(spec); err != nil {
			return nil, err
		}
		if v.Null {
			buf[1+i/8] |= 1 << uint(i%8)
			switch spec.Type {
			case StringInline:
				buf = append(buf, make([]byte, 1+spec.MaxLength)...)
			case StringOutside:
				buf = append(buf, make([]byte, 8)...)
			default:
				buf = append(buf, make([]byte, spec.Type.FixedWidth())...)
			}
			continue
		}
		enc, err := encodeField(v, spec, store)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

func encodeField(v Value, spec FieldSpec, store OutsideStore) ([]byte, error) {
	switch spec.Type {
	case Int32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(v.Int)))
		return b, nil
	case Int64, Date:
		w := spec.Type.FixedWidth()
		b := make([]byte, w)
		if w == 4 {
			binary.LittleEndian.PutUint32(b, uint32(int32(v.Int)))
		} else {
			binary.LittleEndian.PutUint64(b, uint64(v.Int))
		}
		return b, nil
	case Uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v.Uint))
		return b, nil
	case Uint64, DateTime:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v.Uint)
		return b, nil
	case ObjectRef:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint32(b[0:], v.Object[0])
		binary.LittleEndian.PutUint32(b[4:], v.Object[1])
		return b, nil
	case Float32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, float32bits(float32(v.Float)))
		return b, nil
	case Float64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, float64bits(v.Float))
		return b, nil
	case StringInline:
		payload := []byte(v.Str)
		if len(payload) > spec.MaxLength {
			return nil, fmt.Errorf("codec: inline string exceeds max length %d", spec.MaxLength)
		}
		b := make([]byte, 1+spec.MaxLength)
		b[0] = byte(len(payload))
		copy(b[1:], payload)
		return b, nil
	case StringOutside:
		if store == nil {
			return nil, fmt.Errorf("codec: outside-variable field %q requires an OutsideStore", spec.Name)
		}
		compress := len(v.Str) > 256
		objID, err := store.WriteOutside([]byte(v.Str), compress)
		if err != nil {
			return nil, fmt.Errorf("codec: writing outside field %q: %w", spec.Name, err)
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint32(b[0:], objID[0])
		binary.LittleEndian.PutUint32(b[4:], objID[1])
		return b, nil
	default:
		return nil, fmt.Errorf("codec: unknown field type %d", spec.Type)
	}
}

// Decode parses bytes produced by Encode back into a tuple.
func Decode(data []byte, specs []FieldSpec, store OutsideStore) ([]Value, error) {
	nbm := nullBitmapBytes(len(specs))
	if len(data) < 1+nbm {
		return nil, fmt.Errorf("codec: buffer too small for null bitmap")
	}
	bitmap := data[1 : 1+nbm]
	off := 1 + nbm
	values := make([]Value, len(specs))

	for i, spec := range specs {
		isNull := bitmap[i/8]&(1<<uint(i%8)) != 0
		width := fieldWireWidth(spec)
		if off+width > len(data) {
			return nil, fmt.Errorf("codec: buffer truncated at field %q", spec.Name)
		}
		raw := data[off : off+width]
		off += width
		if isNull {
			values[i] = Value{Null: true}
			continue
		}
		v, err := decodeField(raw, spec, store)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func fieldWireWidth(spec FieldSpec) int {
	switch spec.Type {
	case StringInline:
		return 1 + spec.MaxLength
	case StringOutside:
		return 8
	default:
		return spec.Type.FixedWidth()
	}
}

func decodeField(raw []byte, spec FieldSpec, store OutsideStore) (Value, error) {
	switch spec.Type {
	case Int32:
		return Value{Int: int64(int32(binary.LittleEndian.Uint32(raw)))}, nil
	case Int64:
		return Value{Int: int64(binary.LittleEndian.Uint64(raw))}, nil
	case Date:
		return Value{Int: int64(int32(binary.LittleEndian.Uint32(raw)))}, nil
	case Uint32:
		return Value{Uint: uint64(binary.LittleEndian.Uint32(raw))}, nil
	case Uint64, DateTime:
		return Value{Uint: binary.LittleEndian.Uint64(raw)}, nil
	case ObjectRef:
		return Value{Object: [2]uint32{binary.LittleEndian.Uint32(raw[0:]), binary.LittleEndian.Uint32(raw[4:])}}, nil
	case Float32:
		return Value{Float: float64(float32frombits(binary.LittleEndian.Uint32(raw)))}, nil
	case Float64:
		return Value{Float: float64frombits(binary.LittleEndian.Uint64(raw))}, nil
	case StringInline:
		n := int(raw[0])
		return Value{Str: string(raw[1 : 1+n])}, nil
	case StringOutside:
		if store == nil {
			return Value{}, fmt.Errorf("codec: outside-variable field %q requires an OutsideStore", spec.Name)
		}
		objID := [2]uint32{binary.LittleEndian.Uint32(raw[0:]), binary.LittleEndian.Uint32(raw[4:])}
		payload, err := store.ReadOutside(objID)
		if err != nil {
			return Value{}, fmt.Errorf("codec: reading outside field %q: %w", spec.Name, err)
		}
		return Value{Str: string(payload)}, nil
	default:
		return Value{}, fmt.Errorf("codec: unknown field type %d", spec.Type)
	}
}
