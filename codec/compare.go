package codec

import "unicode/utf16"

// CompareTuples compares two tuples field-by-field against specs, applying
// each field's direction multiplier. A null field compares greater than any
// non-null value: when exactly one side is null the comparison result is
// +1*multiplier in favor of the null side, so nulls sort last under
// Ascending and first under Descending. Returns <0, 0, or >0.
func CompareTuples(a, b []Value, specs []FieldSpec) int {
	n := len(specs)
	for i := 0; i < n; i++ {
		c := compareField(a[i], b[i], specs[i].Type)
		if c != 0 {
			return c * int(specs[i].Direction)
		}
	}
	return 0
}

func compareField(a, b Value, t FieldType) int {
	if a.Null && b.Null {
		return 0
	}
	if a.Null {
		return 1
	}
	if b.Null {
		return -1
	}
	switch t {
	case Int32, Int64, Date, DateTime:
		return cmpInt64(a.Int, b.Int)
	case Uint32, Uint64, ObjectRef:
		return cmpUint64(a.Uint, b.Uint)
	case Float32, Float64:
		return cmpFloat64(a.Float, b.Float)
	case StringInline, StringOutside:
		return cmpString(a.Str, b.Str)
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpString performs a raw UTF-16-code-unit-order comparison, matching the
// on-disk string ordering used when comparing without materializing a
// segmented outside-variable string (spec.md §4.2). Go strings are UTF-8;
// re-encoding both sides as UTF-16 and comparing code unit by code unit
// keeps the ordering the on-disk format promises for the common
// (non-segmented) case.
func cmpString(a, b string) int {
	ar, br := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(ar) && i < len(br); i++ {
		if ar[i] != br[i] {
			if ar[i] < br[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ar) < len(br):
		return -1
	case len(ar) > len(br):
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether the field value v starts with prefix, used by
// Like-search (spec.md §4.4.2).
func HasPrefix(v Value, prefix string) bool {
	if v.Null {
		return false
	}
	pr := []rune(prefix)
	vr := []rune(v.Str)
	if len(pr) > len(vr) {
		return false
	}
	for i := range pr {
		if pr[i] != vr[i] {
			return false
		}
	}
	return true
}
