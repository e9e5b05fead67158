// Package am implements the B+ tree index engine: internal nodes route
// descent by key, leaves hold the indexed field alongside a pointer value
// and chain together for ordered range scans.
package am

import "github.com/blockdb-go/blockdb/internal/utils"

// FieldType identifies how an indexed field's bytes are compared.
type FieldType byte

const (
	TypeInt   FieldType = 'i'
	TypeFloat FieldType = 'f'
	TypeChar  FieldType = 'c'
)

// compareKey compares two encoded field values of the given type,
// returning a negative, zero, or positive result like bytes.Compare.
//
// Floats compare as floats. An earlier scheme truncated the difference of
// two floats to an int before testing its sign, which silently treated
// any two values less than 1.0 apart as equal.
func compareKey(ftype FieldType, flen int, a, b []byte) int {
	switch ftype {
	case TypeFloat:
		av, bv := utils.Float32(a), utils.Float32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case TypeChar:
		an := cstrLen(a, flen)
		bn := cstrLen(b, flen)
		return compareBytes(a[:an], b[:bn])
	default:
		av, bv := utils.Int32(a), utils.Int32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}

func cstrLen(b []byte, max int) int {
	n := max
	if n > len(b) {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return i
		}
	}
	return n
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
