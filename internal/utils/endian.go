package utils

import (
	"encoding/binary"
	"math"
)

// ReaderAt is a simplified interface for io.ReaderAt.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// PutUint32 writes v little-endian into buf[0:4].
func PutUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Uint32 reads a little-endian uint32 from buf[0:4].
func Uint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// PutInt32 writes v little-endian into buf[0:4].
func PutInt32(buf []byte, v int32) {
	binary.LittleEndian.PutUint32(buf, uint32(v))
}

// Int32 reads a little-endian int32 from buf[0:4].
func Int32(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf))
}

// PutFloat32 writes v little-endian into buf[0:4].
func PutFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

// Float32 reads a little-endian float32 from buf[0:4].
func Float32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

// ReadUint32 reads a 32-bit little-endian value at the given offset.
func ReadUint32(r ReaderAt, offset int64) (uint32, error) {
	buf := GetBuffer(4)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return Uint32(buf), nil
}
