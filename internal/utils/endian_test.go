package utils

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockReaderAt is a mock implementation of ReaderAt for testing.
type mockReaderAt struct {
	data []byte
	err  error
}

func (m *mockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if m.err != nil {
		return 0, m.err
	}

	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func TestUint32RoundTrip(t *testing.T) {
	tests := []uint32{0, 1, 0x1000, 0xFFFFFFFF, 42}

	for _, v := range tests {
		buf := make([]byte, 4)
		PutUint32(buf, v)
		require.Equal(t, v, Uint32(buf))
	}
}

func TestInt32RoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, -42, 2147483647, -2147483648}

	for _, v := range tests {
		buf := make([]byte, 4)
		PutInt32(buf, v)
		require.Equal(t, v, Int32(buf))
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	tests := []float32{0, 1.5, -1.5, 3.14159, -0.2}

	for _, v := range tests {
		buf := make([]byte, 4)
		PutFloat32(buf, v)
		require.Equal(t, v, Float32(buf))
	}
}

func TestReadUint32(t *testing.T) {
	data := []byte{0x2A, 0x00, 0x00, 0x00}
	val, err := ReadUint32(&mockReaderAt{data: data}, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(42), val)
}

func TestReadUint32_WithOffset(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0x01, 0x00, 0x00, 0x00}
	val, err := ReadUint32(&mockReaderAt{data: data}, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(1), val)
}

func TestReadUint32_Errors(t *testing.T) {
	tests := []struct {
		name   string
		reader ReaderAt
		offset int64
	}{
		{name: "read error", reader: &mockReaderAt{data: []byte{}, err: errors.New("read error")}},
		{name: "offset beyond data", reader: &mockReaderAt{data: []byte{0x01, 0x02}}, offset: 100},
		{name: "not enough data", reader: &mockReaderAt{data: []byte{0x01, 0x02, 0x03}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadUint32(tt.reader, tt.offset)
			require.Error(t, err)
		})
	}
}

func TestReadUint32_WithBytesReader(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78}

	val, err := ReadUint32(bytes.NewReader(data), 0)
	require.NoError(t, err)
	require.Equal(t, Uint32(data), val)
}

func TestReaderAtInterface(t *testing.T) {
	t.Run("bytes.Reader", func(_ *testing.T) {
		var _ ReaderAt = bytes.NewReader([]byte{1, 2, 3, 4})
	})

	t.Run("mockReaderAt", func(_ *testing.T) {
		var _ ReaderAt = &mockReaderAt{}
	})
}

func BenchmarkReadUint32(b *testing.B) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	reader := &mockReaderAt{data: data}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		offset := int64((i * 4) % (len(data) - 4))
		_, _ = ReadUint32(reader, offset)
	}
}
