package hp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/record"
	"github.com/blockdb-go/blockdb/internal/utils"
)

func newHeapFile(t *testing.T) int {
	t.Helper()
	Init()
	path := filepath.Join(t.TempDir(), "heap.db")
	require.NoError(t, CreateFile(path))
	desc, err := OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseFile(desc) })
	return desc
}

func TestOpenFile_RejectsWrongIdentifier(t *testing.T) {
	Init()
	path := filepath.Join(t.TempDir(), "notaheap.db")
	require.NoError(t, blockpool.Create(path, blockpool.DefaultBlockSize))

	_, err := OpenFile(path)
	require.Error(t, err)
	require.Equal(t, utils.KindIdentifierMismatch, utils.KindOf(err))
}

func TestInsertAndGetEntry_RoundTrip(t *testing.T) {
	desc := newHeapFile(t)

	rowID, err := InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London"))
	require.NoError(t, err)
	require.EqualValues(t, 0, rowID)

	got, err := GetEntry(desc, rowID)
	require.NoError(t, err)
	require.Equal(t, "Ada", got.Name)
	require.Equal(t, int32(1), got.ID)
}

func TestInsertEntry_SpansMultipleBlocks(t *testing.T) {
	desc := newHeapFile(t)

	const n = 200
	ids := make([]int32, n)
	for i := 0; i < n; i++ {
		rowID, err := InsertEntry(desc, record.New(int32(i), "n", "s", "c"))
		require.NoError(t, err)
		ids[i] = rowID
	}

	for i := 0; i < n; i++ {
		got, err := GetEntry(desc, ids[i])
		require.NoError(t, err)
		require.Equal(t, int32(i), got.ID)
	}
}

func TestGetEntry_InvalidSlotErrors(t *testing.T) {
	desc := newHeapFile(t)
	_, err := InsertEntry(desc, record.New(1, "a", "b", "c"))
	require.NoError(t, err)

	_, err = GetEntry(desc, 5)
	require.Error(t, err)
}

func TestPrintAllEntries_NoFilter(t *testing.T) {
	desc := newHeapFile(t)
	_, err := InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London"))
	require.NoError(t, err)
	_, err = InsertEntry(desc, record.New(2, "Alan", "Turing", "London"))
	require.NoError(t, err)

	out, err := PrintAllEntries(desc, "", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestPrintAllEntries_FilterByID(t *testing.T) {
	desc := newHeapFile(t)
	_, err := InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London"))
	require.NoError(t, err)
	_, err = InsertEntry(desc, record.New(2, "Alan", "Turing", "London"))
	require.NoError(t, err)

	out, err := PrintAllEntries(desc, record.AttrID, "2")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out[0], "Alan")
}

func TestPrintAllEntries_FilterByCity(t *testing.T) {
	desc := newHeapFile(t)
	_, err := InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London"))
	require.NoError(t, err)
	_, err = InsertEntry(desc, record.New(2, "Alan", "Turing", "Manchester"))
	require.NoError(t, err)

	out, err := PrintAllEntries(desc, record.AttrCity, "Manchester")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out[0], "Alan")
}

func TestOpenFile_MaxOpenFiles(t *testing.T) {
	Init()
	var descs []int
	for i := 0; i < maxOpenFiles; i++ {
		path := filepath.Join(t.TempDir(), "heap.db")
		require.NoError(t, CreateFile(path))
		desc, err := OpenFile(path)
		require.NoError(t, err)
		descs = append(descs, desc)
	}

	path := filepath.Join(t.TempDir(), "overflow.db")
	require.NoError(t, CreateFile(path))
	_, err := OpenFile(path)
	require.Error(t, err)

	for _, d := range descs {
		require.NoError(t, CloseFile(d))
	}
}

func TestCloseFile_InvalidDescriptor(t *testing.T) {
	Init()
	err := CloseFile(7)
	require.Error(t, err)
}
