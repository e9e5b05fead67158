package ht

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockdb-go/blockdb/internal/record"
)

func newHashIndex(t *testing.T, buckets uint32) int {
	t.Helper()
	Init()
	path := filepath.Join(t.TempDir(), "hash.db")
	require.NoError(t, CreateIndex(path, buckets))
	desc, err := OpenIndex(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseFile(desc) })
	return desc
}

func TestCreateIndex_RejectsZeroBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	require.Error(t, CreateIndex(path, 0))
}

func TestCloseFile_UnopenedDescriptorIsAnError(t *testing.T) {
	Init()
	err := CloseFile(3)
	require.Error(t, err)
}

func TestCloseFile_OutOfRangeDescriptorPanics(t *testing.T) {
	Init()
	require.Panics(t, func() { _ = CloseFile(-1) })
	require.Panics(t, func() { _ = CloseFile(maxOpenFiles) })
}

func TestInsertAndLookup(t *testing.T) {
	desc := newHashIndex(t, 4)

	require.NoError(t, InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London")))
	require.NoError(t, InsertEntry(desc, record.New(5, "Alan", "Turing", "Manchester")))

	id := int32(5)
	out, err := PrintAllEntries(desc, &id)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out[0], "Alan")
}

func TestLookup_MissingKeyIsNotAnError(t *testing.T) {
	desc := newHashIndex(t, 4)
	require.NoError(t, InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London")))

	missing := int32(999)
	out, err := PrintAllEntries(desc, &missing)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestInsertEntry_OverflowsWhenBucketFull(t *testing.T) {
	desc := newHashIndex(t, 1)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, InsertEntry(desc, record.New(int32(i), "n", "s", "c")))
	}

	out, err := PrintAllEntries(desc, nil)
	require.NoError(t, err)
	require.Len(t, out, n)
}

func TestDeleteEntry_RemovesRecord(t *testing.T) {
	desc := newHashIndex(t, 4)
	require.NoError(t, InsertEntry(desc, record.New(1, "Ada", "Lovelace", "London")))
	require.NoError(t, InsertEntry(desc, record.New(5, "Alan", "Turing", "Manchester")))

	require.NoError(t, DeleteEntry(desc, 1))

	id := int32(1)
	out, err := PrintAllEntries(desc, &id)
	require.NoError(t, err)
	require.Empty(t, out)

	id = 5
	out, err = PrintAllEntries(desc, &id)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestDeleteEntry_MissingKeyIsNotAnError(t *testing.T) {
	desc := newHashIndex(t, 4)
	require.NoError(t, DeleteEntry(desc, 42))
}

func TestDeleteEntry_SwapsWithLastAcrossOverflowChain(t *testing.T) {
	desc := newHashIndex(t, 1)

	const n = 150
	for i := 0; i < n; i++ {
		require.NoError(t, InsertEntry(desc, record.New(int32(i), "n", "s", "c")))
	}

	require.NoError(t, DeleteEntry(desc, 0))

	out, err := PrintAllEntries(desc, nil)
	require.NoError(t, err)
	require.Len(t, out, n-1)

	missing := int32(0)
	found, err := PrintAllEntries(desc, &missing)
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestPrintAllEntries_All(t *testing.T) {
	desc := newHashIndex(t, 8)
	for i := 0; i < 10; i++ {
		require.NoError(t, InsertEntry(desc, record.New(int32(i), "n", "s", "c")))
	}

	out, err := PrintAllEntries(desc, nil)
	require.NoError(t, err)
	require.Len(t, out, 10)
}

func TestOpenIndex_ReopensAfterClose(t *testing.T) {
	Init()
	path := filepath.Join(t.TempDir(), "hash.db")
	require.NoError(t, CreateIndex(path, 4))

	desc, err := OpenIndex(path)
	require.NoError(t, err)
	require.NoError(t, CloseFile(desc))

	_, err = OpenIndex(path)
	require.NoError(t, err)
}
