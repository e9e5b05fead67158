// Package blockdb_test exercises the heap, hash, and tree engines together
// against the same kind of workload a real caller would run: index a heap
// file's rows by id in both a hash index and a B+ tree and read them back
// through each path.
package blockdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/blockdb-go/blockdb/am"
	"github.com/blockdb-go/blockdb/hp"
	"github.com/blockdb-go/blockdb/ht"
	"github.com/blockdb-go/blockdb/internal/record"
	"github.com/blockdb-go/blockdb/internal/utils"
)

func tempFile(t *testing.T, ext string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), uuid.NewString()+ext)
}

func encodeID(v int32) []byte {
	b := make([]byte, 4)
	utils.PutInt32(b, v)
	return b
}

func TestHeapHashAndTreeAgreeOnTheSameRecords(t *testing.T) {
	hp.Init()
	ht.Init()
	am.Init()

	heapPath := tempFile(t, ".hp")
	hashPath := tempFile(t, ".ht")
	treePath := tempFile(t, ".am")

	require.NoError(t, hp.CreateFile(heapPath))
	require.NoError(t, ht.CreateIndex(hashPath, 8))
	require.NoError(t, am.CreateIndex(treePath, am.TypeInt, 4))

	heapDesc, err := hp.OpenFile(heapPath)
	require.NoError(t, err)
	defer hp.CloseFile(heapDesc)

	hashDesc, err := ht.OpenIndex(hashPath)
	require.NoError(t, err)
	defer ht.CloseFile(hashDesc)

	treeDesc, err := am.OpenIndex(treePath)
	require.NoError(t, err)
	defer am.CloseIndex(treeDesc)

	people := []record.Record{
		record.New(1, "Ada", "Lovelace", "London"),
		record.New(2, "Alan", "Turing", "Manchester"),
		record.New(3, "Grace", "Hopper", "New York"),
	}

	for _, p := range people {
		rowID, err := hp.InsertEntry(heapDesc, p)
		require.NoError(t, err)
		require.NoError(t, ht.InsertEntry(hashDesc, p))
		require.NoError(t, am.InsertEntry(treeDesc, encodeID(p.ID), rowID))
	}

	sdesc, err := am.OpenIndexScan(treeDesc, am.Equal, encodeID(2))
	require.NoError(t, err)
	defer am.CloseIndexScan(sdesc)

	_, rowID, err := am.FindNextEntry(sdesc)
	require.NoError(t, err)

	fromHeap, err := hp.GetEntry(heapDesc, rowID)
	require.NoError(t, err)

	want := int32(2)
	fromHash, err := ht.PrintAllEntries(hashDesc, &want)
	require.NoError(t, err)
	require.Len(t, fromHash, 1)

	if diff := cmp.Diff(people[1].String(), fromHeap.String()); diff != "" {
		t.Errorf("heap lookup via tree pointer mismatched (-want +got):\n%s", diff)
	}
	require.Equal(t, people[1].String(), fromHash[0])
}

func TestCreateFile_FailsOnExistingPath(t *testing.T) {
	path := tempFile(t, ".hp")
	require.NoError(t, hp.CreateFile(path))
	require.Error(t, hp.CreateFile(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
