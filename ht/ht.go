// Package ht implements the static hash index engine: a fixed directory
// of buckets, each holding fixed-length records and chained to overflow
// blocks when full. Lookups by key are O(1) plus however long the
// overflow chain for that bucket has grown.
package ht

import (
	"fmt"

	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/record"
	"github.com/blockdb-go/blockdb/internal/utils"
)

var identifier = []byte("%HASHDB")

const (
	maxOpenFiles = 20
	noOverflow   = -1
	unsetSlot    = 0
)

// handle is the per-descriptor open-file state.
type handle struct {
	pool        *blockpool.Pool
	buckets     uint32
	dataStart   uint32
	mapsPerBlk  uint32
	maxRecords  int
	bucketBytes int
}

var table [maxOpenFiles]*handle

// Init resets the descriptor table.
func Init() {
	for i := range table {
		table[i] = nil
	}
}

func mapsPerBlock(blockSize int) uint32 {
	return uint32(blockSize / 4)
}

func maxRecordsPerBucket(blockSize int) int {
	return (blockSize - 8) / record.Size
}

// CreateIndex creates a new hash index file with the given number of
// buckets. buckets must be positive.
func CreateIndex(path string, buckets uint32) error {
	if buckets == 0 {
		return utils.NewError("ht.CreateIndex", utils.KindInvalidOp)
	}

	if err := blockpool.Create(path, blockpool.DefaultBlockSize); err != nil {
		return utils.WrapError("ht.CreateIndex", err)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return utils.WrapError("ht.CreateIndex", err)
	}
	defer pool.Close()

	mpb := mapsPerBlock(pool.BlockSize())
	mapBlocks := (buckets-1)/mpb + 1
	if err := utils.CheckMultiplyOverflow(uint64(mapBlocks), uint64(pool.BlockSize())); err != nil {
		return utils.WrapKind("ht.CreateIndex", utils.KindInvalidOp, err)
	}
	dataStart := mapBlocks + 1

	hdr, err := pool.GetBlock(0)
	if err != nil {
		return utils.WrapError("ht.CreateIndex", err)
	}
	copy(hdr.Bytes(), identifier)
	utils.PutUint32(hdr.Bytes()[8:12], buckets)
	utils.PutUint32(hdr.Bytes()[12:16], dataStart)
	hdr.SetDirty()
	if err := pool.Unpin(hdr); err != nil {
		return utils.WrapError("ht.CreateIndex", err)
	}

	for i := uint32(0); i < mapBlocks; i++ {
		b, err := pool.AllocateBlock()
		if err != nil {
			return utils.WrapError("ht.CreateIndex", err)
		}
		if err := pool.Unpin(b); err != nil {
			return utils.WrapError("ht.CreateIndex", err)
		}
	}

	return nil
}

// OpenIndex opens an existing hash index and returns a descriptor for it.
func OpenIndex(path string) (int, error) {
	desc := -1
	for i, h := range table {
		if h == nil {
			desc = i
			break
		}
	}
	if desc == -1 {
		return -1, utils.NewError("ht.OpenIndex", utils.KindMaxOpenFiles)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return -1, utils.WrapError("ht.OpenIndex", err)
	}

	hdr, err := pool.GetBlock(0)
	if err != nil {
		_ = pool.Close()
		return -1, utils.WrapError("ht.OpenIndex", err)
	}
	matches := string(hdr.Bytes()[:len(identifier)]) == string(identifier)
	buckets := utils.Uint32(hdr.Bytes()[8:12])
	dataStart := utils.Uint32(hdr.Bytes()[12:16])
	_ = pool.Unpin(hdr)
	if !matches {
		_ = pool.Close()
		return -1, utils.NewError("ht.OpenIndex", utils.KindIdentifierMismatch)
	}

	table[desc] = &handle{
		pool:       pool,
		buckets:    buckets,
		dataStart:  dataStart,
		mapsPerBlk: mapsPerBlock(pool.BlockSize()),
		maxRecords: maxRecordsPerBucket(pool.BlockSize()),
	}
	return desc, nil
}

// get looks up desc's handle. An out-of-range desc is a programming
// error, not a runtime condition a caller can recover from — the
// original hash_file.c's get_fd aborts the process for the same case,
// so this panics rather than returning an error. A valid-but-unopened
// descriptor is a normal error.
func get(desc int) (*handle, error) {
	if desc < 0 || desc >= maxOpenFiles {
		panic(fmt.Sprintf("ht: descriptor %d out of range", desc))
	}
	if table[desc] == nil {
		return nil, utils.NewError(fmt.Sprintf("ht(%d)", desc), utils.KindInvalidDescriptor)
	}
	return table[desc], nil
}

// CloseFile closes the hash index held by desc.
func CloseFile(desc int) error {
	h, err := get(desc)
	if err != nil {
		return err
	}
	if err := h.pool.Close(); err != nil {
		return utils.WrapError("ht.CloseFile", err)
	}
	table[desc] = nil
	return nil
}

type bucketMode int

const (
	modeTest bucketMode = iota
	modeCreate
)

// bucketHead returns the block index of the first bucket in hash's chain,
// allocating it when mode is modeCreate and the slot is still unset.
func (h *handle) bucketHead(hash uint32, mode bucketMode) (uint32, error) {
	mapBlockIndex := 1 + hash/h.mapsPerBlk
	slot := hash % h.mapsPerBlk

	mb, err := h.pool.GetBlock(mapBlockIndex)
	if err != nil {
		return 0, utils.WrapError("ht.bucketHead", err)
	}
	defer h.pool.Unpin(mb)

	off := int(slot) * 4
	if v := utils.Uint32(mb.Bytes()[off : off+4]); v != unsetSlot {
		return v, nil
	}

	if mode == modeTest {
		return 0, utils.NewError("ht.bucketHead", utils.KindInvalidOp)
	}

	b, err := h.pool.AllocateBlock()
	if err != nil {
		return 0, utils.WrapError("ht.bucketHead", err)
	}
	utils.PutInt32(b.Bytes()[0:4], noOverflow)
	b.SetDirty()
	if err := h.pool.Unpin(b); err != nil {
		return 0, utils.WrapError("ht.bucketHead", err)
	}

	utils.PutUint32(mb.Bytes()[off:off+4], b.Index())
	mb.SetDirty()
	return b.Index(), nil
}

// findEntry walks hash's chain looking for id. Not found is reported via
// the found return value, not an error — matching the original engine's
// treatment of a missing key as a normal outcome.
func (h *handle) findEntry(id int32) (blockIndex uint32, slot int, found bool, err error) {
	hash := uint32(id) % h.buckets
	blockIndex, err = h.bucketHead(hash, modeTest)
	if err != nil {
		return 0, 0, false, nil
	}

	for {
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return 0, 0, false, utils.WrapError("ht.findEntry", err)
		}

		count := int(utils.Uint32(b.Bytes()[4:8]))
		for i := 0; i < count; i++ {
			off := 8 + i*record.Size
			if utils.Int32(b.Bytes()[off:off+4]) == id {
				h.pool.Unpin(b)
				return blockIndex, i, true, nil
			}
		}

		next := utils.Int32(b.Bytes()[0:4])
		h.pool.Unpin(b)
		if next == noOverflow {
			return 0, 0, false, nil
		}
		blockIndex = uint32(next)
	}
}

// InsertEntry adds rec to the bucket chain for its id.
func InsertEntry(desc int, rec record.Record) error {
	h, err := get(desc)
	if err != nil {
		return err
	}

	hash := uint32(rec.ID) % h.buckets
	blockIndex, err := h.bucketHead(hash, modeCreate)
	if err != nil {
		return utils.WrapError("ht.InsertEntry", err)
	}

	for {
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return utils.WrapError("ht.InsertEntry", err)
		}

		count := int(utils.Uint32(b.Bytes()[4:8]))
		if count < h.maxRecords {
			off := 8 + count*record.Size
			rec.Encode(b.Bytes()[off : off+record.Size])
			utils.PutUint32(b.Bytes()[4:8], uint32(count+1))
			b.SetDirty()
			return h.pool.Unpin(b)
		}

		next := utils.Int32(b.Bytes()[0:4])
		if next != noOverflow {
			h.pool.Unpin(b)
			blockIndex = uint32(next)
			continue
		}

		nb, err := h.pool.AllocateBlock()
		if err != nil {
			h.pool.Unpin(b)
			return utils.WrapError("ht.InsertEntry", err)
		}
		utils.PutInt32(nb.Bytes()[0:4], noOverflow)
		rec.Encode(nb.Bytes()[8 : 8+record.Size])
		utils.PutUint32(nb.Bytes()[4:8], 1)
		nb.SetDirty()

		utils.PutInt32(b.Bytes()[0:4], int32(nb.Index()))
		b.SetDirty()

		if err := h.pool.Unpin(nb); err != nil {
			h.pool.Unpin(b)
			return utils.WrapError("ht.InsertEntry", err)
		}
		return h.pool.Unpin(b)
	}
}

// DeleteEntry removes the record with the given id, swapping the chain's
// last record into its place. Deleting an id that isn't present is not an
// error.
func DeleteEntry(desc int, id int32) error {
	h, err := get(desc)
	if err != nil {
		return err
	}

	blockIndex, slot, found, err := h.findEntry(id)
	if err != nil {
		return utils.WrapError("ht.DeleteEntry", err)
	}
	if !found {
		return nil
	}

	lastBlock, lastSlot, err := h.lastRecord(id)
	if err != nil {
		return utils.WrapError("ht.DeleteEntry", err)
	}

	target, err := h.pool.GetBlock(blockIndex)
	if err != nil {
		return utils.WrapError("ht.DeleteEntry", err)
	}

	if lastBlock == blockIndex {
		count := int(utils.Uint32(target.Bytes()[4:8]))
		if lastSlot != slot {
			srcOff := 8 + lastSlot*record.Size
			dstOff := 8 + slot*record.Size
			copy(target.Bytes()[dstOff:dstOff+record.Size], target.Bytes()[srcOff:srcOff+record.Size])
		}
		utils.PutUint32(target.Bytes()[4:8], uint32(count-1))
		target.SetDirty()
		return h.pool.Unpin(target)
	}

	last, err := h.pool.GetBlock(lastBlock)
	if err != nil {
		h.pool.Unpin(target)
		return utils.WrapError("ht.DeleteEntry", err)
	}

	lastCount := int(utils.Uint32(last.Bytes()[4:8]))
	srcOff := 8 + lastSlot*record.Size
	dstOff := 8 + slot*record.Size
	copy(target.Bytes()[dstOff:dstOff+record.Size], last.Bytes()[srcOff:srcOff+record.Size])
	utils.PutUint32(last.Bytes()[4:8], uint32(lastCount-1))

	target.SetDirty()
	last.SetDirty()
	if err := h.pool.Unpin(last); err != nil {
		h.pool.Unpin(target)
		return utils.WrapError("ht.DeleteEntry", err)
	}
	return h.pool.Unpin(target)
}

// lastRecord returns the location of the last record in id's chain.
func (h *handle) lastRecord(id int32) (blockIndex uint32, slot int, err error) {
	hash := uint32(id) % h.buckets
	blockIndex, err = h.bucketHead(hash, modeTest)
	if err != nil {
		return 0, 0, err
	}

	lastBlock, lastSlot := blockIndex, -1
	for {
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return 0, 0, utils.WrapError("ht.lastRecord", err)
		}
		next := utils.Int32(b.Bytes()[0:4])
		count := int(utils.Uint32(b.Bytes()[4:8]))
		h.pool.Unpin(b)

		if count > 0 {
			lastBlock, lastSlot = blockIndex, count-1
		}
		if next == noOverflow {
			return lastBlock, lastSlot, nil
		}
		blockIndex = uint32(next)
	}
}

// PrintAllEntries returns the string form of the record with the given id,
// or every record in the index when id is nil.
func PrintAllEntries(desc int, id *int32) ([]string, error) {
	h, err := get(desc)
	if err != nil {
		return nil, err
	}

	if id != nil {
		blockIndex, slot, found, err := h.findEntry(*id)
		if err != nil {
			return nil, utils.WrapError("ht.PrintAllEntries", err)
		}
		if !found {
			return nil, nil
		}
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return nil, utils.WrapError("ht.PrintAllEntries", err)
		}
		defer h.pool.Unpin(b)
		off := 8 + slot*record.Size
		return []string{record.Decode(b.Bytes()[off : off+record.Size]).String()}, nil
	}

	var out []string
	total := h.pool.GetBlockCounter()
	for blockIndex := h.dataStart; blockIndex < total; blockIndex++ {
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return nil, utils.WrapError("ht.PrintAllEntries", err)
		}
		count := int(utils.Uint32(b.Bytes()[4:8]))
		for i := 0; i < count; i++ {
			off := 8 + i*record.Size
			out = append(out, record.Decode(b.Bytes()[off:off+record.Size]).String())
		}
		if err := h.pool.Unpin(b); err != nil {
			return nil, utils.WrapError("ht.PrintAllEntries", err)
		}
	}
	return out, nil
}
