// Package hp implements the heap-file engine: an append-only collection of
// fixed-length records stored in a blockpool-managed file. Block 0 holds
// the file identifier; every block after that packs a uint32 record count
// followed by as many records as fit.
package hp

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/record"
	"github.com/blockdb-go/blockdb/internal/utils"
)

// identifier is written to block 0 of every heap file and checked on open,
// so a caller can't accidentally open an HT or AM file as a heap file.
var identifier = []byte("%HPDB\n")

const maxOpenFiles = 20

// handle is the per-descriptor open-file state.
type handle struct {
	pool       *blockpool.Pool
	maxRecords int
}

var table [maxOpenFiles]*handle

// Init resets the descriptor table. It exists for test isolation and for
// symmetry with the other engines' Init; a long-running process only
// needs to call it once at startup.
func Init() {
	for i := range table {
		table[i] = nil
	}
}

func recordsPerBlock(blockSize int) int {
	return (blockSize - 4) / record.Size
}

// CreateFile creates a new, empty heap file at path.
func CreateFile(path string) error {
	if err := blockpool.Create(path, blockpool.DefaultBlockSize); err != nil {
		return utils.WrapError("hp.CreateFile", err)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return utils.WrapError("hp.CreateFile", err)
	}
	defer pool.Close()

	b, err := pool.GetBlock(0)
	if err != nil {
		return utils.WrapError("hp.CreateFile", err)
	}
	copy(b.Bytes(), identifier)
	b.SetDirty()
	return pool.Unpin(b)
}

// OpenFile opens an existing heap file and returns a descriptor for it.
func OpenFile(path string) (int, error) {
	desc := -1
	for i, h := range table {
		if h == nil {
			desc = i
			break
		}
	}
	if desc == -1 {
		return -1, utils.NewError("hp.OpenFile", utils.KindMaxOpenFiles)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return -1, utils.WrapError("hp.OpenFile", err)
	}

	b, err := pool.GetBlock(0)
	if err != nil {
		_ = pool.Close()
		return -1, utils.WrapError("hp.OpenFile", err)
	}
	match := bytes.Equal(b.Bytes()[:len(identifier)], identifier)
	_ = pool.Unpin(b)
	if !match {
		_ = pool.Close()
		return -1, utils.NewError("hp.OpenFile", utils.KindIdentifierMismatch)
	}

	table[desc] = &handle{pool: pool, maxRecords: recordsPerBlock(pool.BlockSize())}
	return desc, nil
}

func get(desc int) (*handle, error) {
	if desc < 0 || desc >= maxOpenFiles || table[desc] == nil {
		return nil, utils.NewError(fmt.Sprintf("hp(%d)", desc), utils.KindInvalidDescriptor)
	}
	return table[desc], nil
}

// CloseFile closes the heap file held by desc.
func CloseFile(desc int) error {
	h, err := get(desc)
	if err != nil {
		return err
	}
	if err := h.pool.Close(); err != nil {
		return utils.WrapError("hp.CloseFile", err)
	}
	table[desc] = nil
	return nil
}

// InsertEntry appends rec to the heap file and returns its row id.
func InsertEntry(desc int, rec record.Record) (int32, error) {
	h, err := get(desc)
	if err != nil {
		return 0, err
	}

	total := h.pool.GetBlockCounter()
	var blockIndex uint32
	var b *blockpool.Block

	if total == 1 {
		b, err = h.pool.AllocateBlock()
		if err != nil {
			return 0, utils.WrapError("hp.InsertEntry", err)
		}
		blockIndex = b.Index()
	} else {
		blockIndex = total - 1
		b, err = h.pool.GetBlock(blockIndex)
		if err != nil {
			return 0, utils.WrapError("hp.InsertEntry", err)
		}
		count := utils.Uint32(b.Bytes()[0:4])
		if int(count) >= h.maxRecords {
			_ = h.pool.Unpin(b)
			b, err = h.pool.AllocateBlock()
			if err != nil {
				return 0, utils.WrapError("hp.InsertEntry", err)
			}
			blockIndex = b.Index()
		}
	}

	count := utils.Uint32(b.Bytes()[0:4])
	off := 4 + int(count)*record.Size
	rec.Encode(b.Bytes()[off : off+record.Size])
	utils.PutUint32(b.Bytes()[0:4], count+1)
	b.SetDirty()
	if err := h.pool.Unpin(b); err != nil {
		return 0, utils.WrapError("hp.InsertEntry", err)
	}

	product, err := utils.SafeMultiply(uint64(blockIndex-1), uint64(h.maxRecords))
	if err != nil {
		return 0, utils.WrapKind("hp.InsertEntry", utils.KindInvalidOp, err)
	}
	rowID := int32(product + uint64(count))
	return rowID, nil
}

// GetEntry returns the record stored at rowID.
func GetEntry(desc int, rowID int32) (record.Record, error) {
	h, err := get(desc)
	if err != nil {
		return record.Record{}, err
	}

	blockIndex := uint32(1 + int(rowID)/h.maxRecords)
	slot := int(rowID) % h.maxRecords

	b, err := h.pool.GetBlock(blockIndex)
	if err != nil {
		return record.Record{}, utils.WrapError("hp.GetEntry", err)
	}
	defer h.pool.Unpin(b)

	count := utils.Uint32(b.Bytes()[0:4])
	if slot >= int(count) {
		return record.Record{}, utils.NewError("hp.GetEntry", utils.KindInvalidOp)
	}

	off := 4 + slot*record.Size
	return record.Decode(b.Bytes()[off : off+record.Size]), nil
}

// PrintAllEntries returns the string form of every record whose attr field
// matches value. If attr is empty, every record is returned unfiltered.
func PrintAllEntries(desc int, attr record.Attr, value string) ([]string, error) {
	h, err := get(desc)
	if err != nil {
		return nil, err
	}

	var offset, length int
	var wantID int32
	filtered := attr != ""
	if filtered {
		offset, length, err = record.FieldWindow(attr, value)
		if err != nil {
			return nil, utils.WrapError("hp.PrintAllEntries", err)
		}
		if attr == record.AttrID {
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, utils.NewError("hp.PrintAllEntries", utils.KindInvalidOp)
			}
			wantID = int32(n)
		}
	}

	var out []string
	total := h.pool.GetBlockCounter()
	for blockIndex := uint32(1); blockIndex < total; blockIndex++ {
		b, err := h.pool.GetBlock(blockIndex)
		if err != nil {
			return nil, utils.WrapError("hp.PrintAllEntries", err)
		}

		count := utils.Uint32(b.Bytes()[0:4])
		for slot := 0; slot < int(count); slot++ {
			recOff := 4 + slot*record.Size
			raw := b.Bytes()[recOff : recOff+record.Size]

			if filtered {
				if attr == record.AttrID {
					if utils.Int32(raw[offset:offset+length]) != wantID {
						continue
					}
				} else {
					window := make([]byte, length)
					copy(window, []byte(value))
					if !bytes.Equal(raw[offset:offset+length], window) {
						continue
					}
				}
			}
			out = append(out, record.Decode(raw).String())
		}

		if err := h.pool.Unpin(b); err != nil {
			return nil, utils.WrapError("hp.PrintAllEntries", err)
		}
	}

	return out, nil
}
