package am

import (
	"fmt"
	"os"

	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/utils"
)

var identifier = []byte("%BTDB")

const (
	maxOpenFiles = 20
	maxScans     = 20
	noBlock      = 0
)

// headerLayout: identifier[5] fieldType[1] _[2] fieldLen[4] root[4]
// dataHead[4] dataTail[4], all little-endian.
const (
	hdrFieldType = 5
	hdrFieldLen  = 8
	hdrRoot      = 12
	hdrDataHead  = 16
	hdrDataTail  = 20
)

type handle struct {
	path      string
	pool      *blockpool.Pool
	fieldType FieldType
	fieldLen  int
	root      uint32
	dataHead  uint32
	dataTail  uint32

	maxPointers    int
	maxLeafRecords int

	lastErr error
}

var table [maxOpenFiles]*handle

// Init resets the descriptor and scan tables.
func Init() {
	for i := range table {
		table[i] = nil
	}
	for i := range scanTable {
		scanTable[i] = nil
	}
}

// CreateIndex creates a new, empty B+ tree index over a field of the
// given type and length. Integers and floats are always 4 bytes; length
// only matters for char fields.
func CreateIndex(path string, fieldType FieldType, fieldLen int) error {
	if fieldType == TypeInt || fieldType == TypeFloat {
		fieldLen = 4
	}
	if fieldLen <= 0 {
		return utils.NewError("am.CreateIndex", utils.KindInvalidOp)
	}

	if err := blockpool.Create(path, blockpool.DefaultBlockSize); err != nil {
		return utils.WrapError("am.CreateIndex", err)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return utils.WrapError("am.CreateIndex", err)
	}
	defer pool.Close()

	b, err := pool.GetBlock(0)
	if err != nil {
		return utils.WrapError("am.CreateIndex", err)
	}
	copy(b.Bytes(), identifier)
	b.Bytes()[hdrFieldType] = byte(fieldType)
	utils.PutUint32(b.Bytes()[hdrFieldLen:hdrFieldLen+4], uint32(fieldLen))
	utils.PutUint32(b.Bytes()[hdrRoot:hdrRoot+4], noBlock)
	utils.PutUint32(b.Bytes()[hdrDataHead:hdrDataHead+4], noBlock)
	utils.PutUint32(b.Bytes()[hdrDataTail:hdrDataTail+4], noBlock)
	b.SetDirty()
	return pool.Unpin(b)
}

// DestroyIndex deletes the file at path, refusing if any descriptor has
// it open.
func DestroyIndex(path string) error {
	for _, h := range table {
		if h != nil && h.path == path {
			return utils.NewError("am.DestroyIndex", utils.KindFileInUse)
		}
	}
	if err := os.Remove(path); err != nil {
		return utils.WrapKind("am.DestroyIndex", utils.KindDestroy, err)
	}
	return nil
}

// OpenIndex opens an existing index file and returns a descriptor for it.
func OpenIndex(path string) (int, error) {
	desc := -1
	for i, h := range table {
		if h == nil {
			desc = i
			break
		}
	}
	if desc == -1 {
		return -1, utils.NewError("am.OpenIndex", utils.KindMaxOpenFiles)
	}

	pool, err := blockpool.Open(path, blockpool.DefaultBlockSize, 0, nil)
	if err != nil {
		return -1, utils.WrapError("am.OpenIndex", err)
	}

	b, err := pool.GetBlock(0)
	if err != nil {
		_ = pool.Close()
		return -1, utils.WrapError("am.OpenIndex", err)
	}
	matches := string(b.Bytes()[:len(identifier)]) == string(identifier)
	fieldType := FieldType(b.Bytes()[hdrFieldType])
	fieldLen := int(utils.Uint32(b.Bytes()[hdrFieldLen : hdrFieldLen+4]))
	root := utils.Uint32(b.Bytes()[hdrRoot : hdrRoot+4])
	dataHead := utils.Uint32(b.Bytes()[hdrDataHead : hdrDataHead+4])
	dataTail := utils.Uint32(b.Bytes()[hdrDataTail : hdrDataTail+4])
	_ = pool.Unpin(b)
	if !matches {
		_ = pool.Close()
		return -1, utils.NewError("am.OpenIndex", utils.KindIdentifierMismatch)
	}

	table[desc] = &handle{
		path:           path,
		pool:           pool,
		fieldType:      fieldType,
		fieldLen:       fieldLen,
		root:           root,
		dataHead:       dataHead,
		dataTail:       dataTail,
		maxPointers:    maxPointers(pool.BlockSize(), fieldLen),
		maxLeafRecords: maxLeafRecords(pool.BlockSize(), fieldLen),
	}
	return desc, nil
}

func get(desc int) (*handle, error) {
	if desc < 0 || desc >= maxOpenFiles || table[desc] == nil {
		return nil, utils.NewError(fmt.Sprintf("am(%d)", desc), utils.KindInvalidDescriptor)
	}
	return table[desc], nil
}

// CloseIndex writes the current header fields back to block 0 and closes
// the file, refusing if any open scan still references this descriptor.
func CloseIndex(desc int) (err error) {
	h, err := get(desc)
	if err != nil {
		return err
	}
	defer func() { h.lastErr = err }()

	for _, s := range scanTable {
		if s != nil && s.amDesc == desc {
			return utils.NewError("am.CloseIndex", utils.KindFileInUse)
		}
	}

	b, err := h.pool.GetBlock(0)
	if err != nil {
		return utils.WrapError("am.CloseIndex", err)
	}
	utils.PutUint32(b.Bytes()[hdrRoot:hdrRoot+4], h.root)
	utils.PutUint32(b.Bytes()[hdrDataHead:hdrDataHead+4], h.dataHead)
	utils.PutUint32(b.Bytes()[hdrDataTail:hdrDataTail+4], h.dataTail)
	b.SetDirty()
	if err := h.pool.Unpin(b); err != nil {
		return utils.WrapError("am.CloseIndex", err)
	}

	if err := h.pool.Close(); err != nil {
		return utils.WrapError("am.CloseIndex", err)
	}
	table[desc] = nil
	return nil
}
