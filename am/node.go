package am

import "github.com/blockdb-go/blockdb/internal/utils"

// Every block — internal node or leaf — starts with a one-byte flag at
// offset 0 saying which kind it is.
func isLeafBlock(b []byte) bool { return b[0] == 1 }

const nodeHeaderSize = 8

func setNodeIsLeaf(b []byte, leaf bool) {
	if leaf {
		b[0] = 1
	} else {
		b[0] = 0
	}
}

func nodeKeyCount(b []byte) int        { return int(utils.Uint32(b[4:8])) }
func setNodeKeyCount(b []byte, n int)  { utils.PutUint32(b[4:8], uint32(n)) }
func entryStride(flen int) int         { return 4 + flen }

func nodePointer(b []byte, flen, i int) uint32 {
	off := nodeHeaderSize + i*entryStride(flen)
	return utils.Uint32(b[off : off+4])
}

func setNodePointer(b []byte, flen, i int, v uint32) {
	off := nodeHeaderSize + i*entryStride(flen)
	utils.PutUint32(b[off:off+4], v)
}

func nodeKey(b []byte, flen, i int) []byte {
	off := nodeHeaderSize + 4 + i*entryStride(flen)
	return b[off : off+flen]
}

func setNodeKey(b []byte, flen, i int, key []byte) {
	off := nodeHeaderSize + 4 + i*entryStride(flen)
	copy(b[off:off+flen], key)
}

// nodeFind returns the index of the pointer to descend into for value:
// the pointer just before the first key greater than value (the last
// pointer if no key is greater), so a key equal to a separator descends
// to that separator's right.
func nodeFind(b []byte, ftype FieldType, flen int, value []byte) int {
	count := nodeKeyCount(b)
	i := 0
	for i < count && compareKey(ftype, flen, nodeKey(b, flen, i), value) <= 0 {
		i++
	}
	return i
}

// maxPointers returns how many child pointers fit in one node block for
// fields of width flen.
func maxPointers(blockSize, flen int) int {
	space := blockSize - nodeHeaderSize
	return (space + flen) / (4 + flen)
}
