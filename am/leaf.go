package am

import "github.com/blockdb-go/blockdb/internal/utils"

const leafHeaderSize = 12

func setLeafIsLeaf(b []byte)          { b[0] = 1 }
func leafRecordCount(b []byte) int    { return int(utils.Uint32(b[4:8])) }
func setLeafRecordCount(b []byte, n int) { utils.PutUint32(b[4:8], uint32(n)) }
func leafNextBlock(b []byte) uint32   { return utils.Uint32(b[8:12]) }
func setLeafNextBlock(b []byte, v uint32) { utils.PutUint32(b[8:12], v) }

func leafRecordStride(flen int) int { return flen + 4 }

func leafField1(b []byte, flen, i int) []byte {
	off := leafHeaderSize + i*leafRecordStride(flen)
	return b[off : off+flen]
}

func leafField2(b []byte, flen, i int) int32 {
	off := leafHeaderSize + i*leafRecordStride(flen) + flen
	return utils.Int32(b[off : off+4])
}

func setLeafRecord(b []byte, flen, i int, key []byte, value int32) {
	off := leafHeaderSize + i*leafRecordStride(flen)
	copy(b[off:off+flen], key)
	utils.PutInt32(b[off+flen:off+flen+4], value)
}

// maxLeafRecords returns how many records fit in one leaf block for
// fields of width flen.
func maxLeafRecords(blockSize, flen int) int {
	space := blockSize - leafHeaderSize
	return space / leafRecordStride(flen)
}

// leafFindFirst returns the index of the first record whose key is >=
// value. If every key is < value, it returns the record count.
func leafFindFirst(b []byte, ftype FieldType, flen int, value []byte) int {
	count := leafRecordCount(b)
	i := 0
	for i < count && compareKey(ftype, flen, leafField1(b, flen, i), value) < 0 {
		i++
	}
	return i
}

// leafFindLast returns the index of the last record whose key is <=
// value, or one less than leafFindFirst's result if value isn't present.
func leafFindLast(b []byte, ftype FieldType, flen int, value []byte) int {
	count := leafRecordCount(b)
	i := 0
	for i < count && compareKey(ftype, flen, leafField1(b, flen, i), value) <= 0 {
		i++
	}
	return i - 1
}

// insertLeafNonfull shifts records [pos, count) right by one slot and
// writes the new record at pos. The caller must have already checked the
// leaf isn't full.
func insertLeafNonfull(b []byte, flen, count, pos int, key []byte, value int32) {
	for i := count; i > pos; i-- {
		k := append([]byte(nil), leafField1(b, flen, i-1)...)
		v := leafField2(b, flen, i-1)
		setLeafRecord(b, flen, i, k, v)
	}
	setLeafRecord(b, flen, pos, key, value)
	setLeafRecordCount(b, count+1)
}

// splitLeaf moves the back half of b's records into newb, using
// leafFindFirst on the midpoint key so that all occurrences of a
// duplicated key end up in the same leaf. It returns the split point.
func splitLeaf(b []byte, ftype FieldType, flen, count int, newb []byte) int {
	mid := count / 2
	pivotKey := append([]byte(nil), leafField1(b, flen, mid)...)
	pivot := leafFindFirst(b, ftype, flen, pivotKey)

	newCount := count - pivot
	for i := 0; i < newCount; i++ {
		k := append([]byte(nil), leafField1(b, flen, pivot+i)...)
		v := leafField2(b, flen, pivot+i)
		setLeafRecord(newb, flen, i, k, v)
	}
	setLeafRecordCount(newb, newCount)
	setLeafRecordCount(b, pivot)
	return pivot
}
