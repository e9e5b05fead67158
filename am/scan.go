package am

import (
	"fmt"

	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/utils"
)

// Operator selects how OpenIndexScan filters entries against its value.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

type scanState struct {
	amDesc int
	h      *handle
	op     Operator
	value  []byte

	blockIdx    uint32
	blockHandle *blockpool.Block
	pos         int
	done        bool
}

var scanTable [maxScans]*scanState

// OpenIndexScan positions a new scan over desc's index according to op
// and value, and returns a scan descriptor for FindNextEntry.
func OpenIndexScan(desc int, op Operator, value []byte) (sdesc int, err error) {
	h, gerr := get(desc)
	if gerr != nil {
		return -1, gerr
	}
	defer func() { h.lastErr = err }()

	if len(value) != h.fieldLen {
		err = utils.NewError("am.OpenIndexScan", utils.KindInvalidOp)
		return -1, err
	}

	sdesc = -1
	for i, s := range scanTable {
		if s == nil {
			sdesc = i
			break
		}
	}
	if sdesc == -1 {
		err = utils.NewError("am.OpenIndexScan", utils.KindMaxScans)
		return -1, err
	}

	s := &scanState{amDesc: desc, h: h, op: op, value: append([]byte(nil), value...)}

	if h.root == noBlock {
		s.done = true
		scanTable[sdesc] = s
		return sdesc, nil
	}

	switch op {
	case Equal, GreaterThan, GreaterThanOrEqual:
		leafIdx, descErr := h.descendToLeaf(value)
		if descErr != nil {
			err = descErr
			return -1, err
		}
		b, getErr := h.pool.GetBlock(leafIdx)
		if getErr != nil {
			err = utils.WrapError("am.OpenIndexScan", getErr)
			return -1, err
		}
		if op == GreaterThan {
			s.pos = leafFindLast(b.Bytes(), h.fieldType, h.fieldLen, value) + 1
		} else {
			s.pos = leafFindFirst(b.Bytes(), h.fieldType, h.fieldLen, value)
		}
		s.blockIdx = leafIdx
		s.blockHandle = b
	default: // NotEqual, LessThan, LessThanOrEqual start from the beginning
		b, getErr := h.pool.GetBlock(h.dataHead)
		if getErr != nil {
			err = utils.WrapError("am.OpenIndexScan", getErr)
			return -1, err
		}
		s.blockIdx = h.dataHead
		s.blockHandle = b
		s.pos = 0
	}

	scanTable[sdesc] = s
	return sdesc, nil
}

func getScan(sdesc int) (*scanState, error) {
	if sdesc < 0 || sdesc >= maxScans || scanTable[sdesc] == nil {
		return nil, utils.NewError(fmt.Sprintf("am-scan(%d)", sdesc), utils.KindInvalidScand)
	}
	return scanTable[sdesc], nil
}

// predicate reports whether key satisfies the scan's operator, and
// whether the scan can stop now that it's seen a key failing it. Only
// Equal, LessThan and LessThanOrEqual ever stop; NotEqual, GreaterThan and
// GreaterThanOrEqual never stop early and run to the end of the leaf chain.
func (s *scanState) predicate(key []byte) (matches, stop bool) {
	c := compareKey(s.h.fieldType, s.h.fieldLen, key, s.value)
	switch s.op {
	case Equal:
		return c == 0, c != 0
	case NotEqual:
		return c != 0, false
	case LessThan:
		return c < 0, c >= 0
	case LessThanOrEqual:
		return c <= 0, c > 0
	case GreaterThan:
		return c > 0, false
	case GreaterThanOrEqual:
		return c >= 0, false
	default:
		return false, true
	}
}

// FindNextEntry returns the next (key, value) pair matching the scan, or
// a KindEOF error once the scan is exhausted.
func FindNextEntry(sdesc int) (key []byte, value int32, err error) {
	s, gerr := getScan(sdesc)
	if gerr != nil {
		return nil, 0, gerr
	}
	defer func() { s.h.lastErr = err }()

	if s.done {
		err = utils.NewError("am.FindNextEntry", utils.KindEOF)
		return nil, 0, err
	}

	for {
		count := leafRecordCount(s.blockHandle.Bytes())
		if s.pos >= count {
			next := leafNextBlock(s.blockHandle.Bytes())
			if unpinErr := s.h.pool.Unpin(s.blockHandle); unpinErr != nil {
				err = utils.WrapError("am.FindNextEntry", unpinErr)
				return nil, 0, err
			}
			s.blockHandle = nil

			if next == noBlock {
				s.done = true
				err = utils.NewError("am.FindNextEntry", utils.KindEOF)
				return nil, 0, err
			}

			b, getErr := s.h.pool.GetBlock(next)
			if getErr != nil {
				err = utils.WrapError("am.FindNextEntry", getErr)
				return nil, 0, err
			}
			s.blockIdx = next
			s.blockHandle = b
			s.pos = 0
			continue
		}

		k := append([]byte(nil), leafField1(s.blockHandle.Bytes(), s.h.fieldLen, s.pos)...)
		v := leafField2(s.blockHandle.Bytes(), s.h.fieldLen, s.pos)
		matches, stop := s.predicate(k)
		s.pos++

		if stop {
			s.done = true
			if unpinErr := s.h.pool.Unpin(s.blockHandle); unpinErr != nil {
				err = utils.WrapError("am.FindNextEntry", unpinErr)
				return nil, 0, err
			}
			s.blockHandle = nil
			err = utils.NewError("am.FindNextEntry", utils.KindEOF)
			return nil, 0, err
		}
		if matches {
			return k, v, nil
		}
	}
}

// CloseIndexScan releases the scan descriptor and unpins its current
// block, if it hasn't already run to completion.
func CloseIndexScan(sdesc int) (err error) {
	s, gerr := getScan(sdesc)
	if gerr != nil {
		return gerr
	}
	defer func() { s.h.lastErr = err }()

	if s.blockHandle != nil {
		if unpinErr := s.h.pool.Unpin(s.blockHandle); unpinErr != nil {
			err = utils.WrapError("am.CloseIndexScan", unpinErr)
			return err
		}
	}
	scanTable[sdesc] = nil
	return nil
}
