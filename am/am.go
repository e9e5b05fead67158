package am

import (
	"github.com/blockdb-go/blockdb/blockpool"
	"github.com/blockdb-go/blockdb/internal/utils"
)

// descendToLeaf walks from the root to the leaf that would contain value,
// without recording the path taken.
func (h *handle) descendToLeaf(value []byte) (uint32, error) {
	cur := h.root
	for {
		b, err := h.pool.GetBlock(cur)
		if err != nil {
			return 0, utils.WrapError("am.descendToLeaf", err)
		}
		if isLeafBlock(b.Bytes()) {
			_ = h.pool.Unpin(b)
			return cur, nil
		}
		idx := nodeFind(b.Bytes(), h.fieldType, h.fieldLen, value)
		next := nodePointer(b.Bytes(), h.fieldLen, idx)
		_ = h.pool.Unpin(b)
		cur = next
	}
}

// descendWithStack is descendToLeaf but also records the internal node
// blocks visited, innermost last, so a split can be propagated back up
// without on-disk parent pointers.
func (h *handle) descendWithStack(value []byte) (uint32, []uint32, error) {
	var stack []uint32
	cur := h.root
	for {
		b, err := h.pool.GetBlock(cur)
		if err != nil {
			return 0, nil, utils.WrapError("am.descendWithStack", err)
		}
		if isLeafBlock(b.Bytes()) {
			_ = h.pool.Unpin(b)
			return cur, stack, nil
		}
		idx := nodeFind(b.Bytes(), h.fieldType, h.fieldLen, value)
		next := nodePointer(b.Bytes(), h.fieldLen, idx)
		_ = h.pool.Unpin(b)
		stack = append(stack, cur)
		cur = next
	}
}

// InsertEntry adds (key, value) to the index, splitting leaves and
// internal nodes as needed and growing the tree's height when the split
// propagates past the root.
func InsertEntry(desc int, key []byte, value int32) (err error) {
	h, gerr := get(desc)
	if gerr != nil {
		return gerr
	}
	defer func() { h.lastErr = err }()

	if len(key) != h.fieldLen {
		err = utils.NewError("am.InsertEntry", utils.KindInvalidOp)
		return err
	}

	if h.root == noBlock {
		err = h.bootstrap(key, value)
		return err
	}

	leafIdx, stack, descErr := h.descendWithStack(key)
	if descErr != nil {
		err = descErr
		return err
	}

	lb, getErr := h.pool.GetBlock(leafIdx)
	if getErr != nil {
		err = utils.WrapError("am.InsertEntry", getErr)
		return err
	}

	count := leafRecordCount(lb.Bytes())
	if count < h.maxLeafRecords {
		pos := leafFindLast(lb.Bytes(), h.fieldType, h.fieldLen, key) + 1
		insertLeafNonfull(lb.Bytes(), h.fieldLen, count, pos, key, value)
		lb.SetDirty()
		err = h.pool.Unpin(lb)
		return err
	}

	keyUp, pointerUp, splitErr := h.splitLeafAndInsert(lb, key, value)
	if splitErr != nil {
		err = splitErr
		return err
	}

	err = h.propagateSplit(stack, keyUp, pointerUp)
	return err
}

// bootstrap creates the tree's very first leaf, which also becomes the
// root, when the index has no blocks yet besides its header.
func (h *handle) bootstrap(key []byte, value int32) error {
	lb, err := h.pool.AllocateBlock()
	if err != nil {
		return utils.WrapError("am.bootstrap", err)
	}
	setLeafIsLeaf(lb.Bytes())
	setLeafNextBlock(lb.Bytes(), noBlock)
	setLeafRecord(lb.Bytes(), h.fieldLen, 0, key, value)
	setLeafRecordCount(lb.Bytes(), 1)
	lb.SetDirty()

	h.root = lb.Index()
	h.dataHead = lb.Index()
	h.dataTail = lb.Index()
	return h.pool.Unpin(lb)
}

// splitLeafAndInsert splits a full leaf, places (key, value) in whichever
// half it belongs to, and returns the separator key and new leaf's block
// index to propagate up to the parent.
func (h *handle) splitLeafAndInsert(lb *blockpool.Block, key []byte, value int32) ([]byte, uint32, error) {
	count := leafRecordCount(lb.Bytes())

	newLeaf, err := h.pool.AllocateBlock()
	if err != nil {
		return nil, 0, utils.WrapError("am.splitLeafAndInsert", err)
	}
	setLeafIsLeaf(newLeaf.Bytes())

	splitLeaf(lb.Bytes(), h.fieldType, h.fieldLen, count, newLeaf.Bytes())
	setLeafNextBlock(newLeaf.Bytes(), leafNextBlock(lb.Bytes()))
	setLeafNextBlock(lb.Bytes(), newLeaf.Index())
	if h.dataTail == lb.Index() {
		h.dataTail = newLeaf.Index()
	}

	target := lb
	if leafRecordCount(newLeaf.Bytes()) == 0 ||
		compareKey(h.fieldType, h.fieldLen, key, leafField1(newLeaf.Bytes(), h.fieldLen, 0)) >= 0 {
		target = newLeaf
	}
	pos := leafFindLast(target.Bytes(), h.fieldType, h.fieldLen, key) + 1
	insertLeafNonfull(target.Bytes(), h.fieldLen, leafRecordCount(target.Bytes()), pos, key, value)

	keyUp := append([]byte(nil), leafField1(newLeaf.Bytes(), h.fieldLen, 0)...)
	pointerUp := newLeaf.Index()

	lb.SetDirty()
	newLeaf.SetDirty()
	if err := h.pool.Unpin(newLeaf); err != nil {
		_ = h.pool.Unpin(lb)
		return nil, 0, utils.WrapError("am.splitLeafAndInsert", err)
	}
	if err := h.pool.Unpin(lb); err != nil {
		return nil, 0, utils.WrapError("am.splitLeafAndInsert", err)
	}
	return keyUp, pointerUp, nil
}

// propagateSplit walks the traversal stack from the leaf's parent up to
// the root, inserting (keyUp, pointerUp) into each ancestor and splitting
// it in turn if it's full. When the stack runs out and a split is still
// pending, a new root is created, growing the tree by one level.
func (h *handle) propagateSplit(stack []uint32, keyUp []byte, pointerUp uint32) error {
	for len(stack) > 0 {
		parentIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pb, err := h.pool.GetBlock(parentIdx)
		if err != nil {
			return utils.WrapError("am.propagateSplit", err)
		}

		pos := nodeFind(pb.Bytes(), h.fieldType, h.fieldLen, keyUp)
		splitKeyUp, newIdx, split, err := h.insertIntoNode(pb, pos, keyUp, pointerUp)
		unpinErr := h.pool.Unpin(pb)
		if err != nil {
			return utils.WrapError("am.propagateSplit", err)
		}
		if unpinErr != nil {
			return utils.WrapError("am.propagateSplit", unpinErr)
		}

		if !split {
			return nil
		}
		keyUp, pointerUp = splitKeyUp, newIdx
	}

	newRoot, err := h.pool.AllocateBlock()
	if err != nil {
		return utils.WrapError("am.propagateSplit", err)
	}
	setNodeIsLeaf(newRoot.Bytes(), false)
	setNodeKeyCount(newRoot.Bytes(), 1)
	setNodePointer(newRoot.Bytes(), h.fieldLen, 0, h.root)
	setNodeKey(newRoot.Bytes(), h.fieldLen, 0, keyUp)
	setNodePointer(newRoot.Bytes(), h.fieldLen, 1, pointerUp)
	newRoot.SetDirty()

	h.root = newRoot.Index()
	return h.pool.Unpin(newRoot)
}

// insertIntoNode inserts (key, pointer) into an internal node at logical
// position pos, splitting it if the insertion would overflow its
// capacity. It operates on in-memory copies of the node's entries rather
// than shifting bytes in place, since a node's capacity is small enough
// that the allocation cost doesn't matter and the split math reads much
// more clearly this way.
func (h *handle) insertIntoNode(pb *blockpool.Block, pos int, key []byte, pointer uint32) (splitKeyUp []byte, newNodeIdx uint32, split bool, err error) {
	flen := h.fieldLen
	count := nodeKeyCount(pb.Bytes())

	keys := make([][]byte, 0, count+1)
	for i := 0; i < count; i++ {
		keys = append(keys, append([]byte(nil), nodeKey(pb.Bytes(), flen, i)...))
	}
	ptrs := make([]uint32, 0, count+2)
	for i := 0; i <= count; i++ {
		ptrs = append(ptrs, nodePointer(pb.Bytes(), flen, i))
	}

	keys = append(keys[:pos], append([][]byte{key}, keys[pos:]...)...)
	ptrs = append(ptrs[:pos+1], append([]uint32{pointer}, ptrs[pos+1:]...)...)

	newCount := len(keys)
	if newCount < h.maxPointers {
		setNodeKeyCount(pb.Bytes(), newCount)
		for i := 0; i < newCount; i++ {
			setNodeKey(pb.Bytes(), flen, i, keys[i])
		}
		for i := 0; i <= newCount; i++ {
			setNodePointer(pb.Bytes(), flen, i, ptrs[i])
		}
		pb.SetDirty()
		return nil, 0, false, nil
	}

	mid := newCount / 2
	keyUp := keys[mid]
	leftCount := mid
	rightCount := newCount - mid - 1

	for i := 0; i < leftCount; i++ {
		setNodeKey(pb.Bytes(), flen, i, keys[i])
	}
	for i := 0; i <= leftCount; i++ {
		setNodePointer(pb.Bytes(), flen, i, ptrs[i])
	}
	setNodeKeyCount(pb.Bytes(), leftCount)
	pb.SetDirty()

	nb, err := h.pool.AllocateBlock()
	if err != nil {
		return nil, 0, false, utils.WrapError("am.insertIntoNode", err)
	}
	setNodeIsLeaf(nb.Bytes(), false)
	for i := 0; i < rightCount; i++ {
		setNodeKey(nb.Bytes(), flen, i, keys[mid+1+i])
	}
	for i := 0; i <= rightCount; i++ {
		setNodePointer(nb.Bytes(), flen, i, ptrs[mid+1+i])
	}
	setNodeKeyCount(nb.Bytes(), rightCount)
	nb.SetDirty()

	newIdx := nb.Index()
	if err := h.pool.Unpin(nb); err != nil {
		return nil, 0, false, utils.WrapError("am.insertIntoNode", err)
	}
	return keyUp, newIdx, true, nil
}
