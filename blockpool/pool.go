// Package blockpool implements the BP contract the storage engines are
// specified against: fixed-size blocks identified by (file, index), pinned
// while in use, cached under an LRU eviction policy, and persisted on
// eviction or Close. HP, HT, and AM never touch the underlying *os.File or
// the eviction cache directly — they only see *Pool and *Block.
package blockpool

import (
	"bytes"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/blockdb-go/blockdb/internal/utils"
)

// DefaultBlockSize matches the original implementation's typical block
// size (§2 of the spec: "typical 512 B").
const DefaultBlockSize = 512

// DefaultCacheSize bounds how many unpinned blocks stay resident before
// the eviction policy starts flushing them back to disk.
const DefaultCacheSize = 64

// maxBlockSize bounds how large a single block may be. It's generous
// enough for any real deployment while catching a caller-supplied or
// corrupt header value before it's used to size an allocation.
const maxBlockSize = 1 << 20

// pinEntry tracks a currently-pinned block and its reference count. Pinned
// blocks live outside the LRU cache entirely — the cache only ever holds
// blocks with a zero pin count, so it can never evict something in use.
type pinEntry struct {
	block *Block
	count int
}

// Pool is one open managed file plus its block cache.
type Pool struct {
	file       *os.File
	path       string
	blockSize  int
	blockCount uint32

	pinned map[uint32]*pinEntry
	cache  *lru.Cache[uint32, *Block]

	log *zap.SugaredLogger
}

// Create makes a new file of exactly one zeroed block, failing if the path
// already exists — matching BF_CreateFile's "will fail if file exists"
// contract. The write goes through atomic.WriteFile so a crash between
// create and the engine's subsequent identifier write can never leave a
// file that looks valid but isn't.
func Create(path string, blockSize int) error {
	if err := utils.ValidateBufferSize(uint64(blockSize), maxBlockSize, "blockpool.Create blockSize"); err != nil {
		return utils.WrapKind("blockpool.Create", utils.KindInvalidOp, err)
	}

	if _, err := os.Stat(path); err == nil {
		return utils.NewError("blockpool.Create", utils.KindFileInUse)
	} else if !os.IsNotExist(err) {
		return utils.WrapKind("blockpool.Create", utils.KindBufferPool, err)
	}

	zero := make([]byte, blockSize)
	if err := atomic.WriteFile(path, bytes.NewReader(zero)); err != nil {
		return utils.WrapKind("blockpool.Create", utils.KindBufferPool, err)
	}
	return nil
}

// Open opens an existing managed file. cacheSize is the maximum number of
// unpinned blocks kept resident; pass 0 for DefaultCacheSize. logger may be
// nil, in which case pool activity is not logged.
func Open(path string, blockSize, cacheSize int, logger *zap.SugaredLogger) (*Pool, error) {
	if err := utils.ValidateBufferSize(uint64(blockSize), maxBlockSize, "blockpool.Open blockSize"); err != nil {
		return nil, utils.WrapKind("blockpool.Open", utils.KindInvalidOp, err)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, utils.WrapKind("blockpool.Open", utils.KindFileNotFound, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, utils.WrapKind("blockpool.Open", utils.KindBufferPool, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, utils.WrapKind("blockpool.Open", utils.KindBufferPool, err)
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	p := &Pool{
		file:       f,
		path:       path,
		blockSize:  blockSize,
		blockCount: uint32(info.Size() / int64(blockSize)),
		pinned:     make(map[uint32]*pinEntry),
		log:        logger,
	}

	p.cache, err = lru.NewWithEvict[uint32, *Block](cacheSize, p.onEvict)
	if err != nil {
		_ = f.Close()
		return nil, utils.WrapKind("blockpool.Open", utils.KindBufferPool, err)
	}

	p.logf("opened %s: %d blocks of %d bytes", path, p.blockCount, blockSize)
	return p, nil
}

func (p *Pool) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Debugf(format, args...)
	}
}

// onEvict is the golang-lru callback fired when the cache drops an
// unpinned block to make room. It is the only place a dirty, unpinned
// block gets written back before Close.
func (p *Pool) onEvict(index uint32, b *Block) {
	if err := p.flush(b); err != nil {
		p.logf("evicting block %d: flush failed: %v", index, err)
	} else {
		p.logf("evicted block %d (dirty=%v)", index, b.wasDirty)
	}
}

func (p *Pool) flush(b *Block) error {
	if !b.wasDirty {
		return nil
	}
	off := int64(b.index) * int64(p.blockSize)
	if _, err := p.file.WriteAt(b.data, off); err != nil {
		return utils.WrapKind("blockpool.flush", utils.KindBufferPool, err)
	}
	b.wasDirty = false
	return nil
}

// GetBlockCounter returns the total number of blocks in the file,
// including the header block at index 0.
func (p *Pool) GetBlockCounter() uint32 {
	return p.blockCount
}

// GetBlock fetches and pins the block at index, reading it from disk if it
// isn't already resident. The caller must Unpin it exactly once.
func (p *Pool) GetBlock(index uint32) (*Block, error) {
	if index >= p.blockCount {
		return nil, utils.NewError(fmt.Sprintf("blockpool.GetBlock(%d)", index), utils.KindBufferPool)
	}

	if entry, ok := p.pinned[index]; ok {
		entry.count++
		return entry.block, nil
	}

	if b, ok := p.cache.Get(index); ok {
		p.cache.Remove(index)
		p.pinned[index] = &pinEntry{block: b, count: 1}
		return b, nil
	}

	data := make([]byte, p.blockSize)
	off := int64(index) * int64(p.blockSize)
	if _, err := p.file.ReadAt(data, off); err != nil {
		return nil, utils.WrapKind("blockpool.GetBlock", utils.KindBufferPool, err)
	}

	b := &Block{index: index, data: data, pool: p}
	p.pinned[index] = &pinEntry{block: b, count: 1}
	return b, nil
}

// AllocateBlock appends a new, zeroed block at the end of the file and
// returns it pinned. The pin discipline is identical to GetBlock's.
func (p *Pool) AllocateBlock() (*Block, error) {
	index := p.blockCount
	b := &Block{index: index, data: make([]byte, p.blockSize), pool: p}

	off := int64(index) * int64(p.blockSize)
	if _, err := p.file.WriteAt(b.data, off); err != nil {
		return nil, utils.WrapKind("blockpool.AllocateBlock", utils.KindBufferPool, err)
	}

	p.blockCount++
	p.pinned[index] = &pinEntry{block: b, count: 1}
	p.logf("allocated block %d", index)
	return b, nil
}

// Unpin releases one reference to b. Once the reference count reaches
// zero, the block becomes eligible for eviction — it moves into the LRU
// cache rather than being flushed immediately, so a block that gets
// re-pinned soon after doesn't pay for a disk round-trip.
func (p *Pool) Unpin(b *Block) error {
	entry, ok := p.pinned[b.index]
	if !ok {
		return utils.NewError(fmt.Sprintf("blockpool.Unpin(%d)", b.index), utils.KindBufferPool)
	}

	entry.count--
	if entry.count > 0 {
		return nil
	}

	delete(p.pinned, b.index)
	p.cache.Add(b.index, b)
	return nil
}

// Close flushes every dirty block, pinned or cached, and closes the
// underlying file. Blocks still pinned at Close time are a caller bug
// (a leaked pin), but their data is flushed anyway rather than lost.
func (p *Pool) Close() error {
	for _, entry := range p.pinned {
		if err := p.flush(entry.block); err != nil {
			return err
		}
	}
	for _, k := range p.cache.Keys() {
		if b, ok := p.cache.Peek(k); ok {
			if err := p.flush(b); err != nil {
				return err
			}
		}
	}
	p.cache.Purge()

	if err := p.file.Close(); err != nil {
		return utils.WrapKind("blockpool.Close", utils.KindBufferPool, err)
	}
	p.logf("closed %s", p.path)
	return nil
}

// Path returns the path the pool was opened against.
func (p *Pool) Path() string {
	return p.path
}

// BlockSize returns the fixed block size this pool was opened with.
func (p *Pool) BlockSize() int {
	return p.blockSize
}
