package blockpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPoolPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pool.db")
}

func TestCreate_FailsIfExists(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))
	require.Error(t, Create(path, DefaultBlockSize))
}

func TestOpen_FailsIfMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"), DefaultBlockSize, 0, nil)
	require.Error(t, err)
}

func TestGetBlock_ReturnsHeaderBlock(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)
	defer p.Close()

	require.EqualValues(t, 1, p.GetBlockCounter())

	b, err := p.GetBlock(0)
	require.NoError(t, err)
	require.Len(t, b.Bytes(), DefaultBlockSize)
	require.NoError(t, p.Unpin(b))
}

func TestGetBlock_OutOfRange(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetBlock(5)
	require.Error(t, err)
}

func TestAllocateBlock_PersistsAcrossReopen(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)

	b, err := p.AllocateBlock()
	require.NoError(t, err)
	require.EqualValues(t, 1, b.Index())

	copy(b.Bytes(), []byte("hello"))
	b.SetDirty()
	require.NoError(t, p.Unpin(b))
	require.NoError(t, p.Close())

	p2, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)
	defer p2.Close()

	require.EqualValues(t, 2, p2.GetBlockCounter())

	b2, err := p2.GetBlock(1)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b2.Bytes()[:5]))
	require.NoError(t, p2.Unpin(b2))
}

func TestUnpin_ReturnsBlockToCache(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 4, nil)
	require.NoError(t, err)
	defer p.Close()

	b, err := p.GetBlock(0)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(b))

	require.Empty(t, p.pinned)

	b2, err := p.GetBlock(0)
	require.NoError(t, err)
	require.Same(t, b, b2)
	require.NoError(t, p.Unpin(b2))
}

func TestUnpin_UnknownBlockErrors(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.Unpin(&Block{index: 99})
	require.Error(t, err)
}

func TestEviction_FlushesDirtyBlocks(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 1, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b, err := p.AllocateBlock()
		require.NoError(t, err)
		copy(b.Bytes(), []byte{byte('A' + i)})
		b.SetDirty()
		require.NoError(t, p.Unpin(b))
	}

	require.NoError(t, p.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 1)
	_, err = f.ReadAt(buf, int64(1)*DefaultBlockSize)
	require.NoError(t, err)
	require.Equal(t, byte('A'), buf[0])
}

func TestGetBlockCounter_GrowsOnAllocate(t *testing.T) {
	path := tempPoolPath(t)
	require.NoError(t, Create(path, DefaultBlockSize))

	p, err := Open(path, DefaultBlockSize, 0, nil)
	require.NoError(t, err)
	defer p.Close()

	before := p.GetBlockCounter()
	b, err := p.AllocateBlock()
	require.NoError(t, err)
	require.NoError(t, p.Unpin(b))

	require.Equal(t, before+1, p.GetBlockCounter())
}
