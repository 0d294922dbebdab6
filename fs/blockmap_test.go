package fs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

func TestIndexPathRegions(t *testing.T) {
	nind := uint32(common.NR_INDIRECTS)

	slot, path, err := indexPath(0)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	assert.Empty(t, path)

	slot, path, err = indexPath(11)
	require.NoError(t, err)
	assert.Equal(t, 11, slot)
	assert.Empty(t, path)

	slot, path, err = indexPath(12)
	require.NoError(t, err)
	assert.Equal(t, common.NR_DIRECT, slot)
	assert.Equal(t, []uint32{0}, path)

	slot, path, err = indexPath(12 + nind - 1)
	require.NoError(t, err)
	assert.Equal(t, common.NR_DIRECT, slot)
	assert.Equal(t, []uint32{nind - 1}, path)

	slot, path, err = indexPath(12 + nind)
	require.NoError(t, err)
	assert.Equal(t, common.NR_DIRECT+1, slot)
	assert.Equal(t, []uint32{0, 0}, path)

	slot, path, err = indexPath(12 + nind + nind*nind)
	require.NoError(t, err)
	assert.Equal(t, common.NR_DIRECT+2, slot)
	assert.Equal(t, []uint32{0, 0, 0}, path)

	_, _, err = indexPath(12 + nind + nind*nind + nind*nind*nind)
	assert.Equal(t, common.EFBIG, err)
}

// Writing inside the double-indirect region allocates the intermediate
// nodes, charges them to the inode, and reads back intact.
func TestDoubleIndirectWrite(t *testing.T) {
	fsys := newTestFS(t, 4096)

	lbn := uint32(12 + common.NR_INDIRECTS + 1)
	pos := int64(lbn) * common.BLOCK_SIZE
	payload := bytes.Repeat([]byte{0x5A}, 512)

	require.NoError(t, fsys.Mknod(rootCaller, "/big", common.I_REGULAR|0644))
	n, err := fsys.Write(rootCaller, "/big", payload, pos)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, 512)
	n, err = fsys.Read(rootCaller, "/big", buf, pos)
	require.NoError(t, err)
	require.Equal(t, 512, n)
	assert.True(t, bytes.Equal(payload, buf))

	// One data block plus the double-indirect root and one L1 node.
	st, err := fsys.GetAttr(rootCaller, "/big")
	require.NoError(t, err)
	assert.Equal(t, uint32(3*common.SECTORS_PER_BLOCK), st.Blocks)

	inum, err := fsys.pathToInode(rootCaller, "/big")
	require.NoError(t, err)
	rip, err := fsys.readInode(inum)
	require.NoError(t, err)

	b, err := fsys.readMap(rip, lbn)
	require.NoError(t, err)
	assert.NotEqual(t, uint32(common.NO_BLOCK), b)
	hole, err := fsys.readMap(rip, lbn+1)
	require.NoError(t, err)
	assert.Equal(t, uint32(common.NO_BLOCK), hole)
}

// allocForWrite hands the same block back on repeat calls.
func TestAllocForWriteIdempotent(t *testing.T) {
	fsys := newTestFS(t, 2048)

	require.NoError(t, fsys.Mknod(rootCaller, "/f", common.I_REGULAR|0644))
	inum, err := fsys.pathToInode(rootCaller, "/f")
	require.NoError(t, err)
	rip, err := fsys.readInode(inum)
	require.NoError(t, err)

	b1, created, err := fsys.allocForWrite(rip, inum, 5, false)
	require.NoError(t, err)
	assert.True(t, created)

	b2, created, err := fsys.allocForWrite(rip, inum, 5, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b1, b2)
}

// Releasing every block of a deep file returns the allocator to its
// starting state, indirect nodes included.
func TestFreeAllBlocksDeep(t *testing.T) {
	fsys := newTestFS(t, 4096)

	before := fsys.Statfs().Bfree

	require.NoError(t, fsys.Mknod(rootCaller, "/deep", common.I_REGULAR|0644))
	for _, lbn := range []uint32{0, 11, 12, 12 + uint32(common.NR_INDIRECTS), 12 + uint32(common.NR_INDIRECTS) + 5} {
		_, err := fsys.Write(rootCaller, "/deep", []byte{1}, int64(lbn)*common.BLOCK_SIZE)
		require.NoError(t, err)
	}

	require.NoError(t, fsys.Unlink(rootCaller, "/deep"))
	assert.Equal(t, before, fsys.Statfs().Bfree)
}
