package mkfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

// recount recomputes the free counts straight from the bitmaps.
func recount(t *testing.T, dev device.BlockDevice, l *layout.Layout) (freeBlocks, freeInodes uint32) {
	t.Helper()

	bb := make([]byte, common.BLOCK_SIZE)
	ib := make([]byte, common.BLOCK_SIZE)
	for g := uint32(0); g < l.NumGroups(); g++ {
		gd := &l.Gdt[g]
		require.NoError(t, dev.ReadBlock(gd.BlockBitmap, bb))
		require.NoError(t, dev.ReadBlock(gd.InodeBitmap, ib))

		bbm := common.Bitmap(bb)
		for b := uint32(0); b < l.Super.BlocksPerGroup && g*l.Super.BlocksPerGroup+b < l.Super.BlocksCount; b++ {
			if !bbm.IsSet(b) {
				freeBlocks++
			}
		}
		ibm := common.Bitmap(ib)
		for i := uint32(0); i < l.Super.InodesPerGroup; i++ {
			if !ibm.IsSet(i) {
				freeInodes++
			}
		}
	}
	return freeBlocks, freeInodes
}

func TestFormatProducesConsistentImage(t *testing.T) {
	dev := device.NewRamDevice(4096)
	require.NoError(t, FormatDevice(dev, Options{BlocksPerGroup: 1024, InodesPerGroup: 128}))

	l, err := layout.Read(dev)
	require.NoError(t, err)
	sb := &l.Super

	assert.Equal(t, uint16(common.SUPER_MAGIC), sb.Magic)
	assert.Equal(t, uint32(4096), sb.BlocksCount)
	assert.Equal(t, uint32(4), l.NumGroups())
	assert.Equal(t, uint32(common.ROOT_INODE), sb.RootInode)
	assert.Equal(t, uint32(common.FIRST_INO), sb.FirstIno)

	freeBlocks, freeInodes := recount(t, dev, l)
	assert.Equal(t, sb.FreeBlocksCount, freeBlocks)
	assert.Equal(t, sb.FreeInodesCount, freeInodes)

	var groupBlocks, groupInodes uint32
	for g := range l.Gdt {
		groupBlocks += uint32(l.Gdt[g].FreeBlocksCount)
		groupInodes += uint32(l.Gdt[g].FreeInodesCount)
	}
	assert.Equal(t, sb.FreeBlocksCount, groupBlocks)
	assert.Equal(t, sb.FreeInodesCount, groupInodes)

	// Exactly one directory exists: the root.
	assert.Equal(t, uint16(1), l.Gdt[0].UsedDirsCount)
}

func TestFormatRootDirectory(t *testing.T) {
	dev := device.NewRamDevice(1024)
	require.NoError(t, FormatDevice(dev, Options{BlocksPerGroup: 1024, InodesPerGroup: 128}))

	l, err := layout.Read(dev)
	require.NoError(t, err)

	// The root inode record sits at index 1 of group 0's inode table.
	buf := make([]byte, common.BLOCK_SIZE)
	require.NoError(t, dev.ReadBlock(l.Gdt[0].InodeTable, buf))
	var root common.Inode
	root.Decode(buf[(common.ROOT_INODE-1)*common.INODE_SIZE:])

	assert.Equal(t, uint16(common.I_DIRECTORY|common.RWX_MODES), root.Mode)
	assert.Equal(t, uint16(2), root.Nlinks)
	assert.Equal(t, uint32(common.BLOCK_SIZE), root.Size)
	assert.Equal(t, uint32(common.SECTORS_PER_BLOCK), root.Blocks)
	require.NotZero(t, root.Block[0])

	// Its payload is . and .., both naming inode 2, with .. stretched to
	// the block end.
	require.NoError(t, dev.ReadBlock(root.Block[0], buf))
	dot := common.DecodeDirEntry(buf, 0)
	assert.Equal(t, ".", dot.Name)
	assert.Equal(t, uint32(common.ROOT_INODE), dot.Inode)

	dotdot := common.DecodeDirEntry(buf, int(dot.RecLen))
	assert.Equal(t, "..", dotdot.Name)
	assert.Equal(t, uint32(common.ROOT_INODE), dotdot.Inode)
	assert.Equal(t, common.BLOCK_SIZE, int(dot.RecLen)+int(dotdot.RecLen))
}

func TestFormatBackupCopies(t *testing.T) {
	dev := device.NewRamDevice(4096)
	require.NoError(t, FormatDevice(dev, Options{BlocksPerGroup: 1024, InodesPerGroup: 128}))

	l, err := layout.Read(dev)
	require.NoError(t, err)

	// Groups 1 and 3 carry superblock copies; group 2 does not.
	buf := make([]byte, common.BLOCK_SIZE)
	for _, g := range []uint32{1, 3} {
		require.NoError(t, dev.ReadBlock(g*1024, buf))
		var sb common.SuperBlock
		sb.Decode(buf)
		assert.Equal(t, l.Super, sb, "backup superblock of group %d", g)
	}

	require.NoError(t, dev.ReadBlock(2*1024, buf))
	var sb common.SuperBlock
	sb.Decode(buf)
	assert.NotEqual(t, uint16(common.SUPER_MAGIC), sb.Magic)
}

func TestFormatRejectsTinyDevice(t *testing.T) {
	dev := device.NewRamDevice(32)
	assert.Equal(t, common.EINVAL, FormatDevice(dev, Options{}))
}
