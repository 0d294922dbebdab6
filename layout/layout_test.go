package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
)

func TestIsBackupGroup(t *testing.T) {
	backups := []uint32{0, 1, 3, 5, 7, 9, 15, 21, 25, 27, 35, 49}
	for _, g := range backups {
		assert.True(t, IsBackupGroup(g), "group %d", g)
	}
	plain := []uint32{2, 4, 6, 8, 10, 11, 12, 13, 14, 16, 22, 26}
	for _, g := range plain {
		assert.False(t, IsBackupGroup(g), "group %d", g)
	}
}

func TestGeometry(t *testing.T) {
	assert.Equal(t, uint32(1), NumGroups(100, 32768))
	assert.Equal(t, uint32(1), NumGroups(32768, 32768))
	assert.Equal(t, uint32(2), NumGroups(32769, 32768))

	assert.Equal(t, uint32(1), GdtBlocks(1))
	assert.Equal(t, uint32(1), GdtBlocks(128))
	assert.Equal(t, uint32(2), GdtBlocks(129))

	assert.Equal(t, uint32(32), InodeTableBlocks(1024))
}

// Flush writes the primary copies and every backup group; Read restores
// the same state from the primaries.
func TestFlushAndRead(t *testing.T) {
	dev := device.NewRamDevice(3 * 512)

	l := new(Layout)
	l.Super.Magic = common.SUPER_MAGIC
	l.Super.BlocksCount = 3 * 512
	l.Super.BlocksPerGroup = 512
	l.Super.InodesPerGroup = 64
	l.Super.FreeBlocksCount = 1234
	l.Gdt = make([]common.GroupDesc, 3)
	l.Gdt[2].FreeBlocksCount = 77

	require.NoError(t, l.Flush(dev))

	back, err := Read(dev)
	require.NoError(t, err)
	assert.Equal(t, l.Super, back.Super)
	assert.Equal(t, l.Gdt, back.Gdt)

	// Group 1 is a backup group: its first block holds the superblock
	// copy, the next the GDT copy.
	buf := make([]byte, common.BLOCK_SIZE)
	require.NoError(t, dev.ReadBlock(512, buf))
	var sb common.SuperBlock
	sb.Decode(buf)
	assert.Equal(t, l.Super, sb)

	require.NoError(t, dev.ReadBlock(513, buf))
	var gd common.GroupDesc
	gd.Decode(buf[2*common.GROUP_DESC_SIZE:])
	assert.Equal(t, uint16(77), gd.FreeBlocksCount)

	// Group 2 is not a backup group; block 1024 stays empty.
	require.NoError(t, dev.ReadBlock(1024, buf))
	var plain common.SuperBlock
	plain.Decode(buf)
	assert.NotEqual(t, uint16(common.SUPER_MAGIC), plain.Magic)
}

func TestReadRejectsBadMagic(t *testing.T) {
	dev := device.NewRamDevice(128)
	_, err := Read(dev)
	assert.Equal(t, common.EINVAL, err)
}
