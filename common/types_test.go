package common

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The superblock layout is part of the on-disk contract: spot-check the
// field offsets against hand-computed positions.
func TestSuperBlockOffsets(t *testing.T) {
	sb := SuperBlock{
		Magic:           SUPER_MAGIC,
		InodesCount:     1024,
		BlocksCount:     32768,
		FreeBlocksCount: 30000,
		FirstIno:        FIRST_INO,
		InodeSize:       INODE_SIZE,
		RootInode:       ROOT_INODE,
	}

	buf := make([]byte, SUPER_BLOCK_SIZE)
	sb.Encode(buf)

	assert.Equal(t, uint16(0x5350), binary.LittleEndian.Uint16(buf[0:]))
	assert.Equal(t, uint32(1024), binary.LittleEndian.Uint32(buf[0x02:]))
	assert.Equal(t, uint32(32768), binary.LittleEndian.Uint32(buf[0x06:]))
	assert.Equal(t, uint32(11), binary.LittleEndian.Uint32(buf[0x32:]))
	assert.Equal(t, uint16(128), binary.LittleEndian.Uint16(buf[0x36:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[0x3A:]))

	var back SuperBlock
	back.Decode(buf)
	assert.Equal(t, sb, back)
}

func TestInodeEncodeDecode(t *testing.T) {
	ip := Inode{
		Mode:   I_REGULAR | 0644,
		Uid:    1000,
		Gid:    100,
		Size:   123456,
		Nlinks: 2,
		Blocks: 248,
	}
	ip.Block[0] = 99
	ip.Block[NR_DIRECT] = 4242

	buf := make([]byte, INODE_SIZE)
	ip.Encode(buf)

	assert.Equal(t, uint16(I_REGULAR|0644), binary.LittleEndian.Uint16(buf[0x00:]))
	assert.Equal(t, uint32(123456), binary.LittleEndian.Uint32(buf[0x04:]))
	assert.Equal(t, uint32(99), binary.LittleEndian.Uint32(buf[0x24:]))
	assert.Equal(t, uint32(4242), binary.LittleEndian.Uint32(buf[0x24+4*NR_DIRECT:]))

	var back Inode
	back.Decode(buf)
	assert.Equal(t, ip, back)
}

func TestFastSymlinkInline(t *testing.T) {
	var ip Inode
	ip.Mode = I_SYMLINK | 0777
	ip.Size = uint32(len("target/path"))
	ip.SetInlineTarget([]byte("target/path"))

	require.True(t, ip.IsFastSymlink())
	assert.Equal(t, "target/path", string(ip.InlineTarget()))

	// Inline storage must survive the on-disk round trip.
	buf := make([]byte, INODE_SIZE)
	ip.Encode(buf)
	var back Inode
	back.Decode(buf)
	assert.Equal(t, "target/path", string(back.InlineTarget()))
}

func TestDirEntryLen(t *testing.T) {
	assert.Equal(t, 8, DirEntryLen(0))
	assert.Equal(t, 12, DirEntryLen(1))
	assert.Equal(t, 12, DirEntryLen(4))
	assert.Equal(t, 16, DirEntryLen(5))
	assert.Equal(t, 264, DirEntryLen(MAX_NAME_LEN))
}

func TestDirEntryRoundTrip(t *testing.T) {
	buf := make([]byte, BLOCK_SIZE)
	de := DirEntry{
		Inode:    77,
		RecLen:   uint16(DirEntryLen(5)),
		NameLen:  5,
		FileType: DT_REG,
		Name:     "hello",
	}
	EncodeDirEntry(buf, 64, &de)

	got := DecodeDirEntry(buf, 64)
	assert.Equal(t, de, got)
}
