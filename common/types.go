package common

import "encoding/binary"

// On-disk structures. All integers are little-endian and the records are
// packed, so each type carries an explicit encoder/decoder rather than
// relying on struct memory layout. Field offsets are noted in bytes.

// SuperBlock is the 1024-byte record stored at the start of block 1 and
// repeated at the first block of every backup group.
type SuperBlock struct {
	Magic           uint16 // 0x00: 0x5350
	InodesCount     uint32 // 0x02
	BlocksCount     uint32 // 0x06
	FreeBlocksCount uint32 // 0x0A
	FreeInodesCount uint32 // 0x0E
	FirstDataBlock  uint32 // 0x12
	LogBlockSize    uint32 // 0x16: block_size = 1024 << log_block_size
	BlocksPerGroup  uint32 // 0x1A
	InodesPerGroup  uint32 // 0x1E
	Mtime           uint32 // 0x22: last mount time
	Wtime           uint32 // 0x26: last write time
	MntCount        uint16 // 0x2A
	MaxMntCount     uint16 // 0x2C
	State           uint16 // 0x2E: 1 = clean
	Errors          uint16 // 0x30: 1 = continue
	FirstIno        uint32 // 0x32: first non-reserved inode
	InodeSize       uint16 // 0x36: 128
	BlockGroupNr    uint16 // 0x38: same value in every copy
	RootInode       uint32 // 0x3A
	// 962 bytes of padding to 1024
}

func (sb *SuperBlock) Encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0x00:], sb.Magic)
	binary.LittleEndian.PutUint32(buf[0x02:], sb.InodesCount)
	binary.LittleEndian.PutUint32(buf[0x06:], sb.BlocksCount)
	binary.LittleEndian.PutUint32(buf[0x0A:], sb.FreeBlocksCount)
	binary.LittleEndian.PutUint32(buf[0x0E:], sb.FreeInodesCount)
	binary.LittleEndian.PutUint32(buf[0x12:], sb.FirstDataBlock)
	binary.LittleEndian.PutUint32(buf[0x16:], sb.LogBlockSize)
	binary.LittleEndian.PutUint32(buf[0x1A:], sb.BlocksPerGroup)
	binary.LittleEndian.PutUint32(buf[0x1E:], sb.InodesPerGroup)
	binary.LittleEndian.PutUint32(buf[0x22:], sb.Mtime)
	binary.LittleEndian.PutUint32(buf[0x26:], sb.Wtime)
	binary.LittleEndian.PutUint16(buf[0x2A:], sb.MntCount)
	binary.LittleEndian.PutUint16(buf[0x2C:], sb.MaxMntCount)
	binary.LittleEndian.PutUint16(buf[0x2E:], sb.State)
	binary.LittleEndian.PutUint16(buf[0x30:], sb.Errors)
	binary.LittleEndian.PutUint32(buf[0x32:], sb.FirstIno)
	binary.LittleEndian.PutUint16(buf[0x36:], sb.InodeSize)
	binary.LittleEndian.PutUint16(buf[0x38:], sb.BlockGroupNr)
	binary.LittleEndian.PutUint32(buf[0x3A:], sb.RootInode)
}

func (sb *SuperBlock) Decode(buf []byte) {
	sb.Magic = binary.LittleEndian.Uint16(buf[0x00:])
	sb.InodesCount = binary.LittleEndian.Uint32(buf[0x02:])
	sb.BlocksCount = binary.LittleEndian.Uint32(buf[0x06:])
	sb.FreeBlocksCount = binary.LittleEndian.Uint32(buf[0x0A:])
	sb.FreeInodesCount = binary.LittleEndian.Uint32(buf[0x0E:])
	sb.FirstDataBlock = binary.LittleEndian.Uint32(buf[0x12:])
	sb.LogBlockSize = binary.LittleEndian.Uint32(buf[0x16:])
	sb.BlocksPerGroup = binary.LittleEndian.Uint32(buf[0x1A:])
	sb.InodesPerGroup = binary.LittleEndian.Uint32(buf[0x1E:])
	sb.Mtime = binary.LittleEndian.Uint32(buf[0x22:])
	sb.Wtime = binary.LittleEndian.Uint32(buf[0x26:])
	sb.MntCount = binary.LittleEndian.Uint16(buf[0x2A:])
	sb.MaxMntCount = binary.LittleEndian.Uint16(buf[0x2C:])
	sb.State = binary.LittleEndian.Uint16(buf[0x2E:])
	sb.Errors = binary.LittleEndian.Uint16(buf[0x30:])
	sb.FirstIno = binary.LittleEndian.Uint32(buf[0x32:])
	sb.InodeSize = binary.LittleEndian.Uint16(buf[0x36:])
	sb.BlockGroupNr = binary.LittleEndian.Uint16(buf[0x38:])
	sb.RootInode = binary.LittleEndian.Uint32(buf[0x3A:])
}

// GroupDesc is one 32-byte entry of the group descriptor table.
type GroupDesc struct {
	BlockBitmap     uint32 // 0x00: absolute block number of the block bitmap
	InodeBitmap     uint32 // 0x04
	InodeTable      uint32 // 0x08: first block of the inode table
	FreeBlocksCount uint16 // 0x0C
	FreeInodesCount uint16 // 0x0E
	UsedDirsCount   uint16 // 0x10
	// 14 bytes of padding to 32
}

func (gd *GroupDesc) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0x00:], gd.BlockBitmap)
	binary.LittleEndian.PutUint32(buf[0x04:], gd.InodeBitmap)
	binary.LittleEndian.PutUint32(buf[0x08:], gd.InodeTable)
	binary.LittleEndian.PutUint16(buf[0x0C:], gd.FreeBlocksCount)
	binary.LittleEndian.PutUint16(buf[0x0E:], gd.FreeInodesCount)
	binary.LittleEndian.PutUint16(buf[0x10:], gd.UsedDirsCount)
}

func (gd *GroupDesc) Decode(buf []byte) {
	gd.BlockBitmap = binary.LittleEndian.Uint32(buf[0x00:])
	gd.InodeBitmap = binary.LittleEndian.Uint32(buf[0x04:])
	gd.InodeTable = binary.LittleEndian.Uint32(buf[0x08:])
	gd.FreeBlocksCount = binary.LittleEndian.Uint16(buf[0x0C:])
	gd.FreeInodesCount = binary.LittleEndian.Uint16(buf[0x0E:])
	gd.UsedDirsCount = binary.LittleEndian.Uint16(buf[0x10:])
}

// Inode is the 128-byte on-disk inode record. Numbers are 1-based; inodes
// 1 and 2 are reserved, with 2 the root directory. A fast symlink stores
// its target bytes directly in the Block array and has Blocks == 0.
type Inode struct {
	Mode   uint16             // 0x00: type nibble + permission bits
	Uid    uint16             // 0x02
	Size   uint32             // 0x04
	Atime  uint32             // 0x08
	Ctime  uint32             // 0x0C
	Mtime  uint32             // 0x10
	Dtime  uint32             // 0x14
	Gid    uint16             // 0x18
	Nlinks uint16             // 0x1A
	Blocks uint32             // 0x1C: 512-byte sectors charged, indirect nodes included
	Flags  uint32             // 0x20
	Block  [NR_BLKPTRS]uint32 // 0x24: 12 direct + single + double + triple
	// 32 bytes of padding to 128
}

func (ip *Inode) Encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0x00:], ip.Mode)
	binary.LittleEndian.PutUint16(buf[0x02:], ip.Uid)
	binary.LittleEndian.PutUint32(buf[0x04:], ip.Size)
	binary.LittleEndian.PutUint32(buf[0x08:], ip.Atime)
	binary.LittleEndian.PutUint32(buf[0x0C:], ip.Ctime)
	binary.LittleEndian.PutUint32(buf[0x10:], ip.Mtime)
	binary.LittleEndian.PutUint32(buf[0x14:], ip.Dtime)
	binary.LittleEndian.PutUint16(buf[0x18:], ip.Gid)
	binary.LittleEndian.PutUint16(buf[0x1A:], ip.Nlinks)
	binary.LittleEndian.PutUint32(buf[0x1C:], ip.Blocks)
	binary.LittleEndian.PutUint32(buf[0x20:], ip.Flags)
	for i := 0; i < NR_BLKPTRS; i++ {
		binary.LittleEndian.PutUint32(buf[0x24+4*i:], ip.Block[i])
	}
}

func (ip *Inode) Decode(buf []byte) {
	ip.Mode = binary.LittleEndian.Uint16(buf[0x00:])
	ip.Uid = binary.LittleEndian.Uint16(buf[0x02:])
	ip.Size = binary.LittleEndian.Uint32(buf[0x04:])
	ip.Atime = binary.LittleEndian.Uint32(buf[0x08:])
	ip.Ctime = binary.LittleEndian.Uint32(buf[0x0C:])
	ip.Mtime = binary.LittleEndian.Uint32(buf[0x10:])
	ip.Dtime = binary.LittleEndian.Uint32(buf[0x14:])
	ip.Gid = binary.LittleEndian.Uint16(buf[0x18:])
	ip.Nlinks = binary.LittleEndian.Uint16(buf[0x1A:])
	ip.Blocks = binary.LittleEndian.Uint32(buf[0x1C:])
	ip.Flags = binary.LittleEndian.Uint32(buf[0x20:])
	for i := 0; i < NR_BLKPTRS; i++ {
		ip.Block[i] = binary.LittleEndian.Uint32(buf[0x24+4*i:])
	}
}

func (ip *Inode) Type() uint16      { return ip.Mode & I_TYPE }
func (ip *Inode) IsDirectory() bool { return ip.Type() == I_DIRECTORY }
func (ip *Inode) IsRegular() bool   { return ip.Type() == I_REGULAR }
func (ip *Inode) IsSymlink() bool   { return ip.Type() == I_SYMLINK }

// IsFastSymlink reports whether the symlink target lives inline in the
// block pointer array rather than in a data block.
func (ip *Inode) IsFastSymlink() bool { return ip.IsSymlink() && ip.Blocks == 0 }

// InlineTarget returns the inline symlink target bytes of a fast symlink.
func (ip *Inode) InlineTarget() []byte {
	buf := make([]byte, FAST_SYMLINK_MAX)
	for i := 0; i < NR_BLKPTRS; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], ip.Block[i])
	}
	return buf[:ip.Size]
}

// SetInlineTarget stores target bytes into the block pointer array.
// The caller guarantees len(target) < FAST_SYMLINK_MAX.
func (ip *Inode) SetInlineTarget(target []byte) {
	buf := make([]byte, FAST_SYMLINK_MAX)
	copy(buf, target)
	for i := 0; i < NR_BLKPTRS; i++ {
		ip.Block[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
}

// DirEntry is the header of one variable-length directory record plus its
// name. On disk the record occupies RecLen bytes; the name is not
// NUL-terminated.
type DirEntry struct {
	Inode    uint32 // 0x00: 0 marks a free slot
	RecLen   uint16 // 0x04: slot size, >= DirEntryLen(NameLen)
	NameLen  uint8  // 0x06
	FileType uint8  // 0x07: inode type nibble
	Name     string
}

// EncodeDirEntry writes the record header and name at buf[off:]. RecLen
// must already be set; bytes between the name and the end of the slot are
// left untouched.
func EncodeDirEntry(buf []byte, off int, de *DirEntry) {
	binary.LittleEndian.PutUint32(buf[off:], de.Inode)
	binary.LittleEndian.PutUint16(buf[off+4:], de.RecLen)
	buf[off+6] = de.NameLen
	buf[off+7] = de.FileType
	copy(buf[off+8:], de.Name)
}

// DecodeDirEntry reads the record starting at buf[off:].
func DecodeDirEntry(buf []byte, off int) DirEntry {
	de := DirEntry{
		Inode:    binary.LittleEndian.Uint32(buf[off:]),
		RecLen:   binary.LittleEndian.Uint16(buf[off+4:]),
		NameLen:  buf[off+6],
		FileType: buf[off+7],
	}
	if int(de.NameLen) <= len(buf)-off-8 {
		de.Name = string(buf[off+8 : off+8+int(de.NameLen)])
	}
	return de
}
