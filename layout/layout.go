// Package layout computes the block-group geometry of a filesystem and
// holds the mutable superblock and group descriptor table for a mounted
// instance. All metadata mutation funnels through a Layout; Flush pushes
// the current state to the primary copies and to every backup group.
package layout

import (
	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
)

type Layout struct {
	Super SuperBlock
	Gdt   []common.GroupDesc
}

// SuperBlock aliases the on-disk type so callers mutate counts in place.
type SuperBlock = common.SuperBlock

// NumGroups gives the group count for a device of the given size.
func NumGroups(blocksCount, blocksPerGroup uint32) uint32 {
	n := (blocksCount + blocksPerGroup - 1) / blocksPerGroup
	if n == 0 {
		n = 1
	}
	return n
}

// GdtBlocks gives the size of the descriptor table in blocks.
func GdtBlocks(numGroups uint32) uint32 {
	return (numGroups*common.GROUP_DESC_SIZE + common.BLOCK_SIZE - 1) / common.BLOCK_SIZE
}

// IsBackupGroup reports whether a group carries a superblock and GDT
// copy: groups 0 and 1, and every index that factors entirely over
// {3, 5, 7}.
func IsBackupGroup(group uint32) bool {
	if group == 0 || group == 1 {
		return true
	}
	n := group
	for n%3 == 0 {
		n /= 3
	}
	for n%5 == 0 {
		n /= 5
	}
	for n%7 == 0 {
		n /= 7
	}
	return n == 1
}

// InodeTableBlocks gives the per-group inode table size in blocks.
func InodeTableBlocks(inodesPerGroup uint32) uint32 {
	return (inodesPerGroup*common.INODE_SIZE + common.BLOCK_SIZE - 1) / common.BLOCK_SIZE
}

func (l *Layout) NumGroups() uint32 {
	return uint32(len(l.Gdt))
}

func (l *Layout) GdtBlocks() uint32 {
	return GdtBlocks(l.NumGroups())
}

// Read loads the superblock and descriptor table from a device and
// validates the magic.
func Read(dev device.BlockDevice) (*Layout, error) {
	buf := make([]byte, common.BLOCK_SIZE)
	if err := dev.ReadBlock(common.SUPER_BLOCK, buf); err != nil {
		return nil, common.EIO
	}

	l := new(Layout)
	l.Super.Decode(buf)
	if l.Super.Magic != common.SUPER_MAGIC {
		return nil, common.EINVAL
	}
	if l.Super.BlocksPerGroup == 0 || l.Super.InodesPerGroup == 0 {
		return nil, common.EINVAL
	}

	numGroups := NumGroups(l.Super.BlocksCount, l.Super.BlocksPerGroup)
	gdtBlocks := GdtBlocks(numGroups)

	raw := make([]byte, gdtBlocks*common.BLOCK_SIZE)
	for i := uint32(0); i < gdtBlocks; i++ {
		if err := dev.ReadBlock(common.GDT_BLOCK+i, raw[i*common.BLOCK_SIZE:(i+1)*common.BLOCK_SIZE]); err != nil {
			return nil, common.EIO
		}
	}

	l.Gdt = make([]common.GroupDesc, numGroups)
	for g := range l.Gdt {
		l.Gdt[g].Decode(raw[g*common.GROUP_DESC_SIZE:])
	}
	return l, nil
}

// encodeSuper renders the superblock into a full block buffer.
func (l *Layout) encodeSuper() []byte {
	buf := make([]byte, common.BLOCK_SIZE)
	l.Super.Encode(buf)
	return buf
}

// encodeGdt renders the descriptor table into block-sized chunks.
func (l *Layout) encodeGdt() [][]byte {
	gdtBlocks := l.GdtBlocks()
	raw := make([]byte, gdtBlocks*common.BLOCK_SIZE)
	for g := range l.Gdt {
		l.Gdt[g].Encode(raw[g*common.GROUP_DESC_SIZE:])
	}
	chunks := make([][]byte, gdtBlocks)
	for i := range chunks {
		chunks[i] = raw[uint32(i)*common.BLOCK_SIZE : uint32(i+1)*common.BLOCK_SIZE]
	}
	return chunks
}

// Flush writes the superblock and GDT to their primary locations and then
// to every backup group. Backups are plain redundancy; there is no commit
// ordering between copies.
func (l *Layout) Flush(dev device.BlockDevice) error {
	sbbuf := l.encodeSuper()
	gdt := l.encodeGdt()

	if err := dev.WriteBlock(common.SUPER_BLOCK, sbbuf); err != nil {
		return common.EIO
	}
	for i, chunk := range gdt {
		if err := dev.WriteBlock(common.GDT_BLOCK+uint32(i), chunk); err != nil {
			return common.EIO
		}
	}

	for grp := uint32(1); grp < l.NumGroups(); grp++ {
		if !IsBackupGroup(grp) {
			continue
		}
		start := grp * l.Super.BlocksPerGroup
		if err := dev.WriteBlock(start, sbbuf); err != nil {
			return common.EIO
		}
		for i, chunk := range gdt {
			if err := dev.WriteBlock(start+1+uint32(i), chunk); err != nil {
				return common.EIO
			}
		}
	}
	return nil
}

// GroupOfInode gives the group an inode number belongs to.
func (l *Layout) GroupOfInode(inum uint32) uint32 {
	return (inum - 1) / l.Super.InodesPerGroup
}

// GroupOfBlock gives the group a block number belongs to.
func (l *Layout) GroupOfBlock(blocknum uint32) uint32 {
	return blocknum / l.Super.BlocksPerGroup
}
