// Package alloctbl allocates and frees inodes and blocks using the
// per-group bitmaps. Placement is deliberately simple: the lowest free
// bit in the lowest-index eligible group, with a caller-supplied group
// hint as the only locality policy.
package alloctbl

import (
	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

// NO_GROUP disables the locality hint of AllocBlock.
const NO_GROUP = ^uint32(0)

type AllocTbl struct {
	dev device.BlockDevice
	l   *layout.Layout
}

func NewAllocTbl(dev device.BlockDevice, l *layout.Layout) *AllocTbl {
	return &AllocTbl{dev, l}
}

// AllocInode claims the first free inode, scanning groups in index order.
// mode is only consulted for the directory bit, which is accounted in the
// group's used_dirs counter.
func (alloc *AllocTbl) AllocInode(mode uint16) (uint32, error) {
	sb := &alloc.l.Super
	if sb.FreeInodesCount == 0 {
		log.Printf("Out of inodes on device")
		return 0, common.ENOSPC
	}

	bitmap := make([]byte, common.BLOCK_SIZE)
	for g := range alloc.l.Gdt {
		gd := &alloc.l.Gdt[g]
		if gd.FreeInodesCount == 0 {
			continue
		}
		if err := alloc.dev.ReadBlock(gd.InodeBitmap, bitmap); err != nil {
			continue
		}

		bm := common.Bitmap(bitmap)
		for bit := uint32(0); bit < sb.InodesPerGroup; bit++ {
			if bm.IsSet(bit) {
				continue
			}
			inum := uint32(g)*sb.InodesPerGroup + bit + 1
			if inum > sb.InodesCount {
				continue
			}

			bm.Set(bit)
			if err := alloc.dev.WriteBlock(gd.InodeBitmap, bitmap); err != nil {
				return 0, common.EIO
			}

			gd.FreeInodesCount--
			sb.FreeInodesCount--
			if mode&common.I_TYPE == common.I_DIRECTORY {
				gd.UsedDirsCount++
			}
			return inum, nil
		}
	}
	return 0, common.ENOSPC
}

// FreeInode returns an inode to its bitmap. Reserved numbers other than
// the root and anything out of range are ignored.
func (alloc *AllocTbl) FreeInode(inum uint32, mode uint16) {
	sb := &alloc.l.Super
	if inum == 0 || inum > sb.InodesCount {
		return
	}
	if inum < common.ROOT_INODE {
		return
	}

	group := alloc.l.GroupOfInode(inum)
	if group >= alloc.l.NumGroups() {
		return
	}
	gd := &alloc.l.Gdt[group]
	bit := (inum - 1) % sb.InodesPerGroup

	bitmap := make([]byte, common.BLOCK_SIZE)
	if err := alloc.dev.ReadBlock(gd.InodeBitmap, bitmap); err != nil {
		return
	}
	common.Bitmap(bitmap).Clear(bit)
	if err := alloc.dev.WriteBlock(gd.InodeBitmap, bitmap); err != nil {
		return
	}

	gd.FreeInodesCount++
	sb.FreeInodesCount++
	if mode&common.I_TYPE == common.I_DIRECTORY && gd.UsedDirsCount > 0 {
		gd.UsedDirsCount--
	}
}

// AllocBlock claims the first free block, trying the preferred group
// before scanning in index order. Block 0 is never handed out.
func (alloc *AllocTbl) AllocBlock(preferredGroup uint32) (uint32, error) {
	sb := &alloc.l.Super
	if sb.FreeBlocksCount == 0 {
		log.Printf("No space on device")
		return 0, common.ENOSPC
	}

	target := NO_GROUP
	if preferredGroup < alloc.l.NumGroups() && alloc.l.Gdt[preferredGroup].FreeBlocksCount > 0 {
		target = preferredGroup
	}
	if target == NO_GROUP {
		for g := range alloc.l.Gdt {
			if alloc.l.Gdt[g].FreeBlocksCount > 0 {
				target = uint32(g)
				break
			}
		}
	}
	if target == NO_GROUP {
		return 0, common.ENOSPC
	}

	gd := &alloc.l.Gdt[target]
	bitmap := make([]byte, common.BLOCK_SIZE)
	if err := alloc.dev.ReadBlock(gd.BlockBitmap, bitmap); err != nil {
		return 0, common.EIO
	}

	bm := common.Bitmap(bitmap)
	for bit := uint32(0); bit < sb.BlocksPerGroup; bit++ {
		if bm.IsSet(bit) {
			continue
		}
		blocknum := target*sb.BlocksPerGroup + bit
		if blocknum == 0 || blocknum >= sb.BlocksCount {
			continue
		}

		bm.Set(bit)
		if err := alloc.dev.WriteBlock(gd.BlockBitmap, bitmap); err != nil {
			return 0, common.EIO
		}

		gd.FreeBlocksCount--
		sb.FreeBlocksCount--
		return blocknum, nil
	}
	return 0, common.ENOSPC
}

// FreeBlock returns a block to its bitmap, silently ignoring 0 and
// out-of-range numbers.
func (alloc *AllocTbl) FreeBlock(blocknum uint32) {
	sb := &alloc.l.Super
	if blocknum == 0 || blocknum >= sb.BlocksCount {
		return
	}

	group := alloc.l.GroupOfBlock(blocknum)
	if group >= alloc.l.NumGroups() {
		return
	}
	gd := &alloc.l.Gdt[group]
	bit := blocknum % sb.BlocksPerGroup

	bitmap := make([]byte, common.BLOCK_SIZE)
	if err := alloc.dev.ReadBlock(gd.BlockBitmap, bitmap); err != nil {
		return
	}
	common.Bitmap(bitmap).Clear(bit)
	if err := alloc.dev.WriteBlock(gd.BlockBitmap, bitmap); err != nil {
		return
	}

	gd.FreeBlocksCount++
	sb.FreeBlocksCount++
}
