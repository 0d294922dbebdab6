// Package mkfs writes an initial consistent filesystem image onto a
// blank device: superblock, group descriptor table, per-group bitmaps
// and inode tables, backup copies, and a root directory holding . and ..
package mkfs

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

func nowUnix() uint32 {
	return uint32(time.Now().Unix())
}

// Options are the format-time tunables.
type Options struct {
	BlocksPerGroup uint32
	InodesPerGroup uint32
}

// DefaultOptions matches one bitmap block per group.
func DefaultOptions() Options {
	return Options{
		BlocksPerGroup: common.BLOCK_SIZE * 8,
		InodesPerGroup: 1024,
	}
}

// Format opens (or creates) the named device and formats it. A missing
// or empty regular file is sized to numBlocks; a block device is probed
// and numBlocks is ignored. Files created here are unlinked again if the
// format aborts.
func Format(path string, numBlocks uint32, opts Options) error {
	created := false

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if os.IsNotExist(err) {
		if numBlocks == 0 {
			return err
		}
		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
		if err != nil {
			return err
		}
		created = true
		if err := file.Truncate(int64(numBlocks) * common.BLOCK_SIZE); err != nil {
			file.Close()
			os.Remove(path)
			return err
		}
	} else if err != nil {
		return err
	}

	// An existing but empty regular file may still be sized on request.
	if !created && !device.IsBlockDevice(path) && numBlocks > 0 {
		st, err := file.Stat()
		if err != nil {
			file.Close()
			return err
		}
		if st.Size() == 0 {
			if err := file.Truncate(int64(numBlocks) * common.BLOCK_SIZE); err != nil {
				file.Close()
				return err
			}
		}
	}
	file.Close()

	dev, err := device.NewFileDevice(path)
	if err != nil {
		if created {
			os.Remove(path)
		}
		return err
	}

	if err := FormatDevice(dev, opts); err != nil {
		dev.Close()
		if created {
			os.Remove(path)
		}
		return err
	}
	return dev.Close()
}

// FormatDevice lays the filesystem down on an open device.
func FormatDevice(dev device.BlockDevice, opts Options) error {
	total := dev.Blocks()
	if total < common.MIN_BLOCKS {
		return common.EINVAL
	}

	if opts.BlocksPerGroup == 0 || opts.InodesPerGroup == 0 {
		opts = DefaultOptions()
	}
	if opts.InodesPerGroup > common.BLOCK_SIZE*8 {
		log.Printf("inodes per group exceeds the inode bitmap capacity, clamping to %d", common.BLOCK_SIZE*8)
		opts.InodesPerGroup = common.BLOCK_SIZE * 8
	}
	if opts.BlocksPerGroup > common.BLOCK_SIZE*8 {
		opts.BlocksPerGroup = common.BLOCK_SIZE * 8
	}

	numGroups := layout.NumGroups(total, opts.BlocksPerGroup)
	gdtBlocks := layout.GdtBlocks(numGroups)
	itBlocks := layout.InodeTableBlocks(opts.InodesPerGroup)

	l := new(layout.Layout)
	sb := &l.Super
	sb.Magic = common.SUPER_MAGIC
	sb.BlocksCount = total
	sb.InodesCount = numGroups * opts.InodesPerGroup
	sb.LogBlockSize = 2 // 1024 << 2 = 4096
	sb.BlocksPerGroup = opts.BlocksPerGroup
	sb.InodesPerGroup = opts.InodesPerGroup
	sb.InodeSize = common.INODE_SIZE
	sb.RootInode = common.ROOT_INODE
	sb.FirstIno = common.FIRST_INO
	sb.State = 1
	sb.Errors = 1
	sb.MaxMntCount = 20
	sb.Wtime = nowUnix()

	// Account the global metadata up front: block 0, the primary
	// superblock, and the primary GDT.
	freeBlocks := total
	freeBlocks-- // block 0
	freeBlocks-- // superblock
	freeBlocks -= gdtBlocks

	l.Gdt = make([]common.GroupDesc, numGroups)
	for g := uint32(0); g < numGroups; g++ {
		gd := &l.Gdt[g]
		start := g * opts.BlocksPerGroup
		backup := layout.IsBackupGroup(g)

		switch {
		case g == 0:
			gd.BlockBitmap = common.GDT_BLOCK + gdtBlocks
		case backup:
			gd.BlockBitmap = start + 1 + gdtBlocks
		default:
			gd.BlockBitmap = start
		}
		gd.InodeBitmap = gd.BlockBitmap + 1
		gd.InodeTable = gd.InodeBitmap + 1

		if g == 0 {
			sb.FirstDataBlock = gd.InodeTable + itBlocks
		}

		if gd.InodeTable+itBlocks > total {
			return common.ENOSPC
		}

		freeBlocks -= 2 + itBlocks // both bitmaps plus the inode table
		if backup && g != 0 {
			freeBlocks -= 1 + gdtBlocks
		}

		inGroup := opts.BlocksPerGroup
		if g == numGroups-1 {
			inGroup = total - start
		}
		groupFree := inGroup - 2 - itBlocks
		if g == 0 {
			groupFree -= 1 + 1 + gdtBlocks // block 0, superblock, GDT
		} else if backup {
			groupFree -= 1 + gdtBlocks
		}
		gd.FreeBlocksCount = uint16(groupFree)
		gd.FreeInodesCount = uint16(opts.InodesPerGroup)
	}

	freeBlocks-- // the root directory data block, allocated below
	sb.FreeBlocksCount = freeBlocks
	sb.FreeInodesCount = sb.InodesCount - 2 // inodes 1 and 2

	// Lay down each group: bitmaps with the group's own metadata marked,
	// and a zeroed inode table.
	var rootBlock uint32
	bb := make([]byte, common.BLOCK_SIZE)
	ib := make([]byte, common.BLOCK_SIZE)
	for g := uint32(0); g < numGroups; g++ {
		gd := &l.Gdt[g]
		start := g * opts.BlocksPerGroup
		backup := layout.IsBackupGroup(g)

		for i := range bb {
			bb[i] = 0
			ib[i] = 0
		}
		bbm := common.Bitmap(bb)
		ibm := common.Bitmap(ib)

		bbm.Set(gd.BlockBitmap - start)
		bbm.Set(gd.InodeBitmap - start)
		for j := uint32(0); j < itBlocks; j++ {
			bbm.Set(gd.InodeTable + j - start)
		}

		if backup {
			sbBlock := start // the group's own superblock copy
			if g == 0 {
				sbBlock = common.SUPER_BLOCK
			}
			bbm.Set(sbBlock - start)
			for j := uint32(0); j < gdtBlocks; j++ {
				if g == 0 {
					bbm.Set(common.GDT_BLOCK + j - start)
				} else {
					bbm.Set(start + 1 + j - start)
				}
			}
		}

		if g == 0 {
			bbm.Set(0) // the unused boot slot

			// The root directory claims the first free data block.
			for bit := sb.FirstDataBlock - start; bit < opts.BlocksPerGroup; bit++ {
				if !bbm.IsSet(bit) {
					rootBlock = start + bit
					bbm.Set(bit)
					gd.FreeBlocksCount--
					break
				}
			}
			if rootBlock == 0 {
				return common.ENOSPC
			}

			// Inodes 1 and 2 are reserved; 2 is the root directory.
			ibm.Set(0)
			ibm.Set(1)
			gd.FreeInodesCount -= 2
			gd.UsedDirsCount++
		}

		if err := dev.WriteBlock(gd.BlockBitmap, bb); err != nil {
			return common.EIO
		}
		if err := dev.WriteBlock(gd.InodeBitmap, ib); err != nil {
			return common.EIO
		}
		if err := device.WriteZeroBlocks(dev, gd.InodeTable, itBlocks); err != nil {
			return common.EIO
		}
	}

	// Root directory payload: . and .. both name inode 2, with ..
	// stretched to the block boundary.
	buf := make([]byte, common.BLOCK_SIZE)
	dot := common.DirEntry{
		Inode:    common.ROOT_INODE,
		RecLen:   uint16(common.DirEntryLen(1)),
		NameLen:  1,
		FileType: common.DT_DIR,
		Name:     ".",
	}
	common.EncodeDirEntry(buf, 0, &dot)
	dotdot := common.DirEntry{
		Inode:    common.ROOT_INODE,
		RecLen:   uint16(common.BLOCK_SIZE - int(dot.RecLen)),
		NameLen:  2,
		FileType: common.DT_DIR,
		Name:     "..",
	}
	common.EncodeDirEntry(buf, int(dot.RecLen), &dotdot)
	if err := dev.WriteBlock(rootBlock, buf); err != nil {
		return common.EIO
	}

	root := &common.Inode{
		Mode:   common.I_DIRECTORY | common.RWX_MODES,
		Nlinks: 2,
		Size:   common.BLOCK_SIZE,
		Blocks: common.SECTORS_PER_BLOCK,
	}
	root.Block[0] = rootBlock
	root.Atime = nowUnix()
	root.Mtime = root.Atime
	root.Ctime = root.Atime

	// Splice the root inode into the first inode table block of group 0.
	itbuf := make([]byte, common.BLOCK_SIZE)
	if err := dev.ReadBlock(l.Gdt[0].InodeTable, itbuf); err != nil {
		return common.EIO
	}
	root.Encode(itbuf[(common.ROOT_INODE-1)*common.INODE_SIZE:])
	if err := dev.WriteBlock(l.Gdt[0].InodeTable, itbuf); err != nil {
		return common.EIO
	}

	// The superblock and GDT go out last, backups included.
	if err := l.Flush(dev); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"blocks":      sb.BlocksCount,
		"groups":      numGroups,
		"inodes":      sb.InodesCount,
		"free_blocks": sb.FreeBlocksCount,
	}).Info("filesystem formatted")
	return nil
}
