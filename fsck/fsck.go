// Package fsck is a read-only consumer of the on-disk format: it
// recomputes the free counts from the bitmaps and reports every
// disagreement with the group descriptors and the superblock.
package fsck

import (
	"fmt"
	"io"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/fs"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

// Check audits the device, writing one line per mismatch to out. It
// returns the number of mismatches found; I/O and format errors are
// returned as errors.
func Check(dev device.BlockDevice, out io.Writer, verbose bool) (int, error) {
	l, err := layout.Read(dev)
	if err != nil {
		return 0, err
	}
	sb := &l.Super

	if verbose {
		fmt.Fprint(out, fs.DumpSuper(sb))
	}

	mismatches := 0
	var calcFreeBlocks, calcFreeInodes uint64

	bb := make([]byte, common.BLOCK_SIZE)
	ib := make([]byte, common.BLOCK_SIZE)
	for g := uint32(0); g < l.NumGroups(); g++ {
		gd := &l.Gdt[g]
		if err := dev.ReadBlock(gd.BlockBitmap, bb); err != nil {
			return mismatches, common.EIO
		}
		if err := dev.ReadBlock(gd.InodeBitmap, ib); err != nil {
			return mismatches, common.EIO
		}

		var freeb, freei uint32
		bbm := common.Bitmap(bb)
		for b := uint32(0); b < sb.BlocksPerGroup && g*sb.BlocksPerGroup+b < sb.BlocksCount; b++ {
			if !bbm.IsSet(b) {
				freeb++
			}
		}
		ibm := common.Bitmap(ib)
		for i := uint32(0); i < sb.InodesPerGroup; i++ {
			if !ibm.IsSet(i) {
				freei++
			}
		}

		if freeb != uint32(gd.FreeBlocksCount) {
			fmt.Fprintf(out, "group %d block count mismatch: bitmap=%d descriptor=%d\n", g, freeb, gd.FreeBlocksCount)
			mismatches++
		}
		if freei != uint32(gd.FreeInodesCount) {
			fmt.Fprintf(out, "group %d inode count mismatch: bitmap=%d descriptor=%d\n", g, freei, gd.FreeInodesCount)
			mismatches++
		}

		calcFreeBlocks += uint64(freeb)
		calcFreeInodes += uint64(freei)
	}

	if calcFreeBlocks != uint64(sb.FreeBlocksCount) {
		fmt.Fprintf(out, "superblock free block count mismatch: %d vs %d\n", calcFreeBlocks, sb.FreeBlocksCount)
		mismatches++
	}
	if calcFreeInodes != uint64(sb.FreeInodesCount) {
		fmt.Fprintf(out, "superblock free inode count mismatch: %d vs %d\n", calcFreeInodes, sb.FreeInodesCount)
		mismatches++
	}

	return mismatches, nil
}
