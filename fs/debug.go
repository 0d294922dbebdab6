package fs

import (
	"bytes"
	"fmt"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// DumpDirBlock renders the record chain of one directory block, free
// slots included. Used by the tests.
func DumpDirBlock(buf []byte) string {
	out := bytes.NewBuffer(nil)
	off := 0
	for off < common.BLOCK_SIZE {
		de := common.DecodeDirEntry(buf, off)
		if de.RecLen == 0 {
			break
		}
		if de.Inode == common.NO_INODE {
			fmt.Fprintf(out, "%4d: <free> rec_len %d\n", off, de.RecLen)
		} else {
			fmt.Fprintf(out, "%4d: %q at inode %d, rec_len %d\n", off, de.Name, de.Inode, de.RecLen)
		}
		off += int(de.RecLen)
	}
	return out.String()
}

// DumpSuper renders the interesting superblock fields.
func DumpSuper(sb *common.SuperBlock) string {
	out := bytes.NewBuffer(nil)
	fmt.Fprintf(out, "magic:         0x%x\n", sb.Magic)
	fmt.Fprintf(out, "blocks:        %d (%d free)\n", sb.BlocksCount, sb.FreeBlocksCount)
	fmt.Fprintf(out, "inodes:        %d (%d free)\n", sb.InodesCount, sb.FreeInodesCount)
	fmt.Fprintf(out, "block groups:  %d x %d blocks, %d inodes\n",
		(sb.BlocksCount+sb.BlocksPerGroup-1)/sb.BlocksPerGroup, sb.BlocksPerGroup, sb.InodesPerGroup)
	fmt.Fprintf(out, "first data:    %d\n", sb.FirstDataBlock)
	fmt.Fprintf(out, "root inode:    %d\n", sb.RootInode)
	return out.String()
}
