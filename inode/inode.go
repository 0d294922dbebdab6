// Package inode reads and writes single inode records through the group
// descriptor table.
package inode

import (
	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

// locate maps an inode number to the inode-table block that holds it and
// the record's byte offset within that block.
func locate(l *layout.Layout, inum uint32) (blocknum uint32, offset uint32, err error) {
	if inum == 0 || inum > l.Super.InodesCount {
		return 0, 0, common.EINVAL
	}

	group := l.GroupOfInode(inum)
	if group >= l.NumGroups() {
		return 0, 0, common.EIO
	}
	gd := &l.Gdt[group]

	index := (inum - 1) % l.Super.InodesPerGroup
	perBlock := uint32(common.BLOCK_SIZE / common.INODE_SIZE)

	blocknum = gd.InodeTable + index/perBlock
	offset = (index % perBlock) * common.INODE_SIZE

	if blocknum == 0 || blocknum >= l.Super.BlocksCount {
		return 0, 0, common.EIO
	}
	return blocknum, offset, nil
}

// ReadInode fetches the record for inode inum.
func ReadInode(dev device.BlockDevice, l *layout.Layout, inum uint32) (*common.Inode, error) {
	blocknum, offset, err := locate(l, inum)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, common.BLOCK_SIZE)
	if err := dev.ReadBlock(blocknum, buf); err != nil {
		return nil, common.EIO
	}

	rip := new(common.Inode)
	rip.Decode(buf[offset:])
	return rip, nil
}

// WriteInode splices the record for inode inum back into its table block.
func WriteInode(dev device.BlockDevice, l *layout.Layout, inum uint32, rip *common.Inode) error {
	blocknum, offset, err := locate(l, inum)
	if err != nil {
		return err
	}

	buf := make([]byte, common.BLOCK_SIZE)
	if err := dev.ReadBlock(blocknum, buf); err != nil {
		return common.EIO
	}

	rip.Encode(buf[offset:])
	if err := dev.WriteBlock(blocknum, buf); err != nil {
		return common.EIO
	}
	return nil
}
