package fs

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// The inode block map. Logical block indices split into four regions:
// [0,12) direct, then one single-, one double-, and one triple-indirect
// subtree with 1024 pointers per indirect block.

// indexPath resolves a logical block number to the inode slot holding the
// top of its subtree and the chain of indices to follow below it. An
// empty chain means the slot is a direct pointer.
func indexPath(lbn uint32) (slot int, path []uint32, err error) {
	if lbn < common.NR_DIRECT {
		return int(lbn), nil, nil
	}
	lbn -= common.NR_DIRECT

	nind := uint32(common.NR_INDIRECTS)
	if lbn < nind {
		return common.NR_DIRECT, []uint32{lbn}, nil
	}
	lbn -= nind

	if lbn < nind*nind {
		return common.NR_DIRECT + 1, []uint32{lbn / nind, lbn % nind}, nil
	}
	lbn -= nind * nind

	if lbn < nind*nind*nind {
		return common.NR_DIRECT + 2, []uint32{lbn / (nind * nind), (lbn / nind) % nind, lbn % nind}, nil
	}
	return 0, nil, common.EFBIG
}

// rdIndir reads one pointer out of an indirect block with bounds checking
// against the device size. A pointer past the end of the device means the
// tree is corrupt.
func (fs *FileSystem) rdIndir(buf []byte, index uint32) (uint32, error) {
	b := binary.LittleEndian.Uint32(buf[4*index:])
	if b != common.NO_BLOCK && b >= fs.l.Super.BlocksCount {
		log.Printf("Illegal block number %d in indirect block, index %d", b, index)
		return 0, common.EIO
	}
	return b, nil
}

// readMap maps a logical block of the file to its physical block, without
// allocating. A zero return with nil error means a hole.
func (fs *FileSystem) readMap(rip *common.Inode, lbn uint32) (uint32, error) {
	slot, path, err := indexPath(lbn)
	if err != nil {
		return 0, err
	}

	b := rip.Block[slot]
	if len(path) == 0 {
		return b, nil
	}

	buf := make([]byte, common.BLOCK_SIZE)
	for _, index := range path {
		if b == common.NO_BLOCK {
			return common.NO_BLOCK, nil
		}
		if err := fs.dev.ReadBlock(b, buf); err != nil {
			return 0, common.EIO
		}
		if b, err = fs.rdIndir(buf, index); err != nil {
			return 0, err
		}
	}
	return b, nil
}

// allocForWrite materializes the physical block for a logical index,
// allocating any missing indirect nodes along the way. Newly allocated
// indirect nodes are zeroed on disk; a newly allocated leaf is zeroed
// only when zeroLeaf is set (directory blocks must be well-formed), and
// is otherwise returned uninitialized with created = true so the caller
// treats it as all-zero. Each allocated block charges 8 sectors to the
// inode. If a step fails after an allocation, that allocation is undone
// before the error is returned.
func (fs *FileSystem) allocForWrite(rip *common.Inode, inum uint32, lbn uint32, zeroLeaf bool) (blocknum uint32, created bool, err error) {
	slot, path, err := indexPath(lbn)
	if err != nil {
		return 0, false, err
	}
	preferred := fs.l.GroupOfInode(inum)

	// Direct region: the pointer lives in the inode itself.
	if len(path) == 0 {
		if rip.Block[slot] == common.NO_BLOCK {
			b, err := fs.alloc.AllocBlock(preferred)
			if err != nil {
				return 0, false, err
			}
			if zeroLeaf {
				if err := fs.zeroBlock(b); err != nil {
					fs.alloc.FreeBlock(b)
					return 0, false, common.EIO
				}
			}
			rip.Block[slot] = b
			rip.Blocks += common.SECTORS_PER_BLOCK
			created = true
		}
		return rip.Block[slot], created, nil
	}

	// The top of the subtree hangs off the inode slot.
	if rip.Block[slot] == common.NO_BLOCK {
		b, err := fs.alloc.AllocBlock(preferred)
		if err != nil {
			return 0, false, err
		}
		if err := fs.zeroBlock(b); err != nil {
			fs.alloc.FreeBlock(b)
			return 0, false, common.EIO
		}
		rip.Block[slot] = b
		rip.Blocks += common.SECTORS_PER_BLOCK
	}

	cur := rip.Block[slot]
	buf := make([]byte, common.BLOCK_SIZE)
	for lvl, index := range path {
		if err := fs.dev.ReadBlock(cur, buf); err != nil {
			return 0, false, common.EIO
		}
		ptr, err := fs.rdIndir(buf, index)
		if err != nil {
			return 0, false, err
		}

		if ptr == common.NO_BLOCK {
			leaf := lvl == len(path)-1
			nb, err := fs.alloc.AllocBlock(preferred)
			if err != nil {
				return 0, false, err
			}
			if !leaf || zeroLeaf {
				if err := fs.zeroBlock(nb); err != nil {
					fs.alloc.FreeBlock(nb)
					return 0, false, common.EIO
				}
			}

			binary.LittleEndian.PutUint32(buf[4*index:], nb)
			if err := fs.dev.WriteBlock(cur, buf); err != nil {
				fs.alloc.FreeBlock(nb)
				return 0, false, common.EIO
			}
			rip.Blocks += common.SECTORS_PER_BLOCK

			if leaf {
				created = true
			}
			ptr = nb
		}
		cur = ptr
	}
	return cur, created, nil
}

// releaseRange frees the physical blocks backing logical indices
// [start, end) and clears their pointers. Indirect nodes stay allocated;
// the inode's sector count is recomputed from the file size afterwards,
// which deliberately ignores surviving indirect nodes.
func (fs *FileSystem) releaseRange(rip *common.Inode, start, end uint32) {
	buf := make([]byte, common.BLOCK_SIZE)

	for lbn := start; lbn < end; lbn++ {
		slot, path, err := indexPath(lbn)
		if err != nil {
			break
		}

		if len(path) == 0 {
			if b := rip.Block[slot]; b != common.NO_BLOCK {
				fs.alloc.FreeBlock(b)
				rip.Block[slot] = common.NO_BLOCK
			}
			continue
		}

		// Walk to the indirect block holding the leaf pointer.
		cur := rip.Block[slot]
		ok := true
		for _, index := range path[:len(path)-1] {
			if cur == common.NO_BLOCK {
				ok = false
				break
			}
			if err := fs.dev.ReadBlock(cur, buf); err != nil {
				ok = false
				break
			}
			if cur, err = fs.rdIndir(buf, index); err != nil {
				ok = false
				break
			}
		}
		if !ok || cur == common.NO_BLOCK {
			continue
		}

		if err := fs.dev.ReadBlock(cur, buf); err != nil {
			continue
		}
		index := path[len(path)-1]
		leaf := binary.LittleEndian.Uint32(buf[4*index:])
		if leaf == common.NO_BLOCK {
			continue
		}
		binary.LittleEndian.PutUint32(buf[4*index:], common.NO_BLOCK)
		if err := fs.dev.WriteBlock(cur, buf); err != nil {
			continue
		}
		fs.alloc.FreeBlock(leaf)
	}

	rip.Blocks = (rip.Size + common.SECTOR_SIZE - 1) / common.SECTOR_SIZE
}

// freeBlockTree releases a block subtree in post-order: level 0 is a data
// block, higher levels are indirect nodes whose non-zero children are
// released first. The recursion is bounded by the three indirect levels.
func (fs *FileSystem) freeBlockTree(blocknum uint32, level int) {
	if blocknum == common.NO_BLOCK {
		return
	}
	if level == 0 {
		fs.alloc.FreeBlock(blocknum)
		return
	}

	buf := make([]byte, common.BLOCK_SIZE)
	if err := fs.dev.ReadBlock(blocknum, buf); err != nil {
		return
	}
	for i := 0; i < common.NR_INDIRECTS; i++ {
		child := binary.LittleEndian.Uint32(buf[4*i:])
		if child != common.NO_BLOCK {
			fs.freeBlockTree(child, level-1)
		}
	}
	fs.alloc.FreeBlock(blocknum)
}

// freeAllBlocks releases every data block and indirect node of an inode
// and resets its block map.
func (fs *FileSystem) freeAllBlocks(rip *common.Inode) {
	for i := 0; i < common.NR_DIRECT; i++ {
		if rip.Block[i] != common.NO_BLOCK {
			fs.alloc.FreeBlock(rip.Block[i])
		}
	}
	fs.freeBlockTree(rip.Block[common.NR_DIRECT], 1)
	fs.freeBlockTree(rip.Block[common.NR_DIRECT+1], 2)
	fs.freeBlockTree(rip.Block[common.NR_DIRECT+2], 3)

	for i := range rip.Block {
		rip.Block[i] = common.NO_BLOCK
	}
	rip.Blocks = 0
}

func (fs *FileSystem) zeroBlock(blocknum uint32) error {
	return fs.dev.WriteBlock(blocknum, make([]byte, common.BLOCK_SIZE))
}
