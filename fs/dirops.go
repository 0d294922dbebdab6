package fs

import (
	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// The directory record engine. A directory's payload is a sequence of
// blocks, each a chain of 4-byte-aligned variable-length records; the
// last record of a block extends to the block boundary, and a record
// with inode 0 is reusable free space.

// dirBlocks gives the number of payload blocks of a directory.
func dirBlocks(rip *common.Inode) uint32 {
	return (rip.Size + common.BLOCK_SIZE - 1) / common.BLOCK_SIZE
}

// validRecord checks the structural invariants of a record at off within
// a block: a sane length for its name and containment in the block.
func validRecord(de *common.DirEntry, off int) bool {
	if de.RecLen == 0 {
		return false
	}
	min := common.DirEntryLen(0)
	if de.Inode != common.NO_INODE && de.NameLen > 0 {
		min = common.DirEntryLen(int(de.NameLen))
	}
	if int(de.RecLen) < min || off+int(de.RecLen) > common.BLOCK_SIZE {
		return false
	}
	return true
}

// searchDir scans a directory for an exact name match and returns the
// entry's inode number.
func (fs *FileSystem) searchDir(rip *common.Inode, name string) (uint32, error) {
	if !rip.IsDirectory() {
		return 0, common.ENOTDIR
	}

	buf := make([]byte, common.BLOCK_SIZE)
	nblocks := dirBlocks(rip)

	for lbn := uint32(0); lbn < nblocks; lbn++ {
		b, err := fs.readMap(rip, lbn)
		if err != nil {
			return 0, err
		}
		if b == common.NO_BLOCK {
			continue // directories are not sparse; tolerate and move on
		}
		if err := fs.dev.ReadBlock(b, buf); err != nil {
			return 0, common.EIO
		}

		off := 0
		for off < common.BLOCK_SIZE {
			de := common.DecodeDirEntry(buf, off)
			if !validRecord(&de, off) {
				break
			}
			if de.Inode != common.NO_INODE && de.Name == name {
				return de.Inode, nil
			}
			off += int(de.RecLen)
		}
	}
	return 0, common.ENOENT
}

// enumDir yields every active record of a directory in storage order.
// The walk stops early if fn returns false. A malformed record reports
// corruption.
func (fs *FileSystem) enumDir(rip *common.Inode, fn func(de common.DirEntry) bool) error {
	buf := make([]byte, common.BLOCK_SIZE)
	nblocks := dirBlocks(rip)

	for lbn := uint32(0); lbn < nblocks; lbn++ {
		b, err := fs.readMap(rip, lbn)
		if err != nil {
			return err
		}
		if b == common.NO_BLOCK {
			continue
		}
		if err := fs.dev.ReadBlock(b, buf); err != nil {
			return common.EIO
		}

		off := 0
		for off < common.BLOCK_SIZE {
			de := common.DecodeDirEntry(buf, off)
			if de.RecLen == 0 && off == 0 {
				break // freshly zeroed block
			}
			if !validRecord(&de, off) {
				log.Printf("Malformed directory record at block %d offset %d", b, off)
				return common.EIO
			}
			if de.Inode != common.NO_INODE && de.NameLen > 0 {
				if !fn(de) {
					return nil
				}
			}
			off += int(de.RecLen)
		}
	}
	return nil
}

// isEmpty reports whether a directory holds nothing besides . and ..
func (fs *FileSystem) isEmpty(rip *common.Inode) (bool, error) {
	empty := true
	err := fs.enumDir(rip, func(de common.DirEntry) bool {
		if de.Name != "." && de.Name != ".." {
			empty = false
			return false
		}
		return true
	})
	return empty, err
}

// getOrAllocDirBlock maps a logical directory block, appending a zeroed
// block when the directory grows. Directory leaves are always zeroed on
// allocation so every block is a well-formed (empty) record chain.
func (fs *FileSystem) getOrAllocDirBlock(dirp *common.Inode, dnum uint32, lbn uint32) (uint32, bool, error) {
	return fs.allocForWrite(dirp, dnum, lbn, true)
}

// addEntry links (name -> child) into the parent directory. Placement
// tries, in order: a free record large enough, the slack of an active
// record, and finally a freshly appended block. Splitting leaves a
// trailing free record when the remainder can hold a header, and absorbs
// it into the new record otherwise.
func (fs *FileSystem) addEntry(dirp *common.Inode, dnum uint32, name string, child uint32, ftype uint8) error {
	if len(name) > common.MAX_NAME_LEN {
		return common.ENAMETOOLONG
	}
	needed := common.DirEntryLen(len(name))
	minEmpty := common.DirEntryLen(0)

	newde := common.DirEntry{
		Inode:    child,
		NameLen:  uint8(len(name)),
		FileType: ftype,
		Name:     name,
	}

	buf := make([]byte, common.BLOCK_SIZE)
	maxBlocks := dirBlocks(dirp) + 1 // existing payload plus one fresh block

	for lbn := uint32(0); lbn < maxBlocks; lbn++ {
		b, created, err := fs.getOrAllocDirBlock(dirp, dnum, lbn)
		if err != nil {
			return err
		}

		placed := false
		if created {
			// A brand new block: one record spanning the whole block.
			for i := range buf {
				buf[i] = 0
			}
			newde.RecLen = common.BLOCK_SIZE
			common.EncodeDirEntry(buf, 0, &newde)
			placed = true
		} else {
			if err := fs.dev.ReadBlock(b, buf); err != nil {
				return common.EIO
			}

			off := 0
			for off < common.BLOCK_SIZE {
				de := common.DecodeDirEntry(buf, off)
				if de.RecLen == 0 {
					if off == 0 {
						// Zeroed block inside the payload; claim it whole.
						newde.RecLen = common.BLOCK_SIZE
						common.EncodeDirEntry(buf, 0, &newde)
						placed = true
					}
					break
				}
				if !validRecord(&de, off) {
					return common.EIO
				}

				if de.Inode == common.NO_INODE && int(de.RecLen) >= needed {
					// Reuse a free record, splitting off the remainder.
					remainder := int(de.RecLen) - needed
					newde.RecLen = uint16(needed)
					if remainder > 0 && remainder < minEmpty {
						newde.RecLen += uint16(remainder)
						remainder = 0
					}
					common.EncodeDirEntry(buf, off, &newde)
					if remainder > 0 {
						free := common.DirEntry{RecLen: uint16(remainder)}
						common.EncodeDirEntry(buf, off+needed, &free)
					}
					placed = true
					break
				}

				actual := common.DirEntryLen(int(de.NameLen))
				if de.Inode != common.NO_INODE && int(de.RecLen)-actual >= needed {
					// Shrink an active record and use its slack.
					slack := int(de.RecLen) - actual
					de.RecLen = uint16(actual)
					common.EncodeDirEntry(buf, off, &de)

					remainder := slack - needed
					newde.RecLen = uint16(needed)
					if remainder > 0 && remainder < minEmpty {
						newde.RecLen += uint16(remainder)
						remainder = 0
					}
					common.EncodeDirEntry(buf, off+actual, &newde)
					if remainder > 0 {
						free := common.DirEntry{RecLen: uint16(remainder)}
						common.EncodeDirEntry(buf, off+actual+needed, &free)
					}
					placed = true
					break
				}

				off += int(de.RecLen)
			}
		}

		if placed {
			if err := fs.dev.WriteBlock(b, buf); err != nil {
				return common.EIO
			}

			if grown := (lbn + 1) * common.BLOCK_SIZE; dirp.Size < grown {
				dirp.Size = grown
			}
			dirp.Mtime = now()
			dirp.Ctime = dirp.Mtime
			if err := fs.writeInode(dnum, dirp); err != nil {
				return common.EIO
			}
			return nil
		}
	}
	return common.ENOSPC
}

// removeEntry unlinks a name from the parent directory. The record's
// space coalesces into its predecessor, or becomes a free record when it
// leads the block. Blocks are never returned to the allocator here.
func (fs *FileSystem) removeEntry(dirp *common.Inode, dnum uint32, name string) error {
	if name == "" || name == "." || name == ".." {
		return common.EINVAL
	}

	buf := make([]byte, common.BLOCK_SIZE)
	nblocks := dirBlocks(dirp)

	for lbn := uint32(0); lbn < nblocks; lbn++ {
		b, err := fs.readMap(dirp, lbn)
		if err != nil {
			return err
		}
		if b == common.NO_BLOCK {
			continue
		}
		if err := fs.dev.ReadBlock(b, buf); err != nil {
			return common.EIO
		}

		off := 0
		prev := -1
		for off < common.BLOCK_SIZE {
			de := common.DecodeDirEntry(buf, off)
			if de.RecLen == 0 {
				break
			}
			if !validRecord(&de, off) {
				return common.EIO
			}

			if de.Inode != common.NO_INODE && de.Name == name {
				if prev >= 0 {
					pde := common.DecodeDirEntry(buf, prev)
					pde.RecLen += de.RecLen
					common.EncodeDirEntry(buf, prev, &pde)
				} else {
					de.Inode = common.NO_INODE
					common.EncodeDirEntry(buf, off, &de)
				}

				if err := fs.dev.WriteBlock(b, buf); err != nil {
					return common.EIO
				}
				dirp.Mtime = now()
				dirp.Ctime = dirp.Mtime
				if err := fs.writeInode(dnum, dirp); err != nil {
					return common.EIO
				}
				return nil
			}

			prev = off
			off += int(de.RecLen)
		}
	}
	return common.ENOENT
}
