package fs

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// The per-operation composition of the lower layers. Every do_* routine
// runs with the filesystem lock held; the exported wrappers at the bottom
// of the file take it.

// MAX_FILE_SIZE caps a single file; inode sizes are 32-bit.
const MAX_FILE_SIZE = int64(math.MaxUint32)

// Utimes carries explicit timestamps for utimens. A nil *Utimes means
// "set both to now".
type Utimes struct {
	Atime    uint32
	Mtime    uint32
	SetAtime bool
	SetMtime bool
}

// NO_CHANGE is the chown sentinel for "leave this id alone".
const NO_CHANGE = ^uint32(0)

// lastDir resolves the parent directory of the path's final component
// and validates the component name.
func (fs *FileSystem) lastDir(caller *Caller, path string) (uint32, *common.Inode, string, error) {
	dirname, basename := parsePath(path)
	if basename == "" || basename == "." || basename == ".." || basename == "/" {
		return 0, nil, "", common.EINVAL
	}
	if len(basename) > common.MAX_NAME_LEN {
		return 0, nil, "", common.ENAMETOOLONG
	}

	dnum, err := fs.pathToInode(caller, dirname)
	if err != nil {
		return 0, nil, "", err
	}
	dirp, err := fs.readInode(dnum)
	if err != nil {
		return 0, nil, "", err
	}
	if !dirp.IsDirectory() {
		return 0, nil, "", common.ENOTDIR
	}
	return dnum, dirp, basename, nil
}

// mustNotExist verifies that path does not name anything, without
// following a final symlink.
func (fs *FileSystem) mustNotExist(caller *Caller, path string) error {
	if _, err := fs.eatPath(caller, path, 0, false); err == nil {
		return common.EEXIST
	} else if err != common.ENOENT {
		return err
	}
	return nil
}

func (fs *FileSystem) do_getattr(caller *Caller, path string) (*common.StatInfo, error) {
	inum, err := fs.eatPath(caller, path, 0, false)
	if err != nil {
		return nil, err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return nil, err
	}

	return &common.StatInfo{
		Ino:    inum,
		Mode:   rip.Mode,
		Nlinks: rip.Nlinks,
		Uid:    rip.Uid,
		Gid:    rip.Gid,
		Size:   rip.Size,
		Blocks: rip.Blocks,
		Atime:  rip.Atime,
		Mtime:  rip.Mtime,
		Ctime:  rip.Ctime,
	}, nil
}

func (fs *FileSystem) do_readdir(caller *Caller, path string) ([]common.Dirent, error) {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return nil, err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return nil, err
	}
	if !rip.IsDirectory() {
		return nil, common.ENOTDIR
	}
	if err := fs.checkAccess(caller, rip, common.R_BIT|common.X_BIT); err != nil {
		return nil, err
	}

	var entries []common.Dirent
	err = fs.enumDir(rip, func(de common.DirEntry) bool {
		entries = append(entries, common.Dirent{Ino: de.Inode, Type: de.FileType, Name: de.Name})
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (fs *FileSystem) do_mknod(caller *Caller, path string, mode uint16) error {
	switch mode & common.I_TYPE {
	case 0:
		mode |= common.I_REGULAR
	case common.I_REGULAR, common.I_FIFO:
	default:
		return common.EPERM
	}

	dnum, dirp, basename, err := fs.lastDir(caller, path)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}
	if err := fs.mustNotExist(caller, path); err != nil {
		return err
	}

	inum, err := fs.alloc.AllocInode(mode)
	if err != nil {
		return err
	}

	rip := &common.Inode{
		Mode:   mode,
		Uid:    uint16(caller.Uid),
		Gid:    uint16(caller.Gid),
		Nlinks: 1,
	}
	rip.Atime = now()
	rip.Mtime = rip.Atime
	rip.Ctime = rip.Atime

	if err := fs.writeInode(inum, rip); err != nil {
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	ftype := uint8(mode >> 12)
	if err := fs.addEntry(dirp, dnum, basename, inum, ftype); err != nil {
		// The inode has no blocks yet; roll it back whole.
		rip.Dtime = now()
		rip.Nlinks = 0
		fs.writeInode(inum, rip)
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	return fs.flushMeta()
}

func (fs *FileSystem) do_mkdir(caller *Caller, path string, mode uint16) error {
	mode = common.I_DIRECTORY | (mode & common.ALL_MODES)

	dnum, dirp, basename, err := fs.lastDir(caller, path)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}
	if err := fs.mustNotExist(caller, path); err != nil {
		return err
	}
	if dirp.Nlinks == math.MaxUint16 {
		return common.EMLINK
	}

	inum, err := fs.alloc.AllocInode(mode)
	if err != nil {
		return err
	}
	datab, err := fs.alloc.AllocBlock(fs.l.GroupOfInode(inum))
	if err != nil {
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	// Build the . and .. block before anything is linked.
	buf := make([]byte, common.BLOCK_SIZE)
	dot := common.DirEntry{
		Inode:    inum,
		RecLen:   uint16(common.DirEntryLen(1)),
		NameLen:  1,
		FileType: common.DT_DIR,
		Name:     ".",
	}
	common.EncodeDirEntry(buf, 0, &dot)
	dotdot := common.DirEntry{
		Inode:    dnum,
		RecLen:   uint16(common.BLOCK_SIZE - int(dot.RecLen)),
		NameLen:  2,
		FileType: common.DT_DIR,
		Name:     "..",
	}
	common.EncodeDirEntry(buf, int(dot.RecLen), &dotdot)

	if err := fs.dev.WriteBlock(datab, buf); err != nil {
		fs.alloc.FreeBlock(datab)
		fs.alloc.FreeInode(inum, mode)
		return common.EIO
	}

	rip := &common.Inode{
		Mode:   mode,
		Uid:    uint16(caller.Uid),
		Gid:    uint16(caller.Gid),
		Nlinks: 2, // . plus the parent entry
		Size:   common.BLOCK_SIZE,
		Blocks: common.SECTORS_PER_BLOCK,
	}
	rip.Block[0] = datab
	rip.Atime = now()
	rip.Mtime = rip.Atime
	rip.Ctime = rip.Atime

	if err := fs.writeInode(inum, rip); err != nil {
		fs.alloc.FreeBlock(datab)
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	if err := fs.addEntry(dirp, dnum, basename, inum, common.DT_DIR); err != nil {
		fs.alloc.FreeBlock(datab)
		rip.Dtime = now()
		rip.Nlinks = 0
		fs.writeInode(inum, rip)
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	// The new directory's .. entry counts against the parent.
	dirp.Nlinks++
	dirp.Mtime = now()
	dirp.Ctime = dirp.Mtime
	if err := fs.writeInode(dnum, dirp); err != nil {
		log.Printf("mkdir: parent link count update failed for inode %d", dnum)
	}

	return fs.flushMeta()
}

func (fs *FileSystem) do_unlink(caller *Caller, path string) error {
	dnum, dirp, basename, err := fs.lastDir(caller, path)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}

	// Unlink operates on the link itself, never its target.
	inum, err := fs.eatPath(caller, path, 0, false)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}

	if !rip.IsDirectory() {
		if err := fs.checkSticky(caller, dirp, rip); err != nil {
			return err
		}
	}
	if rip.IsDirectory() {
		return common.EISDIR
	}

	if err := fs.removeEntry(dirp, dnum, basename); err != nil {
		return err
	}

	rip.Nlinks--
	rip.Ctime = now()

	if rip.Nlinks == 0 {
		// A fast symlink has no blocks to give back.
		if !rip.IsFastSymlink() {
			fs.freeAllBlocks(rip)
		}
		rip.Size = 0
		rip.Dtime = now()
		if err := fs.writeInode(inum, rip); err != nil {
			log.Printf("unlink: inode %d write failed before free", inum)
		}
		fs.alloc.FreeInode(inum, rip.Mode)
	} else {
		if err := fs.writeInode(inum, rip); err != nil {
			return common.EIO
		}
	}

	return fs.flushMeta()
}

func (fs *FileSystem) do_rmdir(caller *Caller, path string) error {
	dnum, dirp, basename, err := fs.lastDir(caller, path)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}

	inum, err := fs.eatPath(caller, path, 0, false)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}

	if err := fs.checkSticky(caller, dirp, rip); err != nil {
		return err
	}
	if !rip.IsDirectory() {
		return common.ENOTDIR
	}
	if inum == fs.l.Super.RootInode {
		return common.EINVAL
	}

	empty, err := fs.isEmpty(rip)
	if err != nil {
		return err
	}
	if !empty {
		return common.ENOTEMPTY
	}

	if err := fs.removeEntry(dirp, dnum, basename); err != nil {
		return err
	}

	// The removed directory's .. no longer references the parent.
	dirp.Nlinks--
	dirp.Mtime = now()
	dirp.Ctime = dirp.Mtime
	if err := fs.writeInode(dnum, dirp); err != nil {
		log.Printf("rmdir: parent link count update failed for inode %d", dnum)
	}

	fs.freeAllBlocks(rip)
	mode := rip.Mode
	rip.Nlinks = 0
	rip.Dtime = now()
	rip.Size = 0
	if err := fs.writeInode(inum, rip); err != nil {
		log.Printf("rmdir: inode %d write failed before free", inum)
	}
	fs.alloc.FreeInode(inum, mode)

	return fs.flushMeta()
}

func (fs *FileSystem) do_read(caller *Caller, path string, buf []byte, pos int64) (int, error) {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return 0, err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return 0, err
	}
	if rip.IsDirectory() {
		return 0, common.EISDIR
	}
	if err := fs.checkAccess(caller, rip, common.R_BIT); err != nil {
		return 0, err
	}

	fsize := int64(rip.Size)
	if pos >= fsize {
		return 0, nil
	}
	if pos+int64(len(buf)) > fsize {
		buf = buf[:fsize-pos]
	}

	block := make([]byte, common.BLOCK_SIZE)
	numBytes := 0
	for numBytes < len(buf) {
		curpos := pos + int64(numBytes)
		lbn := uint32(curpos / common.BLOCK_SIZE)
		off := int(curpos % common.BLOCK_SIZE)

		chunk := common.BLOCK_SIZE - off
		if chunk > len(buf)-numBytes {
			chunk = len(buf) - numBytes
		}

		b, err := fs.readMap(rip, lbn)
		if err != nil {
			if numBytes > 0 {
				break
			}
			return 0, err
		}
		if b == common.NO_BLOCK {
			// A hole reads as zeros.
			for i := 0; i < chunk; i++ {
				buf[numBytes+i] = 0
			}
			numBytes += chunk
			continue
		}

		if err := fs.dev.ReadBlock(b, block); err != nil {
			if numBytes > 0 {
				break
			}
			return 0, common.EIO
		}
		copy(buf[numBytes:numBytes+chunk], block[off:])
		numBytes += chunk
	}

	rip.Atime = now()
	if err := fs.writeInode(inum, rip); err != nil {
		log.Printf("read: atime update failed for inode %d", inum)
	}
	return numBytes, nil
}

func (fs *FileSystem) do_write(caller *Caller, path string, data []byte, pos int64) (int, error) {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return 0, err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return 0, err
	}
	if rip.IsDirectory() {
		return 0, common.EISDIR
	}
	if err := fs.checkAccess(caller, rip, common.W_BIT); err != nil {
		return 0, err
	}
	if pos < 0 || pos+int64(len(data)) > MAX_FILE_SIZE {
		return 0, common.EFBIG
	}

	block := make([]byte, common.BLOCK_SIZE)
	numBytes := 0
	var werr error
	for numBytes < len(data) {
		curpos := pos + int64(numBytes)
		lbn := uint32(curpos / common.BLOCK_SIZE)
		off := int(curpos % common.BLOCK_SIZE)

		chunk := common.BLOCK_SIZE - off
		if chunk > len(data)-numBytes {
			chunk = len(data) - numBytes
		}

		b, created, err := fs.allocForWrite(rip, inum, lbn, false)
		if err != nil {
			werr = err
			break
		}

		partial := off != 0 || chunk < common.BLOCK_SIZE
		if partial && !created {
			if err := fs.dev.ReadBlock(b, block); err != nil {
				werr = common.EIO
				break
			}
		} else if partial {
			// A fresh leaf is all-zero by contract.
			for i := range block {
				block[i] = 0
			}
		}

		copy(block[off:off+chunk], data[numBytes:])
		if err := fs.dev.WriteBlock(b, block); err != nil {
			werr = common.EIO
			break
		}
		numBytes += chunk
	}

	if grown := pos + int64(numBytes); grown > int64(rip.Size) {
		rip.Size = uint32(grown)
	}
	rip.Mtime = now()
	rip.Ctime = rip.Mtime
	if err := fs.writeInode(inum, rip); err != nil {
		if numBytes == 0 && len(data) > 0 {
			return 0, common.EIO
		}
	}

	if err := fs.flushMeta(); err != nil && numBytes == 0 {
		return 0, err
	}
	if numBytes == 0 && werr != nil {
		return 0, werr
	}
	return numBytes, nil
}

func (fs *FileSystem) do_truncate(caller *Caller, path string, size int64) error {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}
	if rip.IsDirectory() {
		return common.EISDIR
	}
	if err := fs.checkAccess(caller, rip, common.W_BIT); err != nil {
		return err
	}
	if size < 0 || size > MAX_FILE_SIZE {
		return common.EFBIG
	}

	if int64(rip.Size) == size {
		rip.Ctime = now()
		return fs.writeInode(inum, rip)
	}

	oldSize := rip.Size
	rip.Size = uint32(size)

	switch {
	case size == 0:
		fs.freeAllBlocks(rip)
	case uint32(size) < oldSize:
		oldCeil := uint32((int64(oldSize) + common.BLOCK_SIZE - 1) / common.BLOCK_SIZE)
		newCeil := uint32((size + common.BLOCK_SIZE - 1) / common.BLOCK_SIZE)
		if newCeil < oldCeil {
			fs.releaseRange(rip, newCeil, oldCeil)
		} else {
			rip.Blocks = (rip.Size + common.SECTOR_SIZE - 1) / common.SECTOR_SIZE
		}
	}

	rip.Mtime = now()
	rip.Ctime = rip.Mtime
	if err := fs.writeInode(inum, rip); err != nil {
		return err
	}

	if uint32(size) < oldSize || size == 0 {
		return fs.flushMeta()
	}
	return nil
}

func (fs *FileSystem) do_chmod(caller *Caller, path string, mode uint16) error {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}

	if caller.Uid != 0 && caller.Uid != uint32(rip.Uid) {
		return common.EPERM
	}

	rip.Mode = rip.Type() | (mode & common.ALL_MODES)
	rip.Ctime = now()
	return fs.writeInode(inum, rip)
}

func (fs *FileSystem) do_chown(caller *Caller, path string, uid, gid uint32) error {
	inum, err := fs.eatPath(caller, path, 0, false)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}

	if caller.Uid != 0 {
		uidChanging := uid != NO_CHANGE && uid != uint32(rip.Uid)
		gidChanging := gid != NO_CHANGE && gid != uint32(rip.Gid)
		if uidChanging {
			return common.EPERM
		}
		if gidChanging {
			if caller.Uid != uint32(rip.Uid) {
				return common.EPERM
			}
			if !caller.inGroup(uint16(gid)) {
				return common.EPERM
			}
		}
	}

	changed := false
	if uid != NO_CHANGE && uint32(rip.Uid) != uid {
		rip.Uid = uint16(uid)
		changed = true
	}
	if gid != NO_CHANGE && uint32(rip.Gid) != gid {
		rip.Gid = uint16(gid)
		changed = true
	}
	if changed {
		if caller.Uid != 0 {
			rip.Mode &^= common.I_SET_UID_BIT | common.I_SET_GID_BIT
		}
		rip.Ctime = now()
		return fs.writeInode(inum, rip)
	}
	return nil
}

func (fs *FileSystem) do_utimens(caller *Caller, path string, ut *Utimes) error {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}

	if ut != nil {
		// Explicit timestamps require ownership.
		if caller.Uid != 0 && caller.Uid != uint32(rip.Uid) {
			return common.EPERM
		}
	} else {
		// The touch form needs write permission only.
		if err := fs.checkAccess(caller, rip, common.W_BIT); err != nil {
			return err
		}
	}

	t := now()
	if ut == nil {
		rip.Atime = t
		rip.Mtime = t
	} else {
		if ut.SetAtime {
			rip.Atime = ut.Atime
		}
		if ut.SetMtime {
			rip.Mtime = ut.Mtime
		}
	}
	rip.Ctime = t
	return fs.writeInode(inum, rip)
}

func (fs *FileSystem) do_symlink(caller *Caller, target, linkpath string) error {
	if target == "" {
		return common.EINVAL
	}

	dnum, dirp, basename, err := fs.lastDir(caller, linkpath)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}
	if err := fs.mustNotExist(caller, linkpath); err != nil {
		return err
	}
	if len(target) >= common.BLOCK_SIZE {
		return common.ENAMETOOLONG
	}

	mode := uint16(common.I_SYMLINK | common.RWX_MODES)
	inum, err := fs.alloc.AllocInode(mode)
	if err != nil {
		return err
	}

	rip := &common.Inode{
		Mode:   mode,
		Uid:    uint16(caller.Uid),
		Gid:    uint16(caller.Gid),
		Nlinks: 1,
		Size:   uint32(len(target)),
	}
	rip.Atime = now()
	rip.Mtime = rip.Atime
	rip.Ctime = rip.Atime

	if len(target) < common.FAST_SYMLINK_MAX {
		// Short targets ride inline in the block pointer array.
		rip.SetInlineTarget([]byte(target))
	} else {
		datab, err := fs.alloc.AllocBlock(fs.l.GroupOfInode(inum))
		if err != nil {
			fs.alloc.FreeInode(inum, mode)
			return err
		}
		buf := make([]byte, common.BLOCK_SIZE)
		copy(buf, target)
		if err := fs.dev.WriteBlock(datab, buf); err != nil {
			fs.alloc.FreeBlock(datab)
			fs.alloc.FreeInode(inum, mode)
			return common.EIO
		}
		rip.Block[0] = datab
		rip.Blocks = common.SECTORS_PER_BLOCK
	}

	if err := fs.writeInode(inum, rip); err != nil {
		if rip.Blocks > 0 {
			fs.alloc.FreeBlock(rip.Block[0])
		}
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	if err := fs.addEntry(dirp, dnum, basename, inum, common.DT_LNK); err != nil {
		if rip.Blocks > 0 {
			fs.alloc.FreeBlock(rip.Block[0])
		}
		rip.Dtime = now()
		rip.Nlinks = 0
		fs.writeInode(inum, rip)
		fs.alloc.FreeInode(inum, mode)
		return err
	}

	return fs.flushMeta()
}

func (fs *FileSystem) do_readlink(caller *Caller, path string) (string, error) {
	inum, err := fs.eatPath(caller, path, 0, false)
	if err != nil {
		return "", err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return "", err
	}
	if !rip.IsSymlink() {
		return "", common.EINVAL
	}

	target, err := fs.readLinkTarget(rip)
	if err != nil {
		return "", err
	}

	rip.Atime = now()
	if err := fs.writeInode(inum, rip); err != nil {
		log.Printf("readlink: atime update failed for inode %d", inum)
	}
	return target, nil
}

func (fs *FileSystem) do_link(caller *Caller, oldpath, newpath string) error {
	inum, err := fs.pathToInode(caller, oldpath)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}
	if rip.IsDirectory() {
		return common.EPERM
	}
	if rip.Nlinks == math.MaxUint16 {
		return common.EMLINK
	}

	dnum, dirp, basename, err := fs.lastDir(caller, newpath)
	if err != nil {
		return err
	}
	if err := fs.checkAccess(caller, dirp, common.W_BIT|common.X_BIT); err != nil {
		return err
	}
	if err := fs.mustNotExist(caller, newpath); err != nil {
		return err
	}

	ftype := uint8(rip.Mode >> 12)
	if err := fs.addEntry(dirp, dnum, basename, inum, ftype); err != nil {
		return err
	}

	rip.Nlinks++
	rip.Ctime = now()
	if err := fs.writeInode(inum, rip); err != nil {
		fs.removeEntry(dirp, dnum, basename)
		return common.EIO
	}

	return fs.flushMeta()
}

func (fs *FileSystem) do_statfs() *common.StatfsInfo {
	sb := &fs.l.Super
	return &common.StatfsInfo{
		Bsize:   common.BLOCK_SIZE,
		Blocks:  sb.BlocksCount,
		Bfree:   sb.FreeBlocksCount,
		Bavail:  sb.FreeBlocksCount,
		Files:   sb.InodesCount,
		Ffree:   sb.FreeInodesCount,
		Favail:  sb.FreeInodesCount,
		Namemax: common.MAX_NAME_LEN,
	}
}

func (fs *FileSystem) do_access(caller *Caller, path string, mask uint16) error {
	inum, err := fs.pathToInode(caller, path)
	if err != nil {
		return err
	}
	rip, err := fs.readInode(inum)
	if err != nil {
		return err
	}
	return fs.checkAccess(caller, rip, mask&7)
}

// The public operation surface. One mutex serializes everything; an
// operation runs to completion before the next begins.

func (fs *FileSystem) GetAttr(caller *Caller, path string) (*common.StatInfo, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_getattr(caller, path)
}

func (fs *FileSystem) ReadDir(caller *Caller, path string) ([]common.Dirent, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_readdir(caller, path)
}

func (fs *FileSystem) Mknod(caller *Caller, path string, mode uint16) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_mknod(caller, path, mode)
}

func (fs *FileSystem) Mkdir(caller *Caller, path string, mode uint16) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_mkdir(caller, path, mode)
}

func (fs *FileSystem) Unlink(caller *Caller, path string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_unlink(caller, path)
}

func (fs *FileSystem) Rmdir(caller *Caller, path string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_rmdir(caller, path)
}

func (fs *FileSystem) Read(caller *Caller, path string, buf []byte, pos int64) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_read(caller, path, buf, pos)
}

func (fs *FileSystem) Write(caller *Caller, path string, data []byte, pos int64) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_write(caller, path, data, pos)
}

func (fs *FileSystem) Truncate(caller *Caller, path string, size int64) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_truncate(caller, path, size)
}

func (fs *FileSystem) Chmod(caller *Caller, path string, mode uint16) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_chmod(caller, path, mode)
}

func (fs *FileSystem) Chown(caller *Caller, path string, uid, gid uint32) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_chown(caller, path, uid, gid)
}

func (fs *FileSystem) Utimens(caller *Caller, path string, ut *Utimes) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_utimens(caller, path, ut)
}

func (fs *FileSystem) Symlink(caller *Caller, target, linkpath string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_symlink(caller, target, linkpath)
}

func (fs *FileSystem) Readlink(caller *Caller, path string) (string, error) {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_readlink(caller, path)
}

func (fs *FileSystem) Link(caller *Caller, oldpath, newpath string) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_link(caller, oldpath, newpath)
}

func (fs *FileSystem) Statfs() *common.StatfsInfo {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_statfs()
}

func (fs *FileSystem) Access(caller *Caller, path string, mask uint16) error {
	fs.m.Lock()
	defer fs.m.Unlock()
	return fs.do_access(caller, path, mask)
}
