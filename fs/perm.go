package fs

import (
	"github.com/Momoko-Ayase/SimpleFS/common"
)

// Permission and ownership policy.

// inGroup reports whether the caller's primary or any supplementary
// group matches gid.
func (c *Caller) inGroup(gid uint16) bool {
	if c.Gid == uint32(gid) {
		return true
	}
	for _, g := range c.Groups {
		if g == uint32(gid) {
			return true
		}
	}
	return false
}

// checkAccess grants or denies a set of requested permission bits
// against an inode. Root is always granted; otherwise the owner, group,
// or other triad applies, in that order of precedence.
func (fs *FileSystem) checkAccess(caller *Caller, rip *common.Inode, requested uint16) error {
	if caller.Uid == 0 {
		return nil
	}

	var triad uint16
	switch {
	case caller.Uid == uint32(rip.Uid):
		triad = (rip.Mode >> 6) & 7
	case caller.inGroup(rip.Gid):
		triad = (rip.Mode >> 3) & 7
	default:
		triad = rip.Mode & 7
	}

	if requested&triad != requested {
		return common.EACCES
	}
	return nil
}

// checkSticky applies the sticky-bit deletion rule: when the parent
// directory carries the sticky bit, only root, the parent's owner, or
// the target's owner may remove the entry.
func (fs *FileSystem) checkSticky(caller *Caller, dirp, rip *common.Inode) error {
	if dirp.Mode&common.I_STICKY_BIT == 0 {
		return nil
	}
	if caller.Uid == 0 || caller.Uid == uint32(dirp.Uid) || caller.Uid == uint32(rip.Uid) {
		return nil
	}
	return common.EACCES
}
