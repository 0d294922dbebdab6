package fs

import (
	"strings"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// Path resolution. Paths are absolute; each component is looked up in the
// current directory after an execute-permission check, and symbolic links
// restart resolution on a composed path with a bounded recursion depth.

// parsePath splits a path into the directory part and the final
// component. The root itself parses to ("/", "/").
func parsePath(path string) (dirname, basename string) {
	if path == "" {
		return ".", ""
	}

	// Collapse repeated slashes and drop any trailing one.
	var b strings.Builder
	if path[0] == '/' {
		b.WriteByte('/')
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if b.Len() > 0 && b.String()[b.Len()-1] != '/' {
				b.WriteByte('/')
			}
		} else {
			b.WriteByte(path[i])
		}
	}
	p := b.String()
	if len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	if p == "/" {
		return "/", "/"
	}

	slash := strings.LastIndexByte(p, '/')
	if slash < 0 {
		return ".", p
	}
	if slash == 0 {
		return "/", p[1:]
	}
	return p[:slash], p[slash+1:]
}

// splitComponents breaks a path into its non-empty components.
func splitComponents(path string) []string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	comps := parts[:0]
	for _, c := range parts {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// readLinkTarget fetches the target of a symlink inode, inline for fast
// symlinks and from the first data block otherwise.
func (fs *FileSystem) readLinkTarget(rip *common.Inode) (string, error) {
	if rip.IsFastSymlink() {
		if rip.Size > common.FAST_SYMLINK_MAX {
			return "", common.EIO
		}
		return string(rip.InlineTarget()), nil
	}

	if rip.Size == 0 || rip.Size >= common.BLOCK_SIZE || rip.Block[0] == common.NO_BLOCK {
		return "", common.EIO
	}
	buf := make([]byte, common.BLOCK_SIZE)
	if err := fs.dev.ReadBlock(rip.Block[0], buf); err != nil {
		return "", common.EIO
	}
	return string(buf[:rip.Size]), nil
}

// eatPath resolves an absolute path to an inode number. followLast
// decides whether a symlink in the final position is chased; links in
// intermediate positions always are. depth counts symlink recursions and
// is bounded by MAX_LINK_DEPTH.
func (fs *FileSystem) eatPath(caller *Caller, path string, depth int, followLast bool) (uint32, error) {
	if depth > common.MAX_LINK_DEPTH {
		return 0, common.ELOOP
	}
	if path == "" {
		return 0, common.EINVAL
	}
	if path == "/" {
		return fs.l.Super.RootInode, nil
	}
	if path[0] != '/' {
		return 0, common.EINVAL
	}

	comps := splitComponents(path)
	if len(comps) == 0 {
		return fs.l.Super.RootInode, nil
	}

	cur := fs.l.Super.RootInode
	curdir := "/" // path of the directory holding the current component

	for i, comp := range comps {
		last := i == len(comps)-1
		if comp == "." {
			if last {
				return cur, nil
			}
			continue
		}

		dirp, err := fs.readInode(cur)
		if err != nil {
			return 0, err
		}
		if !dirp.IsDirectory() {
			return 0, common.ENOTDIR
		}
		if err := fs.checkAccess(caller, dirp, common.X_BIT); err != nil {
			return 0, err
		}

		inum, err := fs.searchDir(dirp, comp)
		if err != nil {
			return 0, err
		}

		rip, err := fs.readInode(inum)
		if err != nil {
			return 0, err
		}

		if rip.IsSymlink() && (!last || followLast) {
			target, err := fs.readLinkTarget(rip)
			if err != nil {
				return 0, err
			}

			var next string
			if strings.HasPrefix(target, "/") {
				next = target
			} else if curdir == "/" {
				next = "/" + target
			} else {
				next = curdir + "/" + target
			}
			for _, rest := range comps[i+1:] {
				next += "/" + rest
			}
			return fs.eatPath(caller, next, depth+1, followLast)
		}

		if last {
			return inum, nil
		}

		// Advance: the resolved component becomes the current directory.
		switch comp {
		case "..":
			if curdir != "/" {
				if slash := strings.LastIndexByte(curdir, '/'); slash == 0 {
					curdir = "/"
				} else {
					curdir = curdir[:slash]
				}
			}
		default:
			if curdir == "/" {
				curdir += comp
			} else {
				curdir += "/" + comp
			}
		}
		cur = inum
	}
	return cur, nil
}

// pathToInode is the common entry: resolve following all symlinks.
func (fs *FileSystem) pathToInode(caller *Caller, path string) (uint32, error) {
	return fs.eatPath(caller, path, 0, true)
}
