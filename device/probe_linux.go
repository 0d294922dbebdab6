package device

import (
	"os"

	"golang.org/x/sys/unix"
)

// probeSize determines the capacity of an open device in bytes. Block
// device nodes are sized via BLKGETSIZE64; anything else by fstat.
func probeSize(file *os.File) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(file.Fd()), &st); err != nil {
		return 0, err
	}

	if st.Mode&unix.S_IFMT == unix.S_IFBLK {
		size, err := unix.IoctlGetInt(int(file.Fd()), unix.BLKGETSIZE64)
		if err != nil {
			return 0, err
		}
		return int64(size), nil
	}

	return st.Size, nil
}

// IsBlockDevice reports whether path names a block device node.
func IsBlockDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK
}
