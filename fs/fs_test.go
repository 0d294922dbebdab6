package fs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/mkfs"
)

// Test images are memory-backed and formatted in-process. The small
// group geometry keeps multi-group images cheap.
var testOpts = mkfs.Options{
	BlocksPerGroup: 2048,
	InodesPerGroup: 256,
}

func newTestFS(t *testing.T, blocks uint32) *FileSystem {
	t.Helper()

	dev := device.NewRamDevice(blocks)
	require.NoError(t, mkfs.FormatDevice(dev, testOpts))

	fsys, err := NewFileSystem(dev)
	require.NoError(t, err)
	t.Cleanup(func() { fsys.Close() })
	return fsys
}

var (
	rootCaller = &Caller{Uid: 0, Gid: 0}
	alice      = &Caller{Uid: 1000, Gid: 1000}
	bob        = &Caller{Uid: 1001, Gid: 1001}
)
