package upcall

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/fs"
	"github.com/Momoko-Ayase/SimpleFS/mkfs"
)

func newFS(t *testing.T) *fs.FileSystem {
	t.Helper()
	dev := device.NewRamDevice(2048)
	require.NoError(t, mkfs.FormatDevice(dev, mkfs.Options{BlocksPerGroup: 1024, InodesPerGroup: 128}))
	fsys, err := fs.NewFileSystem(dev)
	require.NoError(t, err)
	t.Cleanup(func() { fsys.Close() })
	return fsys
}

func root() fs.Caller { return fs.Caller{Uid: 0, Gid: 0} }

func TestDispatchLifecycle(t *testing.T) {
	fsys := newFS(t)

	res := Dispatch(fsys, &Request{Op: OpMkdir, Path: "/d", Mode: 0755, Caller: root()})
	require.Zero(t, res.Errno)

	res = Dispatch(fsys, &Request{Op: OpMknod, Path: "/d/f", Mode: common.I_REGULAR | 0644, Caller: root()})
	require.Zero(t, res.Errno)

	res = Dispatch(fsys, &Request{Op: OpWrite, Path: "/d/f", Data: []byte("hello"), Offset: 0, Caller: root()})
	require.Zero(t, res.Errno)
	assert.Equal(t, 5, res.Count)

	res = Dispatch(fsys, &Request{Op: OpRead, Path: "/d/f", Size: 5, Offset: 0, Caller: root()})
	require.Zero(t, res.Errno)
	assert.Equal(t, []byte("hello"), res.Data)

	res = Dispatch(fsys, &Request{Op: OpGetAttr, Path: "/d/f", Caller: root()})
	require.Zero(t, res.Errno)
	assert.Equal(t, uint32(5), res.Stat.Size)

	res = Dispatch(fsys, &Request{Op: OpStatfs, Caller: root()})
	require.Zero(t, res.Errno)
	assert.Equal(t, uint32(common.BLOCK_SIZE), res.Statfs.Bsize)

	res = Dispatch(fsys, &Request{Op: OpReadDir, Path: "/d", Caller: root()})
	require.Zero(t, res.Errno)
	assert.Len(t, res.Entries, 3) // . .. f
}

func TestDispatchErrno(t *testing.T) {
	fsys := newFS(t)

	res := Dispatch(fsys, &Request{Op: OpGetAttr, Path: "/missing", Caller: root()})
	assert.Equal(t, 2, res.Errno) // ENOENT

	res = Dispatch(fsys, &Request{Op: OpRmdir, Path: "/", Caller: root()})
	assert.Equal(t, 22, res.Errno) // EINVAL

	require.Zero(t, Dispatch(fsys, &Request{Op: OpMkdir, Path: "/d", Mode: 0755, Caller: root()}).Errno)
	res = Dispatch(fsys, &Request{Op: OpMkdir, Path: "/d", Mode: 0755, Caller: root()})
	assert.Equal(t, 17, res.Errno) // EEXIST
}

func TestErrnoMapping(t *testing.T) {
	assert.Equal(t, 0, Errno(nil))
	assert.Equal(t, 2, Errno(common.ENOENT))
	assert.Equal(t, 28, Errno(common.ENOSPC))
	assert.Equal(t, 40, Errno(common.ELOOP))
	assert.Equal(t, 5, Errno(io.ErrClosedPipe)) // anything unknown is EIO
}

// The stream transport and serve loop speak gob end to end, and the
// loop exits when the bridge side closes.
func TestServeOverStream(t *testing.T) {
	fsys := newFS(t)

	var reqbuf bytes.Buffer
	tr := NewStreamTransport(&reqbuf, io.Discard)

	// Encode two requests the way a bridge would.
	send := NewStreamTransport(bytes.NewReader(nil), &reqbuf)
	enc := send.(*streamTransport).enc
	require.NoError(t, enc.Encode(&Request{Op: OpMkdir, Path: "/x", Mode: 0755, Caller: root()}))
	require.NoError(t, enc.Encode(&Request{Op: OpGetAttr, Path: "/x", Caller: root()}))

	require.NoError(t, Serve(fsys, tr))

	st, err := fsys.GetAttr(&fs.Caller{}, "/x")
	require.NoError(t, err)
	assert.True(t, st.Mode&common.I_TYPE == common.I_DIRECTORY)
}
