// Package upcall defines the request/response protocol spoken between
// the kernel bridge and the operation layer, and the loop that services
// it. The bridge itself lives outside this module; anything that can
// produce Requests and consume Responses can drive a mounted filesystem.
package upcall

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/fs"
)

// Op enumerates the upcall operations.
type Op int

const (
	OpGetAttr Op = iota
	OpReadDir
	OpMknod
	OpMkdir
	OpUnlink
	OpRmdir
	OpRead
	OpWrite
	OpTruncate
	OpChmod
	OpChown
	OpUtimens
	OpSymlink
	OpReadlink
	OpLink
	OpStatfs
	OpAccess
)

// Request is one upcall. Path is always absolute; the payload fields
// used depend on Op.
type Request struct {
	Op     Op
	Path   string
	Caller fs.Caller

	// Payload, per operation.
	Mode   uint16 // mknod, mkdir, chmod, access mask
	Data   []byte // write
	Size   int64  // read length, truncate size
	Offset int64  // read, write
	Uid    uint32 // chown
	Gid    uint32 // chown
	Target string // symlink target, link oldpath
	Times  *fs.Utimes
}

// Response carries the result. Errno is 0 on success and a POSIX errno
// otherwise; the payload fields mirror the operation.
type Response struct {
	Errno   int
	Stat    *common.StatInfo
	Statfs  *common.StatfsInfo
	Entries []common.Dirent
	Data    []byte
	Count   int
	Target  string
}

// Errno maps the filesystem error values onto POSIX numbers.
func Errno(err error) int {
	switch err {
	case nil:
		return 0
	case common.EPERM:
		return 1
	case common.ENOENT:
		return 2
	case common.EIO:
		return 5
	case common.EACCES:
		return 13
	case common.EEXIST:
		return 17
	case common.ENOTDIR:
		return 20
	case common.EISDIR:
		return 21
	case common.EINVAL:
		return 22
	case common.EFBIG:
		return 27
	case common.ENOSPC:
		return 28
	case common.EMLINK:
		return 31
	case common.ENAMETOOLONG:
		return 36
	case common.ENOTEMPTY:
		return 39
	case common.ELOOP:
		return 40
	case common.ENOMEM:
		return 12
	default:
		return 5
	}
}

// Transport is the bridge half the serve loop consumes. Recv blocks for
// the next request and returns io.EOF when the bridge terminates.
type Transport interface {
	Recv() (*Request, error)
	Send(*Response) error
}

// Dispatch runs one request against the filesystem.
func Dispatch(fsys *fs.FileSystem, req *Request) *Response {
	caller := &req.Caller
	res := new(Response)

	switch req.Op {
	case OpGetAttr:
		st, err := fsys.GetAttr(caller, req.Path)
		res.Errno = Errno(err)
		res.Stat = st
	case OpReadDir:
		entries, err := fsys.ReadDir(caller, req.Path)
		res.Errno = Errno(err)
		res.Entries = entries
	case OpMknod:
		res.Errno = Errno(fsys.Mknod(caller, req.Path, req.Mode))
	case OpMkdir:
		res.Errno = Errno(fsys.Mkdir(caller, req.Path, req.Mode))
	case OpUnlink:
		res.Errno = Errno(fsys.Unlink(caller, req.Path))
	case OpRmdir:
		res.Errno = Errno(fsys.Rmdir(caller, req.Path))
	case OpRead:
		buf := make([]byte, req.Size)
		n, err := fsys.Read(caller, req.Path, buf, req.Offset)
		res.Errno = Errno(err)
		res.Data = buf[:n]
		res.Count = n
	case OpWrite:
		n, err := fsys.Write(caller, req.Path, req.Data, req.Offset)
		res.Errno = Errno(err)
		res.Count = n
	case OpTruncate:
		res.Errno = Errno(fsys.Truncate(caller, req.Path, req.Size))
	case OpChmod:
		res.Errno = Errno(fsys.Chmod(caller, req.Path, req.Mode))
	case OpChown:
		res.Errno = Errno(fsys.Chown(caller, req.Path, req.Uid, req.Gid))
	case OpUtimens:
		res.Errno = Errno(fsys.Utimens(caller, req.Path, req.Times))
	case OpSymlink:
		res.Errno = Errno(fsys.Symlink(caller, req.Target, req.Path))
	case OpReadlink:
		target, err := fsys.Readlink(caller, req.Path)
		res.Errno = Errno(err)
		res.Target = target
	case OpLink:
		res.Errno = Errno(fsys.Link(caller, req.Target, req.Path))
	case OpStatfs:
		res.Statfs = fsys.Statfs()
	case OpAccess:
		res.Errno = Errno(fsys.Access(caller, req.Path, req.Mode))
	default:
		res.Errno = Errno(common.EINVAL)
	}
	return res
}

// Serve pumps requests from the transport into the filesystem until the
// bridge terminates. Transport errors other than EOF are returned.
func Serve(fsys *fs.FileSystem, tr Transport) error {
	for {
		req, err := tr.Recv()
		if err == io.EOF {
			log.Info("upcall bridge terminated")
			return nil
		}
		if err != nil {
			return err
		}
		if err := tr.Send(Dispatch(fsys, req)); err != nil {
			return err
		}
	}
}
