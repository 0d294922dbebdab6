// Package fs implements the operation layer of the filesystem: path
// resolution, the inode block map, the directory record engine, the
// permission policy, and the per-operation composition of all of them.
//
// A FileSystem services one device. Operations are serialized by a single
// mutex; the on-disk state is only ever mutated by the operation that
// holds it.
package fs

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/alloctbl"
	"github.com/Momoko-Ayase/SimpleFS/common"
	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/inode"
	"github.com/Momoko-Ayase/SimpleFS/layout"
)

// Caller is the identity delivered with every upcall request.
type Caller struct {
	Uid    uint32
	Gid    uint32
	Groups []uint32
}

// Root is the superuser identity (uid 0, gid 0).
var Root = &Caller{Uid: 0, Gid: 0}

type FileSystem struct {
	m sync.Mutex

	dev   device.BlockDevice
	l     *layout.Layout
	alloc *alloctbl.AllocTbl
}

// NewFileSystem mounts the filesystem on an open device: the superblock
// and GDT are read and validated, and the mount is recorded.
func NewFileSystem(dev device.BlockDevice) (*FileSystem, error) {
	l, err := layout.Read(dev)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{dev: dev, l: l, alloc: alloctbl.NewAllocTbl(dev, l)}

	fs.l.Super.MntCount++
	fs.l.Super.Mtime = now()
	if err := fs.l.Flush(dev); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"blocks":      l.Super.BlocksCount,
		"free_blocks": l.Super.FreeBlocksCount,
		"free_inodes": l.Super.FreeInodesCount,
	}).Info("filesystem mounted")

	return fs, nil
}

// Close flushes the metadata and releases the device.
func (fs *FileSystem) Close() error {
	fs.m.Lock()
	defer fs.m.Unlock()

	fs.l.Super.Wtime = now()
	if err := fs.l.Flush(fs.dev); err != nil {
		fs.dev.Close()
		return err
	}
	return fs.dev.Close()
}

// Layout exposes the mounted geometry to the front-ends.
func (fs *FileSystem) Layout() *layout.Layout {
	return fs.l
}

func now() uint32 {
	return uint32(time.Now().Unix())
}

// readInode and writeInode are the package-local shorthands for inode I/O
// on the mounted device.
func (fs *FileSystem) readInode(inum uint32) (*common.Inode, error) {
	return inode.ReadInode(fs.dev, fs.l, inum)
}

func (fs *FileSystem) writeInode(inum uint32, rip *common.Inode) error {
	return inode.WriteInode(fs.dev, fs.l, inum, rip)
}

// flushMeta pushes the superblock and GDT, with backups, at the end of a
// mutating operation.
func (fs *FileSystem) flushMeta() error {
	return fs.l.Flush(fs.dev)
}
