package device

import (
	"os"

	"github.com/Momoko-Ayase/SimpleFS/common"
)

// BlockDevice is a fixed-size block store. Reads and writes always move
// whole blocks; buf is exactly common.BLOCK_SIZE bytes.
type BlockDevice interface {
	ReadBlock(blocknum uint32, buf []byte) error
	WriteBlock(blocknum uint32, buf []byte) error
	Blocks() uint32 // device capacity in blocks
	Close() error
}

// fileDevice is a block device backed by a regular file or a raw block
// device node.
type fileDevice struct {
	file   *os.File
	blocks uint32
}

// NewFileDevice opens filename read/write as a block device. The capacity
// is probed from the file size, or via ioctl for block device nodes.
func NewFileDevice(filename string) (BlockDevice, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	size, err := probeSize(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &fileDevice{file, uint32(size / common.BLOCK_SIZE)}, nil
}

func (dev *fileDevice) ReadBlock(blocknum uint32, buf []byte) error {
	n, err := dev.file.ReadAt(buf[:common.BLOCK_SIZE], int64(blocknum)*common.BLOCK_SIZE)
	if err != nil {
		return err
	}
	if n < common.BLOCK_SIZE {
		return common.EIO
	}
	return nil
}

func (dev *fileDevice) WriteBlock(blocknum uint32, buf []byte) error {
	n, err := dev.file.WriteAt(buf[:common.BLOCK_SIZE], int64(blocknum)*common.BLOCK_SIZE)
	if err != nil {
		return err
	}
	if n < common.BLOCK_SIZE {
		return common.EIO
	}
	return nil
}

func (dev *fileDevice) Blocks() uint32 {
	return dev.blocks
}

func (dev *fileDevice) Close() error {
	return dev.file.Close()
}

// ramDevice is an in-memory block device, used by the test suites.
type ramDevice struct {
	data []byte
}

// NewRamDevice creates a memory-backed device of the given block count.
func NewRamDevice(blocks uint32) BlockDevice {
	return &ramDevice{make([]byte, int64(blocks)*common.BLOCK_SIZE)}
}

func (dev *ramDevice) ReadBlock(blocknum uint32, buf []byte) error {
	off := int64(blocknum) * common.BLOCK_SIZE
	if off+common.BLOCK_SIZE > int64(len(dev.data)) {
		return common.EIO
	}
	copy(buf[:common.BLOCK_SIZE], dev.data[off:])
	return nil
}

func (dev *ramDevice) WriteBlock(blocknum uint32, buf []byte) error {
	off := int64(blocknum) * common.BLOCK_SIZE
	if off+common.BLOCK_SIZE > int64(len(dev.data)) {
		return common.EIO
	}
	copy(dev.data[off:], buf[:common.BLOCK_SIZE])
	return nil
}

func (dev *ramDevice) Blocks() uint32 {
	return uint32(int64(len(dev.data)) / common.BLOCK_SIZE)
}

func (dev *ramDevice) Close() error {
	return nil
}

// WriteZeroBlocks writes count zero-filled blocks starting at start.
func WriteZeroBlocks(dev BlockDevice, start, count uint32) error {
	zero := make([]byte, common.BLOCK_SIZE)
	for i := uint32(0); i < count; i++ {
		if err := dev.WriteBlock(start+i, zero); err != nil {
			return err
		}
	}
	return nil
}
