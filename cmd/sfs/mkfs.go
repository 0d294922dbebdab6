package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"

	"github.com/Momoko-Ayase/SimpleFS/mkfs"
)

type mkfsCmd struct {
	config string
}

func (*mkfsCmd) Name() string     { return "mkfs" }
func (*mkfsCmd) Synopsis() string { return "write an empty filesystem onto a device" }
func (*mkfsCmd) Usage() string {
	return `mkfs <device> [num_blocks]:
  Format a device or image file. A missing or empty regular file is
  created with num_blocks blocks; a block device is probed and
  num_blocks is ignored.
`
}

func (c *mkfsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "sfs.toml", "tunables file")
}

func (c *mkfsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	var numBlocks uint64
	if f.NArg() == 2 {
		var err error
		numBlocks, err = strconv.ParseUint(f.Arg(1), 10, 32)
		if err != nil || numBlocks == 0 {
			fmt.Fprintf(os.Stderr, "invalid block count %q\n", f.Arg(1))
			return subcommands.ExitUsageError
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err == nil && !locked {
		fmt.Fprintf(os.Stderr, "%s is locked by another process\n", path)
		return subcommands.ExitFailure
	}
	if locked {
		defer lock.Unlock()
	}

	opts := loadTunables(c.config).formatOptions()
	if err := mkfs.Format(path, uint32(numBlocks), opts); err != nil {
		fmt.Fprintf(os.Stderr, "mkfs %s: %s\n", path, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
