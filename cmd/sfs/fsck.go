package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/fsck"
)

type fsckCmd struct {
	verbose bool
}

func (*fsckCmd) Name() string     { return "fsck" }
func (*fsckCmd) Synopsis() string { return "audit free counts against the bitmaps" }
func (*fsckCmd) Usage() string {
	return `fsck [-v] <device>:
  Recompute the per-group free counts from the bitmaps and report every
  mismatch with the descriptors and the superblock. Read-only.
`
}

func (c *fsckCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "also dump the superblock")
}

func (c *fsckCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	dev, err := device.NewFileDevice(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %s\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	defer dev.Close()

	mismatches, err := fsck.Check(dev, os.Stdout, c.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fsck %s: %s\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	fmt.Printf("fsck complete, %d mismatches\n", mismatches)
	return subcommands.ExitSuccess
}
