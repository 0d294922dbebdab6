package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/device"
	"github.com/Momoko-Ayase/SimpleFS/fs"
	"github.com/Momoko-Ayase/SimpleFS/upcall"
)

type mountCmd struct {
	config string
}

func (*mountCmd) Name() string     { return "mount" }
func (*mountCmd) Synopsis() string { return "mount a device and service upcalls" }
func (*mountCmd) Usage() string {
	return `mount <device> <mountpoint> [options...]:
  Mount the filesystem on a device. Upcall requests arrive from the
  kernel bridge on stdin; responses go to stdout. The loop exits when
  the bridge terminates.
`
}

func (c *mountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "sfs.toml", "tunables file")
}

func (c *mountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	devpath := f.Arg(0)
	mountpoint := f.Arg(1)
	loadTunables(c.config)

	// One owner per device; the lock lives for the whole mount.
	lock := flock.New(devpath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lock %s: %s\n", devpath, err)
		return subcommands.ExitFailure
	}
	if !locked {
		fmt.Fprintf(os.Stderr, "%s is already mounted by another process\n", devpath)
		return subcommands.ExitFailure
	}
	defer lock.Unlock()

	dev, err := device.NewFileDevice(devpath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %s\n", devpath, err)
		return subcommands.ExitFailure
	}

	fsys, err := fs.NewFileSystem(dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mount %s: %s\n", devpath, err)
		dev.Close()
		return subcommands.ExitFailure
	}
	log.WithFields(log.Fields{"device": devpath, "mountpoint": mountpoint}).Info("serving upcalls")

	serveErr := upcall.Serve(fsys, upcall.NewStreamTransport(os.Stdin, os.Stdout))
	if err := fsys.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "unmount %s: %s\n", devpath, err)
		return subcommands.ExitFailure
	}
	if serveErr != nil {
		fmt.Fprintf(os.Stderr, "upcall loop: %s\n", serveErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
