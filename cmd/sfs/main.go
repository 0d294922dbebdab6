// The sfs binary bundles the filesystem front-ends: format a device,
// mount it against an upcall bridge, and audit it read-only.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(mkfsCmd), "")
	subcommands.Register(new(mountCmd), "")
	subcommands.Register(new(fsckCmd), "")

	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: false})

	os.Exit(int(subcommands.Execute(context.Background())))
}
