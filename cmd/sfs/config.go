package main

import (
	"os"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/Momoko-Ayase/SimpleFS/mkfs"
)

// tunables are the optional settings read from an sfs.toml next to the
// binary's working directory. Absent file or fields fall back to the
// compiled defaults.
type tunables struct {
	BlocksPerGroup uint32 `toml:"blocks_per_group"`
	InodesPerGroup uint32 `toml:"inodes_per_group"`
	LogLevel       string `toml:"log_level"`
}

func loadTunables(path string) tunables {
	var t tunables
	if _, err := os.Stat(path); err != nil {
		return t
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		log.Warnf("ignoring %s: %v", path, err)
		return tunables{}
	}
	if t.LogLevel != "" {
		if level, err := log.ParseLevel(t.LogLevel); err == nil {
			log.SetLevel(level)
		}
	}
	return t
}

func (t tunables) formatOptions() mkfs.Options {
	opts := mkfs.DefaultOptions()
	if t.BlocksPerGroup != 0 {
		opts.BlocksPerGroup = t.BlocksPerGroup
	}
	if t.InodesPerGroup != 0 {
		opts.InodesPerGroup = t.InodesPerGroup
	}
	return opts
}
