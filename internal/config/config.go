// Package config loads the demo binary's bootstrap file. None of this is part of the tracker
// client's public contract — the library itself takes no configuration (SPEC_FULL.md §4.10).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// --------------------------------------------------------------------------------------------- //

/*
Config is the demo binary's bootstrap file: which trackers to register demo torrents against, and
how to expose the optional status API.
*/
type Config struct {
	Listen     string   `toml:"listen"`
	Trackers   []string `toml:"trackers"`
	Trace      bool     `toml:"trace"`
	StatusAddr string   `toml:"status_addr"`
}

// Default returns the configuration the demo binary falls back to when no file is given.
func Default() Config {
	return Config{
		Listen: ":0",
		Trackers: []string{
			"udp://tracker.opentrackr.org:1337",
			"udp://open.tracker.cl:1337",
		},
		Trace:      true,
		StatusAddr: "127.0.0.1:7070",
	}
}

/*
Load reads and parses the TOML file at path.
*/
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return cfg, nil
}
