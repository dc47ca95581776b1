// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Client  ClientConfig  `toml:"client"`
	View    ViewConfig    `toml:"view"`
	History HistoryConfig `toml:"history"`
}

// ClientConfig maps request settings.
type ClientConfig struct {
	URL           *string `toml:"url"`
	Mode          *string `toml:"mode"`
	Timeout       *string `toml:"timeout"`
	AllowComments *bool   `toml:"allow-comments"`
}

// ViewConfig maps form display settings.
type ViewConfig struct {
	KeepStale *bool    `toml:"keep-stale"`
	Fields    []string `toml:"fields"`
}

// HistoryConfig maps submission log settings.
type HistoryConfig struct {
	Enabled *bool `toml:"enabled"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
