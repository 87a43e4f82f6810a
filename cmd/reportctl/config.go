package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional TOML file holding the defaults of the persistent flags.
type fileConfig struct {
	Server   *string `toml:"server"`
	Token    *string `toml:"token"`
	Out      *string `toml:"out"`
	LogLevel *string `toml:"log-level"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/coachreports/reportctl.toml.
func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return filepath.Join(".", "reportctl.toml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "coachreports", "reportctl.toml")
}

// loadConfig reads the config file at path. A missing file is not an error.
func loadConfig(path string) (fileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("stat config: %w", err)
	}
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}
