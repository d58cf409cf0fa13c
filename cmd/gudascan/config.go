package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/LynnColeArt/gudascan/scan"
)

// Config represents the gudascan configuration file (~/.config/gudascan/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	Platform      string `yaml:"platform"`
	Device        string `yaml:"device"`
	GroupSize     *int64 `yaml:"group_size"`
	NumGroups     *int64 `yaml:"num_groups"`
	LockstepWidth *int64 `yaml:"lockstep_width"`
	TileDim       *int64 `yaml:"tile_dim"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gudascan", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config; a missing or
// malformed explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrap(err, "reading config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to the flag variables when the
// corresponding flag was not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.Platform != "" && !c.IsSet("platform") {
		platformName = cfg.Platform
	}
	if cfg.Device != "" && !c.IsSet("device") {
		deviceName = cfg.Device
	}
	if cfg.GroupSize != nil && !c.IsSet("group-size") {
		groupSize = *cfg.GroupSize
	}
	if cfg.NumGroups != nil && !c.IsSet("num-groups") {
		numGroups = *cfg.NumGroups
	}
	if cfg.LockstepWidth != nil && !c.IsSet("lockstep-width") {
		lockstepWidth = *cfg.LockstepWidth
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// scanConfig builds the engine tunables from the flags and the config file.
func scanConfig(cfg Config) scan.Config {
	sc := scan.DefaultConfig()
	sc.GroupSize = int(groupSize)
	sc.NumGroups = int(numGroups)
	sc.LockstepWidth = int(lockstepWidth)
	if cfg.TileDim != nil {
		sc.TileDim = int(*cfg.TileDim)
	}
	return sc
}
