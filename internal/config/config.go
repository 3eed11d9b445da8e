// Package config loads the JSON (with comments) configuration file and the
// process environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"muzzammil.xyz/jsonc"
)

// DefaultRecencyWindow bounds how far back a channel feed is considered.
const DefaultRecencyWindow = 7 * 24 * time.Hour

// Duration is a time.Duration written as a Go duration string ("20m").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"20m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Timers struct {
	Subscriptions Duration `json:"subscriptions"`
	Videos        Duration `json:"videos"`
}

type Kickoff struct {
	Subscriptions bool `json:"subscriptions"`
	Videos        bool `json:"videos"`
}

type Logging struct {
	Level         string `json:"level"`
	Format        string `json:"format,omitempty"`
	NotifyOnError bool   `json:"notifyOnError"`
}

type Config struct {
	Timers                Timers   `json:"timers"`
	Kickoff               Kickoff  `json:"kickoff"`
	Logging               Logging  `json:"logging"`
	RecencyWindow         Duration `json:"recencyWindow,omitempty"`
	WhitelistedChannelIDs []string `json:"whitelistedChannelIds"`
	BlacklistedChannelIDs []string `json:"blacklistedChannelIds"`
}

var _ json.Unmarshaler = (*Config)(nil)

func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if c.Timers.Subscriptions <= 0 {
		return errors.New("timers.subscriptions is required")
	}
	if c.Timers.Videos <= 0 {
		return errors.New("timers.videos is required")
	}
	if c.RecencyWindow < 0 {
		return errors.New("recencyWindow must not be negative")
	}

	return nil
}

// Window returns the recency window, falling back to DefaultRecencyWindow.
func (c Config) Window() time.Duration {
	if c.RecencyWindow == 0 {
		return DefaultRecencyWindow
	}
	return time.Duration(c.RecencyWindow)
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := jsonc.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as tab-indented JSON, replacing the file
// atomically.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
