// Package config loads the optional TOML file that supplies defaults for the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "~/.config/bf-download/config.toml"

type Account struct {
	User     string `toml:"user"`
	Password string `toml:"password"`
	BaseURL  string `toml:"base_url"`
}

type Paths struct {
	TargetDir string `toml:"target_dir"`
	LogFile   string `toml:"log_file"`
}

type Download struct {
	// Prefer is the format tried first for each title.
	Prefer   string `toml:"prefer"`
	Database string `toml:"database"`
	// RateLimit is in requests per second; zero disables limiting.
	RateLimit           float64 `toml:"rate_limit"`
	Burst               int     `toml:"burst"`
	ProbeTimeoutSeconds int     `toml:"probe_timeout_seconds"`
	Strict              bool    `toml:"strict"`
}

type Config struct {
	Account  Account  `toml:"account"`
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
}

func Default() Config {
	return Config{
		Account: Account{
			BaseURL: "https://www.bigfinish.com",
		},
		Paths: Paths{
			TargetDir: ".",
		},
		Download: Download{
			Prefer:              "mp3",
			Database:            "json",
			RateLimit:           2,
			Burst:               1,
			ProbeTimeoutSeconds: 30,
		},
	}
}

// Load reads the config file at path, or DefaultPath if path is empty, over the top of Default. A file that does not
// exist is not an error; the returned bool reports whether one was read.
func Load(path string) (*Config, bool, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, false, err
	}

	exists := true
	file, err := os.Open(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		exists = false
	} else if err != nil {
		return nil, false, fmt.Errorf("open config: %w", err)
	} else {
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

func (c *Config) normalize() error {
	var err error
	c.Account.User = strings.TrimSpace(c.Account.User)
	c.Account.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Account.BaseURL), "/")
	if c.Paths.TargetDir, err = ExpandPath(c.Paths.TargetDir); err != nil {
		return fmt.Errorf("paths.target_dir: %w", err)
	}
	if c.Paths.LogFile, err = ExpandPath(c.Paths.LogFile); err != nil {
		return fmt.Errorf("paths.log_file: %w", err)
	}
	c.Download.Prefer = strings.ToLower(strings.TrimSpace(c.Download.Prefer))
	c.Download.Database = strings.ToLower(strings.TrimSpace(c.Download.Database))
	return nil
}

func (c *Config) Validate() error {
	switch c.Download.Prefer {
	case "mp3", "audiobook":
	default:
		return fmt.Errorf("download.prefer: unknown format %q", c.Download.Prefer)
	}
	switch c.Download.Database {
	case "json", "bolt":
	default:
		return fmt.Errorf("download.database: must be \"json\" or \"bolt\", got %q", c.Download.Database)
	}
	if c.Download.RateLimit < 0 {
		return fmt.Errorf("download.rate_limit: must not be negative")
	}
	if c.Download.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("download.probe_timeout_seconds: must be positive")
	}
	return nil
}

// ExpandPath resolves a leading "~" and makes the path absolute. The empty string is returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
