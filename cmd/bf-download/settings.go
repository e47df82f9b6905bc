package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/internal/boltdb"
	"github.com/alanbriolat/audio-archiver/internal/config"
)

// settings is the config file overlaid with whatever was given on the command line.
type settings struct {
	User         string
	Password     string
	BaseURL      string
	TargetDir    string
	Preferred    catalog.FormatTag
	Database     string
	RateLimit    float64
	Burst        int
	ProbeTimeout time.Duration
	DryRun       bool
	Strict       bool
	CatalogFile  string
	LibraryHTML  string
	SaveHTML     string
	LogFile      string
	Verbose      bool
}

func loadSettings(c *cli.Context) (*settings, error) {
	configPath := ""
	if ctx, ok := lookup(c, "config"); ok {
		configPath = ctx.String("config")
	}
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	preferred, err := catalog.ParseFormatTag(cfg.Download.Prefer)
	if err != nil {
		return nil, err
	}
	s := &settings{
		User:         cfg.Account.User,
		Password:     cfg.Account.Password,
		BaseURL:      cfg.Account.BaseURL,
		TargetDir:    cfg.Paths.TargetDir,
		Preferred:    preferred,
		Database:     cfg.Download.Database,
		RateLimit:    cfg.Download.RateLimit,
		Burst:        cfg.Download.Burst,
		ProbeTimeout: time.Duration(cfg.Download.ProbeTimeoutSeconds) * time.Second,
		Strict:       cfg.Download.Strict,
		LogFile:      cfg.Paths.LogFile,
	}

	overrideString(c, "user", &s.User)
	overrideString(c, "password", &s.Password)
	overrideString(c, "base-url", &s.BaseURL)
	overrideString(c, "target", &s.TargetDir)
	overrideString(c, "database", &s.Database)
	overrideString(c, "catalog-file", &s.CatalogFile)
	overrideString(c, "library-html", &s.LibraryHTML)
	overrideString(c, "save-html", &s.SaveHTML)
	overrideString(c, "log-file", &s.LogFile)
	if ctx, ok := lookup(c, "rate-limit"); ok {
		s.RateLimit = ctx.Float64("rate-limit")
	}
	if ctx, ok := lookup(c, "probe-timeout"); ok {
		s.ProbeTimeout = ctx.Duration("probe-timeout")
	}
	if ctx, ok := lookup(c, "strict"); ok {
		s.Strict = ctx.Bool("strict")
	}
	s.DryRun = flagBool(c, "dry-run")
	s.Verbose = flagBool(c, "verbose")

	switch {
	case flagBool(c, "prefer-mp3") && flagBool(c, "prefer-audiobook"):
		return nil, fmt.Errorf("--prefer-mp3 and --prefer-audiobook are mutually exclusive")
	case flagBool(c, "prefer-mp3"):
		s.Preferred = catalog.FormatMP3
	case flagBool(c, "prefer-audiobook"):
		s.Preferred = catalog.FormatAudiobook
	}

	// Positional arguments follow the old calling convention: [USER PASSWORD] DIR.
	switch args := c.Args().Slice(); len(args) {
	case 0:
	case 1:
		s.TargetDir = args[0]
	case 3:
		s.User, s.Password, s.TargetDir = args[0], args[1], args[2]
	default:
		return nil, fmt.Errorf("expected [USER PASSWORD] DIR, got %d arguments", len(args))
	}
	if s.TargetDir, err = config.ExpandPath(s.TargetDir); err != nil {
		return nil, err
	}
	if s.ProbeTimeout <= 0 {
		return nil, fmt.Errorf("probe timeout must be positive")
	}
	if s.Database != "json" && s.Database != "bolt" {
		return nil, fmt.Errorf("unknown database %q, expected json or bolt", s.Database)
	}
	return s, nil
}

// lookup finds the context a flag was given in. Every flag is accepted both before and after the command name, and
// urfave/cli only reads the innermost definition.
func lookup(c *cli.Context, name string) (*cli.Context, bool) {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx, true
		}
	}
	return c, false
}

func overrideString(c *cli.Context, name string, target *string) {
	if ctx, ok := lookup(c, name); ok {
		*target = ctx.String(name)
	}
}

func flagBool(c *cli.Context, name string) bool {
	ctx, ok := lookup(c, name)
	return ok && ctx.Bool(name)
}

// openDatabase returns the catalog record in the target directory, and a function to close it.
func (s *settings) openDatabase() (catalog.Database, func(), error) {
	switch s.Database {
	case "bolt":
		path := filepath.Join(s.TargetDir, boltdb.DefaultFilename)
		open := boltdb.New
		if s.DryRun {
			// A dry run writes nothing, not even a new or upgraded database file.
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return catalog.NilDatabase{}, func() {}, nil
			}
			open = boltdb.OpenReadOnly
		} else if err := os.MkdirAll(s.TargetDir, 0755); err != nil {
			return nil, nil, err
		}
		db, err := open(path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return catalog.NewFileDatabase(filepath.Join(s.TargetDir, catalog.DefaultFilename)), func() {}, nil
	}
}
