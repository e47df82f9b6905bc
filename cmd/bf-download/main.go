package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	audio_archiver "github.com/alanbriolat/audio-archiver"
	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/internal/httpx"
	"github.com/alanbriolat/audio-archiver/internal/logging"
	"github.com/alanbriolat/audio-archiver/source"
	"github.com/alanbriolat/audio-archiver/source/bigfinish"
	"github.com/alanbriolat/audio-archiver/source/fixture"
)

// errStrict is returned when --strict turns per-title failures into a failed run.
var errStrict = errors.New("some titles failed")

func main() {
	// Credentials may live in a .env file rather than on the command line.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:      "bf-download",
		Usage:     "download everything in a Big Finish library, skipping what is already there",
		ArgsUsage: "[USER PASSWORD] DIR",
		Flags:     flags(),
		Action:    runSync,
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "reconcile the library with DIR and download anything missing",
				ArgsUsage: "[USER PASSWORD] DIR",
				Flags:     flags(),
				Action:    runSync,
			},
			{
				Name:      "status",
				Usage:     "list stored titles and whether their files are present, without going online",
				ArgsUsage: "DIR",
				Flags:     flags(),
				Action:    runStatus,
			},
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

// setupLogging installs the global logger for one command, returning a function that flushes and removes it.
func setupLogging(s *settings) (func(), error) {
	logger, err := logging.New(logging.Options{Verbose: s.Verbose, File: s.LogFile})
	if err != nil {
		return nil, err
	}
	return logging.Install(logger), nil
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "read defaults from TOML `FILE`"},
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{"BF_USER"}, Usage: "account email address"},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"BF_PASSWORD"}, Usage: "account password"},
		&cli.StringFlag{Name: "base-url", Usage: "website to log in to"},
		&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "save downloads into `DIR`"},
		&cli.BoolFlag{Name: "prefer-mp3", Usage: "download the MP3 version where there is a choice"},
		&cli.BoolFlag{Name: "prefer-audiobook", Usage: "download the audiobook version where there is a choice"},
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "show what would be downloaded, using only cached filenames"},
		&cli.BoolFlag{Name: "strict", Usage: "exit non-zero if any title fails"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		&cli.StringFlag{Name: "database", Usage: "catalog record format: json or bolt"},
		&cli.StringFlag{Name: "catalog-file", Usage: "read the catalog from a JSON `FILE` instead of the website"},
		&cli.StringFlag{Name: "library-html", Usage: "read the catalog from a saved library page `FILE` instead of logging in"},
		&cli.StringFlag{Name: "save-html", Usage: "save the fetched library page to `FILE`"},
		&cli.Float64Flag{Name: "rate-limit", Usage: "maximum requests per second (0 for unlimited)"},
		&cli.DurationFlag{Name: "probe-timeout", Usage: "time limit for each filename lookup"},
		&cli.StringFlag{Name: "log-file", Usage: "also write a JSON log to `FILE`"},
	}
}

func runSync(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	restoreLogging, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer restoreLogging()
	log := zap.S()
	log.Infow("starting", "target", s.TargetDir, "prefer", s.Preferred, "dry_run", s.DryRun)

	client, err := httpx.NewClient(httpx.Options{
		RequestsPerSecond: s.RateLimit,
		Burst:             s.Burst,
		UserAgent:         httpx.DefaultUserAgent,
	})
	if err != nil {
		return err
	}
	src, err := s.source(client)
	if err != nil {
		return err
	}
	db, closeDB, err := s.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	opts := audio_archiver.DefaultOptions()
	opts.TargetDir = s.TargetDir
	opts.Preferred = s.Preferred
	opts.DryRun = s.DryRun
	opts.ProbeTimeout = s.ProbeTimeout
	opts.Progress = newProgress()

	ctx := audio_archiver.WithLogger(c.Context, zap.L())
	report, err := audio_archiver.NewPipeline(src, db, client, opts).Run(ctx)
	if report != nil {
		summarize(log, report)
	}
	if err != nil {
		return err
	}
	if s.Strict && report.Err() != nil {
		return errStrict
	}
	return nil
}

// source picks where the catalog comes from: a fixture file, a saved page, or the website.
func (s *settings) source(client *http.Client) (source.Source, error) {
	switch {
	case s.CatalogFile != "":
		return fixture.New(s.CatalogFile), nil
	case s.LibraryHTML != "":
		return bigfinish.NewFileSource(s.LibraryHTML, s.BaseURL)
	default:
		src, err := bigfinish.New(client, s.BaseURL, s.User, s.Password)
		if err != nil {
			return nil, err
		}
		return src.WithSaveHTML(s.SaveHTML), nil
	}
}

func summarize(log *zap.SugaredLogger, report *audio_archiver.Report) {
	log.Infow("run finished",
		"titles", report.Titles,
		"complete", report.Count(audio_archiver.FetchStatusComplete),
		"skipped", report.Count(audio_archiver.FetchStatusSkipped),
		"dry_run", report.Count(audio_archiver.FetchStatusDryRun),
		"failed", len(audio_archiver.TitleErrors(report.Err())),
		"transferred", humanize.IBytes(uint64(report.BytesFetched())),
	)
}

func runStatus(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	restoreLogging, err := setupLogging(s)
	if err != nil {
		return err
	}
	defer restoreLogging()
	// Status never writes, so treat it like a dry run when opening the record.
	s.DryRun = true
	db, closeDB, err := s.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()
	store, err := catalog.Load(db)
	if err != nil {
		return err
	}

	out := c.App.Writer
	missing := 0
	for _, status := range audio_archiver.Status(store, s.TargetDir, s.Preferred) {
		switch {
		case status.Err != nil:
			fmt.Fprintf(out, "!  %s: %v\n", status.Title, status.Err)
		case status.Present:
			fmt.Fprintf(out, "ok %s [%s] %s\n", status.Title, status.Format, status.Filename.UnwrapOr(""))
		default:
			missing++
			fmt.Fprintf(out, "-  %s [%s] %s\n", status.Title, status.Format, status.Filename.UnwrapOr("(filename unknown)"))
		}
	}
	fmt.Fprintf(out, "%d titles, %d missing\n", store.Len(), missing)
	return nil
}
