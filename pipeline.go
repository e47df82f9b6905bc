package audio_archiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/source"
)

// ErrLocked means another run holds the target directory.
var ErrLocked = errors.New("target directory is locked by another run")

// A Report summarises one run. Errors holds the per-title failures; it does not include fatal errors, which Run
// returns directly.
type Report struct {
	RunID     string
	Merge     catalog.MergeReport
	Titles    int
	Results   []FetchResult
	Extracted map[string]ExtractResult
	Errors    *multierror.Error
}

// Count returns how many fetches ended with status.
func (r *Report) Count(status FetchStatus) int {
	n := 0
	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}
	return n
}

// BytesFetched is the total size of files completed during the run.
func (r *Report) BytesFetched() int64 {
	var total int64
	for _, result := range r.Results {
		if result.Status == FetchStatusComplete {
			total += result.Bytes
		}
	}
	return total
}

// Err returns the batch of per-title errors, or nil if every title succeeded.
func (r *Report) Err() error {
	return r.Errors.ErrorOrNil()
}

func (r *Report) addError(err error) {
	r.Errors = multierror.Append(r.Errors, err)
}

// A Pipeline reconciles one catalog source against one target directory. The HTTP client must be the same handle the
// source authenticated, since download URLs rely on its session.
type Pipeline struct {
	source source.Source
	db     catalog.Database
	client *http.Client
	opts   Options
}

func NewPipeline(src source.Source, db catalog.Database, client *http.Client, opts Options) *Pipeline {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.TargetDir == "" {
		opts.TargetDir = "."
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &Pipeline{source: src, db: db, client: client, opts: opts}
}

// Run reads the catalog, merges it into the store, resolves filenames, persists the store, then fetches and
// normalizes every title in title order. It returns an error only for faults that stop the whole run: no catalog,
// a store that cannot be read or written, a held lock, or cancellation. Everything else lands in Report.Errors.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Extracted: map[string]ExtractResult{}}
	logger := Logger(ctx).With(zap.String("run", report.RunID))
	ctx = WithLogger(ctx, logger)
	log := logger.Named("pipeline").Sugar()

	unlock, err := p.lock()
	if err != nil {
		return report, err
	}
	defer unlock()

	fetcher, err := NewFetcherBuilder().
		WithClient(p.client).
		WithDryRun(p.opts.DryRun).
		WithProgressCallback(p.opts.Progress).
		WithTargetDir(p.opts.TargetDir).
		Build()
	if err != nil {
		return report, err
	}
	if !p.opts.DryRun {
		if removed, err := fetcher.RemoveStalePartials(); err != nil {
			log.Warnw("failed to remove stale partial files", "error", err)
		} else if len(removed) > 0 {
			log.Infow("removed stale partial files", "files", removed)
		}
	}

	items, err := p.source.Catalog(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		return report, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	log.Infow("catalog read", "items", len(items))

	store, err := catalog.Load(p.db)
	if err != nil {
		return report, err
	}
	report.Merge = store.Merge(items)
	report.Titles = store.Len()
	log.Infow("catalog merged", "titles", report.Titles, "added", report.Merge.Added, "updated", report.Merge.Updated)

	resolver := NewResolver(p.client).WithTimeout(p.opts.ProbeTimeout).WithOffline(p.opts.DryRun)
	tasks, err := resolver.ResolveAll(ctx, store, p.opts.Preferred)
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	if err != nil {
		report.addError(err)
	}

	if p.opts.DryRun {
		log.Info("dry run, not saving catalog")
	} else if err := store.Persist(); err != nil {
		return report, err
	}

	normalizer := NewNormalizer(p.opts.TargetDir)
	for _, task := range tasks {
		result, err := fetcher.Fetch(ctx, task)
		report.Results = append(report.Results, result)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err != nil {
			log.Warnw("fetch failed", "title", task.Title, "error", err)
			report.addError(titleError(task.Title, ErrTransferFailed, err))
			continue
		}
		if p.opts.DryRun || !result.Status.HasFile() || !IsArchiveName(task.Filename) {
			continue
		}
		extracted, err := normalizer.Normalize(ctx, task.Title, result.Path)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err != nil {
			log.Warnw("extraction failed", "title", task.Title, "error", err)
			report.addError(titleError(task.Title, ErrExtractionFailed, err))
			continue
		}
		report.Extracted[task.Title] = extracted
	}

	for _, te := range TitleErrors(report.Err()) {
		log.Warnw("title failed", "title", te.Title, "kind", te.Kind(), "error", te.Err)
	}
	return report, nil
}

// lock takes the run lock in the target directory. A dry run takes no lock and leaves no lock file behind.
func (p *Pipeline) lock() (func(), error) {
	if p.opts.DryRun {
		return func() {}, nil
	}
	if err := os.MkdirAll(p.opts.TargetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	fileLock := flock.New(filepath.Join(p.opts.TargetDir, LockFilename))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock target directory: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return func() { _ = fileLock.Unlock() }, nil
}
