package audio_archiver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/util"
)

// DefaultProbeTimeout bounds each metadata probe, so one unresponsive URL cannot stall the batch.
const DefaultProbeTimeout = 30 * time.Second

// A Resolver finds out what each chosen download will be called on disk.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	// offline disables probing: only filenames already in the store are used.
	offline bool
}

func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{client: client, timeout: DefaultProbeTimeout}
}

func (r *Resolver) WithTimeout(timeout time.Duration) *Resolver {
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

func (r *Resolver) WithOffline(offline bool) *Resolver {
	r.offline = offline
	return r
}

// Probe asks the server for the filename of url without transferring the body. HEAD is tried first; servers that
// refuse HEAD get a single-byte ranged GET whose body is closed unread.
func (r *Resolver) Probe(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.do(ctx, http.MethodHead, url)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp.Body.Close()
		resp, err = r.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return "", fmt.Errorf("%w: probe failed: %w", ErrFilenameUnresolvable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected HTTP status %s", ErrFilenameUnresolvable, resp.Status)
	}
	filename, err := util.FilenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFilenameUnresolvable, err)
	}
	return filename, nil
}

func (r *Resolver) do(ctx context.Context, method string, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	return r.client.Do(req)
}

// ResolveAll selects a format for every title in the store, in title order, and makes sure its filename is known,
// probing and recording it in the store where it is not. It returns the tasks that are ready to fetch, plus a batch
// of TitleError for the titles that are not. The store is not persisted here.
func (r *Resolver) ResolveAll(ctx context.Context, store *catalog.Store, preferred catalog.FormatTag) ([]Task, error) {
	log := Logger(ctx).Named("resolve").Sugar()
	var tasks []Task
	var errs *multierror.Error

	for _, title := range store.Titles() {
		if err := ctx.Err(); err != nil {
			return tasks, err
		}
		entry, _ := store.Get(title)
		choice, err := Select(entry, preferred).Parts()
		if err != nil {
			log.Warnw("skipping title", "title", title, "error", err)
			errs = multierror.Append(errs, titleError(title, ErrNoAvailableFormat, err))
			continue
		}

		task := Task{Title: title, Format: choice.Format, URL: choice.URL}
		if filename, ok := entry.Filename(choice.Format).Get(); ok {
			task.Filename = filename
			tasks = append(tasks, task)
			continue
		}
		if r.offline {
			log.Infow("filename not cached, not probing", "title", title, "format", choice.Format)
			continue
		}

		log.Debugw("probing filename", "title", title, "format", choice.Format, "url", choice.URL)
		filename, err := r.Probe(ctx, choice.URL)
		if err != nil {
			if ctx.Err() != nil {
				return tasks, ctx.Err()
			}
			log.Warnw("could not resolve filename", "title", title, "format", choice.Format, "error", err)
			errs = multierror.Append(errs, titleError(title, ErrFilenameUnresolvable, err))
			continue
		}
		if err := store.SetFilename(title, choice.Format, filename); err != nil {
			errs = multierror.Append(errs, titleError(title, ErrFilenameUnresolvable, err))
			continue
		}
		log.Infow("resolved filename", "title", title, "format", choice.Format, "filename", filename)
		task.Filename = filename
		tasks = append(tasks, task)
	}
	return tasks, errs.ErrorOrNil()
}
