package audio_archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// FetchStatus is where a Task ended up after Fetch.
type FetchStatus string

const (
	FetchStatusPending  FetchStatus = "pending"
	FetchStatusFetching FetchStatus = "fetching"
	// FetchStatusComplete means the file was transferred during this run.
	FetchStatusComplete FetchStatus = "complete"
	// FetchStatusSkipped means the file was already on disk and was not touched.
	FetchStatusSkipped FetchStatus = "skipped"
	// FetchStatusDryRun means the file is missing but the run was not allowed to transfer it.
	FetchStatusDryRun FetchStatus = "dry-run"
	FetchStatusFailed FetchStatus = "failed"
)

// HasFile returns true if the status leaves the task's file on disk.
func (s FetchStatus) HasFile() bool {
	return s == FetchStatusComplete || s == FetchStatusSkipped
}

// FetchResult describes what Fetch did for one Task.
type FetchResult struct {
	Task   Task
	Path   string
	Status FetchStatus
	Bytes  int64
}

// ProgressFunc receives the bytes written so far and the expected total (-1 if unknown).
type ProgressFunc func(task *Task, downloaded int64, expected int64)

// A Fetcher streams task URLs into files under a target directory. A file that exists at the target path is taken
// to be complete; a transfer that fails for any reason leaves nothing behind.
type Fetcher struct {
	client    *http.Client
	targetDir string
	progress  ProgressFunc
	dryRun    bool
}

type FetcherBuilder interface {
	Build() (*Fetcher, error)
	WithClient(client *http.Client) FetcherBuilder
	WithDryRun(dryRun bool) FetcherBuilder
	WithProgressCallback(f ProgressFunc) FetcherBuilder
	WithTargetDir(dir string) FetcherBuilder
}

type fetcherBuilder struct {
	client    *http.Client
	targetDir string
	progress  ProgressFunc
	dryRun    bool
}

func NewFetcherBuilder() FetcherBuilder {
	return &fetcherBuilder{
		client:    http.DefaultClient,
		targetDir: ".",
	}
}

func (b *fetcherBuilder) Build() (*Fetcher, error) {
	if b.targetDir == "" {
		return nil, fmt.Errorf("no target directory")
	}
	if !b.dryRun {
		if err := os.MkdirAll(b.targetDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create target directory: %w", err)
		}
	}
	return &Fetcher{
		client:    b.client,
		targetDir: b.targetDir,
		progress:  b.progress,
		dryRun:    b.dryRun,
	}, nil
}

func (b *fetcherBuilder) WithClient(client *http.Client) FetcherBuilder {
	if client != nil {
		b.client = client
	}
	return b
}

func (b *fetcherBuilder) WithDryRun(dryRun bool) FetcherBuilder {
	b.dryRun = dryRun
	return b
}

func (b *fetcherBuilder) WithProgressCallback(f ProgressFunc) FetcherBuilder {
	b.progress = f
	return b
}

func (b *fetcherBuilder) WithTargetDir(dir string) FetcherBuilder {
	b.targetDir = dir
	return b
}

// TargetPath is where the file for task lives.
func (f *Fetcher) TargetPath(task *Task) string {
	return filepath.Join(f.targetDir, task.Filename)
}

// Fetch makes sure the file for task exists. Any error wraps ErrTransferFailed, and by the time it is returned no
// partial file remains.
func (f *Fetcher) Fetch(ctx context.Context, task Task) (result FetchResult, err error) {
	log := Logger(ctx).Named("fetch").Sugar().With("title", task.Title, "filename", task.Filename)
	result = FetchResult{Task: task, Path: f.TargetPath(&task), Status: FetchStatusPending}

	if task.Filename == "" || filepath.Base(task.Filename) != task.Filename {
		result.Status = FetchStatusFailed
		return result, fmt.Errorf("%w: invalid filename %q", ErrTransferFailed, task.Filename)
	}

	if _, err := os.Stat(result.Path); err == nil {
		log.Debug("already downloaded")
		result.Status = FetchStatusSkipped
		return result, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		result.Status = FetchStatusFailed
		return result, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	if f.dryRun {
		log.Infow("would download", "format", task.Format, "url", task.URL)
		result.Status = FetchStatusDryRun
		return result, nil
	}

	result.Status = FetchStatusFetching
	log.Infow("downloading", "format", task.Format)
	result.Bytes, err = f.save(ctx, &task, result.Path)
	if err != nil {
		result.Status = FetchStatusFailed
		return result, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	result.Status = FetchStatusComplete
	log.Infow("download complete", "size", humanize.IBytes(uint64(result.Bytes)))
	return result, nil
}

// save streams the response into a hidden partial file next to target, renaming it into place only once the whole
// body has been written and synced. The partial file is removed on every failure path, including cancellation.
func (f *Fetcher) save(ctx context.Context, task *Task, target string) (written int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	partial := partialPath(target)
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open target file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(partial)
		}
	}()

	counter := &progressWriter{task: task, expected: resp.ContentLength, callback: f.progress}
	counter.report()
	written, err = io.Copy(io.MultiWriter(out, counter), &readerContext{ctx: ctx, r: resp.Body})
	if err != nil {
		return written, fmt.Errorf("failed to save stream: %w", err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if err = out.Sync(); err != nil {
		return written, err
	}
	if err = out.Close(); err != nil {
		return written, err
	}
	// A cancellation that lands after the last read still counts as a failed transfer.
	if err = ctx.Err(); err != nil {
		return written, err
	}
	if err = os.Rename(partial, target); err != nil {
		return written, fmt.Errorf("failed to move file into place: %w", err)
	}
	return written, nil
}

var partialPattern = regexp.MustCompile(`^\..+\.[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.part$`)

func partialPath(target string) string {
	dir, name := filepath.Split(target)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.part", name, uuid.NewString()))
}

// RemoveStalePartials deletes partial files left in the target directory by a process that was killed before it
// could clean up after itself. It returns the names removed.
func (f *Fetcher) RemoveStalePartials() ([]string, error) {
	entries, err := os.ReadDir(f.targetDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ".part") || !partialPattern.MatchString(name) {
			continue
		}
		if err := os.Remove(filepath.Join(f.targetDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// progressWriter discards data but counts it, for use as the last writer of an io.MultiWriter.
type progressWriter struct {
	task     *Task
	written  int64
	expected int64
	callback ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.report()
	return len(p), nil
}

func (w *progressWriter) report() {
	if w.callback != nil {
		w.callback(w.task, w.written, w.expected)
	}
}
