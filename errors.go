package audio_archiver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrCatalogUnavailable is fatal: with no catalog there is nothing to reconcile.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrNoAvailableFormat means the catalog listed a title without any recognised download.
	ErrNoAvailableFormat = errors.New("no available format")
	// ErrFilenameUnresolvable means the download URL gave no usable filename.
	ErrFilenameUnresolvable = errors.New("filename unresolvable")
	// ErrTransferFailed wraps any failure while fetching a file body.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrExtractionFailed wraps any failure while normalizing an archive.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNotArchive means a file with an archive extension did not contain a valid archive.
	ErrNotArchive = errors.New("not a valid archive")
)

// A TitleError is a failure confined to one title; the run carries on with the other titles.
type TitleError struct {
	Title string
	Err   error
}

func (e *TitleError) Error() string {
	return fmt.Sprintf("%q: %v", e.Title, e.Err)
}

func (e *TitleError) Unwrap() error {
	return e.Err
}

// Kind names the taxonomy sentinel this error belongs to, for log lines.
func (e *TitleError) Kind() string {
	for _, sentinel := range []error{ErrNoAvailableFormat, ErrFilenameUnresolvable, ErrTransferFailed, ErrExtractionFailed} {
		if errors.Is(e.Err, sentinel) {
			return sentinel.Error()
		}
	}
	return "error"
}

func titleError(title string, kind error, err error) *TitleError {
	if err == nil {
		err = kind
	} else if !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &TitleError{Title: title, Err: err}
}

// TitleErrors pulls every TitleError out of a batch error.
func TitleErrors(err error) []*TitleError {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		var te *TitleError
		if errors.As(err, &te) {
			return []*TitleError{te}
		}
		return nil
	}
	var result []*TitleError
	for _, e := range merr.Errors {
		var te *TitleError
		if errors.As(e, &te) {
			result = append(result, te)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}
