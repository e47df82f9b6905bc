package catalog

import (
	"github.com/alanbriolat/audio-archiver/generic"
)

// FormatTag names one of the interchangeable download variants of a title.
type FormatTag string

const (
	// FormatMP3 is the compressed-audio download.
	FormatMP3 FormatTag = "mp3"
	// FormatAudiobook is the unabridged-audio download.
	FormatAudiobook FormatTag = "audiobook"
)

// KnownFormats lists every recognised format in fixed fallback priority order.
var KnownFormats = []FormatTag{FormatMP3, FormatAudiobook}

var knownFormats = generic.NewSet(KnownFormats...)

// IsKnown returns true if the tag is one of KnownFormats.
func (t FormatTag) IsKnown() bool {
	return knownFormats.Contains(t)
}

func (t FormatTag) String() string {
	return string(t)
}

// ParseFormatTag returns the known FormatTag named by s, or ErrUnknownFormat.
func ParseFormatTag(s string) (FormatTag, error) {
	tag := FormatTag(s)
	if !tag.IsKnown() {
		return "", &UnknownFormatError{Tag: s}
	}
	return tag, nil
}

// An Item is one (title, format, url) tuple as yielded by a catalog source.
type Item struct {
	Title  string
	Format FormatTag
	URL    string
}

// An Entry is the record for one title: which formats can be downloaded from where, and what the downloaded file
// for each format is called once that is known.
type Entry struct {
	Formats   map[FormatTag]string                 `json:"formats"`
	Filenames map[FormatTag]generic.Option[string] `json:"filenames"`
}

func newEntry() *Entry {
	e := &Entry{}
	e.normalize()
	return e
}

// URL returns the download URL for a format, if the title has one.
func (e *Entry) URL(tag FormatTag) (string, bool) {
	url, ok := e.Formats[tag]
	return url, ok && url != ""
}

// Filename returns the resolved filename for a format, or None if it has not been resolved.
func (e *Entry) Filename(tag FormatTag) generic.Option[string] {
	return e.Filenames[tag]
}

// normalize makes sure both maps exist and every known format has a Filenames key.
func (e *Entry) normalize() {
	if e.Formats == nil {
		e.Formats = make(map[FormatTag]string)
	}
	if e.Filenames == nil {
		e.Filenames = make(map[FormatTag]generic.Option[string])
	}
	for _, tag := range KnownFormats {
		if _, ok := e.Filenames[tag]; !ok {
			e.Filenames[tag] = generic.None[string]()
		}
	}
}

// entrySnapshot is a plain-map copy of an Entry used for change logging.
type entrySnapshot struct {
	Formats   map[string]string
	Filenames map[string]string
}

func (e *Entry) snapshot() entrySnapshot {
	s := entrySnapshot{
		Formats:   make(map[string]string, len(e.Formats)),
		Filenames: make(map[string]string, len(e.Filenames)),
	}
	for tag, url := range e.Formats {
		s.Formats[string(tag)] = url
	}
	for tag, filename := range e.Filenames {
		if name, ok := filename.Get(); ok {
			s.Filenames[string(tag)] = name
		}
	}
	return s
}
